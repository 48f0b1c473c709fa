package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SubscriptionService struct {
	subRepo *repository.SubscriptionRepository
	tasks   *TaskService
	logger  *zap.Logger
}

func NewSubscriptionService(subRepo *repository.SubscriptionRepository, tasks *TaskService, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{subRepo: subRepo, tasks: tasks, logger: logger}
}

// CreateSubscriptionRequest 创建订阅请求
type CreateSubscriptionRequest struct {
	CustomerRef string                       `json:"customer_ref" binding:"required"`
	Frequency   entity.SubscriptionFrequency `json:"frequency" binding:"required"`
	NextCycleAt time.Time                    `json:"next_cycle_at" binding:"required"`
	Items       []LineItem                   `json:"items" binding:"required,min=1,dive"`
}

func (s *SubscriptionService) Create(ctx context.Context, req CreateSubscriptionRequest) (*entity.Subscription, error) {
	if req.Frequency.Days() == 0 {
		return nil, fmt.Errorf("unknown subscription frequency %q", req.Frequency)
	}
	sub := &entity.Subscription{
		ID:          uuid.New().String(),
		CustomerRef: req.CustomerRef,
		Frequency:   req.Frequency,
		Status:      entity.SubscriptionActive,
		NextCycleAt: req.NextCycleAt,
	}
	for _, item := range req.Items {
		sub.Items = append(sub.Items, entity.SubscriptionItem{
			ID:             uuid.New().String(),
			SubscriptionID: sub.ID,
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
		})
	}
	if err := s.subRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

func (s *SubscriptionService) Get(ctx context.Context, id string) (*entity.Subscription, error) {
	return s.subRepo.FindByID(ctx, id)
}

// RunDueCycles 订阅周期执行器：找出 next_cycle_at 已到的活跃订阅，
// 为当期生成任务链后把 next_cycle_at 按频率固定天数前推（周/双周/月 = 7/14/30）。
// 单个订阅失败不阻塞其余订阅；重复执行靠周期唯一索引幂等。
func (s *SubscriptionService) RunDueCycles(ctx context.Context, now time.Time) (int, error) {
	due, err := s.subRepo.ListDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due subscriptions: %w", err)
	}
	processed := 0
	for _, sub := range due {
		if err := s.runCycle(ctx, sub); err != nil {
			s.logger.Error("subscription cycle failed",
				zap.String("subscription_id", sub.ID),
				zap.Error(err),
			)
			continue
		}
		processed++
	}
	return processed, nil
}

func (s *SubscriptionService) runCycle(ctx context.Context, sub entity.Subscription) error {
	cycleDate := sub.NextCycleAt
	items := make([]LineItem, 0, len(sub.Items))
	for _, item := range sub.Items {
		items = append(items, LineItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	generated := true
	if _, err := s.tasks.GenerateForSubscription(ctx, sub.ID, items, cycleDate); err != nil {
		if !errors.Is(err, ErrDuplicateCycle) {
			return err
		}
		// 本周期已生成过（重复触发或上次推进失败后的重试），继续推进时间即可
		generated = false
	}

	next := cycleDate.AddDate(0, 0, sub.Frequency.Days())
	if err := s.subRepo.AdvanceCycle(ctx, sub.ID, next); err != nil {
		return fmt.Errorf("advance cycle: %w", err)
	}
	if generated {
		s.logger.Info("subscription cycle generated",
			zap.String("subscription_id", sub.ID),
			zap.String("cycle_date", entity.DateKey(cycleDate)),
			zap.Time("next_cycle_at", next),
		)
	}
	return nil
}
