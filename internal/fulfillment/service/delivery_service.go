package service

import (
	"context"
	"fmt"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DeliveryService struct {
	deliveryRepo *repository.DeliveryRepository
	logger       *zap.Logger
}

func NewDeliveryService(deliveryRepo *repository.DeliveryRepository, logger *zap.Logger) *DeliveryService {
	return &DeliveryService{deliveryRepo: deliveryRepo, logger: logger}
}

// CreateForOrder 支付确认后为订单创建配送任务
func (s *DeliveryService) CreateForOrder(ctx context.Context, order *entity.Order, method, address string) (*entity.DeliveryJob, error) {
	if method == "" {
		method = "courier"
	}
	job := &entity.DeliveryJob{
		ID:           uuid.New().String(),
		OrderID:      order.ID,
		Method:       method,
		Address:      address,
		DeliveryDate: entity.DateKey(order.DeliveryDate),
		Status:       entity.DeliveryRequested,
	}
	if err := s.deliveryRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create delivery job: %w", err)
	}
	return job, nil
}

func (s *DeliveryService) Get(ctx context.Context, id string) (*entity.DeliveryJob, error) {
	return s.deliveryRepo.FindByID(ctx, id)
}

// WebhookEvent 承运方回调
type WebhookEvent struct {
	Status    entity.DeliveryStatus  `json:"status" binding:"required"`
	Provider  string                 `json:"provider"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// HandleWebhook 校验状态机后更新配送状态，并把事件原样追加进历史（只增）
func (s *DeliveryService) HandleWebhook(ctx context.Context, jobID string, event WebhookEvent) error {
	job, err := s.deliveryRepo.FindByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("find delivery job: %w", err)
	}
	if !job.Status.CanTransitionTo(event.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, event.Status)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	record := map[string]interface{}{
		"status":    string(event.Status),
		"provider":  event.Provider,
		"timestamp": event.Timestamp.Format(time.RFC3339),
	}
	if event.Payload != nil {
		record["payload"] = event.Payload
	}
	if err := s.deliveryRepo.AppendWebhook(ctx, jobID, event.Status, record); err != nil {
		return fmt.Errorf("append webhook: %w", err)
	}
	s.logger.Info("delivery status updated",
		zap.String("delivery_id", jobID),
		zap.String("status", string(event.Status)),
	)
	return nil
}
