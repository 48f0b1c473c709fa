package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	catalogsvc "github.com/geoffdsims/chefpax-sub000/internal/catalog/service"
	"github.com/geoffdsims/chefpax-sub000/internal/config"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReservationService struct {
	resRepo *repository.ReservationRepository
	catalog *catalogsvc.CatalogService
	cache   *SlotCache
	cfg     config.FulfillmentConfig
	logger  *zap.Logger
}

func NewReservationService(
	resRepo *repository.ReservationRepository,
	catalog *catalogsvc.CatalogService,
	cache *SlotCache,
	cfg config.FulfillmentConfig,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{resRepo: resRepo, catalog: catalog, cache: cache, cfg: cfg, logger: logger}
}

// ReserveRequest 预约请求，整单要么全部成立要么全部失败
type ReserveRequest struct {
	OrderRef     string     `json:"order_ref"`
	DeliveryDate time.Time  `json:"delivery_date" binding:"required"`
	Items        []LineItem `json:"items" binding:"required,min=1,dive"`
}

// ReserveResult 预约结论
type ReserveResult struct {
	Success       bool              `json:"success"`
	ReservationID string            `json:"reservation_id,omitempty"`
	Errors        map[string]string `json:"errors,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
}

// Reserve 创建库容预约。容量检查与扣减在仓储层同一条带谓词的 UPDATE 内完成，
// 并发安全；任一行项容量不足则整单回滚，返回逐项错误而不部分成立。
func (s *ReservationService) Reserve(ctx context.Context, req ReserveRequest) (*ReserveResult, error) {
	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity %d for product %s", item.Quantity, item.ProductID)
		}
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	dateKey := entity.DateKey(req.DeliveryDate)
	now := time.Now()
	reservation := &entity.InventoryReservation{
		ID:           uuid.New().String(),
		OrderRef:     req.OrderRef,
		DeliveryDate: dateKey,
		Status:       entity.ReservationActive,
		ExpiresAt:    now.Add(s.cfg.ReservationTTL),
	}
	lines := make([]repository.ReserveLine, 0, len(req.Items))
	for _, item := range req.Items {
		reservation.Items = append(reservation.Items, entity.ReservationItem{
			ID:            uuid.New().String(),
			ReservationID: reservation.ID,
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
		})
		lines = append(lines, repository.ReserveLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Capacity:  products[item.ProductID].WeeklyCapacity,
		})
	}

	if err := s.resRepo.CreateReservation(ctx, reservation, lines); err != nil {
		if errors.Is(err, repository.ErrSlotFull) {
			// 哪个行项挤爆的不重要，对外统一整单容量不足
			itemErrors := make(map[string]string, len(req.Items))
			for _, item := range req.Items {
				availability, availErr := s.Availability(ctx, item.ProductID, req.DeliveryDate)
				if availErr == nil && availability.Available < item.Quantity {
					itemErrors[item.ProductID] = fmt.Sprintf("only %d of %d available", availability.Available, item.Quantity)
				}
			}
			return &ReserveResult{Success: false, Errors: itemErrors}, fmt.Errorf("%w: %s", ErrCapacityExceeded, dateKey)
		}
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	s.cache.Invalidate(ctx)
	s.logger.Info("reservation created",
		zap.String("reservation_id", reservation.ID),
		zap.String("delivery_date", dateKey),
		zap.Int("items", len(req.Items)),
	)
	return &ReserveResult{Success: true, ReservationID: reservation.ID, ExpiresAt: &reservation.ExpiresAt}, nil
}

// Release 显式释放预约并归还容量；非 active 状态下是幂等空操作
func (s *ReservationService) Release(ctx context.Context, id string) (bool, error) {
	moved, err := s.resRepo.Transition(ctx, id, entity.ReservationReleased)
	if err != nil {
		return false, fmt.Errorf("release reservation: %w", err)
	}
	if moved {
		s.cache.Invalidate(ctx)
	}
	return moved, nil
}

// Availability 某产品某配送日的容量视图（只读）
func (s *ReservationService) Availability(ctx context.Context, productID string, date time.Time) (*repository.SlotCapacity, error) {
	product, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.resRepo.GetSlot(ctx, productID, entity.DateKey(date), product.WeeklyCapacity)
}

// ExpireStale 过期清扫：到期仍为 active 的预约逐条置 expired 并归还容量。
// 状态谓词让迁移天然幂等，清扫可并发/重复执行。
func (s *ReservationService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.resRepo.ListStale(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list stale reservations: %w", err)
	}
	expired := 0
	for _, id := range ids {
		moved, err := s.resRepo.Transition(ctx, id, entity.ReservationExpired)
		if err != nil {
			return expired, fmt.Errorf("expire reservation %s: %w", id, err)
		}
		if moved {
			expired++
		}
	}
	if expired > 0 {
		s.cache.Invalidate(ctx)
		s.logger.Info("expired stale reservations", zap.Int("count", expired))
	}
	return expired, nil
}
