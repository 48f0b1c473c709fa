package service

import (
	"context"
	"fmt"
	"time"

	catalogsvc "github.com/geoffdsims/chefpax-sub000/internal/catalog/service"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderService struct {
	orderRepo    *repository.OrderRepository
	catalog      *catalogsvc.CatalogService
	validator    *ValidatorService
	reservations *ReservationService
	tasks        *TaskService
	deliveries   *DeliveryService
	logger       *zap.Logger
}

func NewOrderService(
	orderRepo *repository.OrderRepository,
	catalog *catalogsvc.CatalogService,
	validator *ValidatorService,
	reservations *ReservationService,
	tasks *TaskService,
	deliveries *DeliveryService,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		catalog:      catalog,
		validator:    validator,
		reservations: reservations,
		tasks:        tasks,
		deliveries:   deliveries,
		logger:       logger,
	}
}

// CreateOrderRequest 下单请求（支付前）
type CreateOrderRequest struct {
	CustomerRef  string     `json:"customer_ref" binding:"required"`
	DeliveryDate time.Time  `json:"delivery_date" binding:"required"`
	Method       string     `json:"method"`
	Address      string     `json:"address"`
	Items        []LineItem `json:"items" binding:"required,min=1,dive"`
}

// CreateOrderResult 下单结论：订单 + 预约凭证
type CreateOrderResult struct {
	Order       *entity.Order  `json:"order"`
	Reservation *ReserveResult `json:"reservation"`
}

// Create 下单：先校验交付期，再建订单并预约库容。任一行项赶不上交付日时
// 整单拒绝，不落任何数据；预约整单失败时订单保持 PENDING 并原样带回
// 逐项错误，由调用方改期或改量后重试。
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	products, err := s.catalog.GetMany(ctx, productIDs(req.Items))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, item := range req.Items {
		check, err := s.validator.CanDeliverByDate(ctx, item.ProductID, req.DeliveryDate, now)
		if err != nil {
			return nil, err
		}
		if !check.CanDeliver {
			return nil, fmt.Errorf("%w: %s %s", ErrTimingInfeasible, item.ProductID, check.Reason)
		}
	}

	order := &entity.Order{
		ID:           uuid.New().String(),
		CustomerRef:  req.CustomerRef,
		DeliveryDate: req.DeliveryDate,
		Status:       entity.OrderPending,
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, entity.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
		order.TotalCents += products[item.ProductID].PriceCents * item.Quantity
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	reservation, err := s.reservations.Reserve(ctx, ReserveRequest{
		OrderRef:     order.ID,
		DeliveryDate: req.DeliveryDate,
		Items:        req.Items,
	})
	if err != nil {
		return &CreateOrderResult{Order: order, Reservation: reservation}, err
	}
	return &CreateOrderResult{Order: order, Reservation: reservation}, nil
}

// ItemError 行项级失败
type ItemError struct {
	ProductID string `json:"product_id"`
	Message   string `json:"message"`
}

// ConfirmResult 确认订单的结论：已生成的任务与逐项错误
type ConfirmResult struct {
	TaskIDs    []string    `json:"task_ids"`
	ItemErrors []ItemError `json:"item_errors,omitempty"`
}

// Confirm 支付确认后的编排：订单置 CONFIRMED、建配送任务、逐行项生成生产任务链。
// 行项之间相互独立：某一行项失败不回滚兄弟行项已落库的任务链，
// 失败以逐项错误列表上报。
func (s *OrderService) Confirm(ctx context.Context, orderID string, method, address string) (*ConfirmResult, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err := s.orderRepo.UpdateStatus(ctx, orderID, entity.OrderConfirmed); err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	if _, err := s.deliveries.CreateForOrder(ctx, order, method, address); err != nil {
		return nil, fmt.Errorf("create delivery job: %w", err)
	}

	result := &ConfirmResult{}
	for _, item := range order.Items {
		tasks, err := s.tasks.GenerateForOrder(ctx, order.ID, LineItem{ProductID: item.ProductID, Quantity: item.Quantity}, order.DeliveryDate)
		if err != nil {
			result.ItemErrors = append(result.ItemErrors, ItemError{ProductID: item.ProductID, Message: err.Error()})
			continue
		}
		for _, task := range tasks {
			result.TaskIDs = append(result.TaskIDs, task.ID)
		}
	}

	s.logger.Info("order confirmed",
		zap.String("order_id", orderID),
		zap.Int("tasks", len(result.TaskIDs)),
		zap.Int("failed_items", len(result.ItemErrors)),
	)
	return result, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return order, nil
}

func productIDs(items []LineItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}
