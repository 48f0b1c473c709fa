package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/repository"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupOrderTest(t *testing.T) (*OrderService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cat := testutil.SetupCatalog(t, db)
	cfg := testutil.TestFulfillmentConfig()
	logger := zap.NewNop()

	orderRepo := repository.NewOrderRepository(db)
	slots := NewSlotService(orderRepo, repository.NewSubscriptionRepository(db), nil, cfg)
	validator := NewValidatorService(cat, slots, cfg)
	reservations := NewReservationService(repository.NewReservationRepository(db), cat, nil, cfg, logger)
	tasks := NewTaskService(repository.NewTaskRepository(db), cat, logger)
	deliveries := NewDeliveryService(repository.NewDeliveryRepository(db), logger)
	svc := NewOrderService(orderRepo, cat, validator, reservations, tasks, deliveries, logger)
	return svc, db
}

func orderDeliveryDate() time.Time {
	return time.Now().UTC().AddDate(0, 0, 16).Truncate(24 * time.Hour)
}

func TestOrderCreateConfirmFlow(t *testing.T) {
	svc, db := setupOrderTest(t)
	ctx := context.Background()

	result, err := svc.Create(ctx, CreateOrderRequest{
		CustomerRef:  "cust-1",
		DeliveryDate: orderDeliveryDate(),
		Items: []LineItem{
			{ProductID: "pea-shoots-2oz", Quantity: 2},
			{ProductID: "radish-2oz", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if result.Order.Status != entity.OrderPending {
		t.Errorf("expected PENDING order, got %s", result.Order.Status)
	}
	if !result.Reservation.Success {
		t.Fatalf("expected capacity reserved, got %+v", result.Reservation)
	}
	// 2 * 700 + 1 * 650
	if result.Order.TotalCents != 2050 {
		t.Errorf("expected total 2050 cents, got %d", result.Order.TotalCents)
	}

	confirm, err := svc.Confirm(ctx, result.Order.ID, "courier", "123 Main St")
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if len(confirm.ItemErrors) != 0 {
		t.Fatalf("unexpected item errors: %+v", confirm.ItemErrors)
	}
	// Two line items, five stages each.
	if len(confirm.TaskIDs) != 10 {
		t.Errorf("expected 10 generated tasks, got %d", len(confirm.TaskIDs))
	}

	order, err := svc.Get(ctx, result.Order.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if order.Status != entity.OrderConfirmed {
		t.Errorf("expected CONFIRMED order, got %s", order.Status)
	}

	var job entity.DeliveryJob
	if err := db.Where("order_id = ?", order.ID).First(&job).Error; err != nil {
		t.Fatalf("expected a delivery job: %v", err)
	}
	if job.Status != entity.DeliveryRequested {
		t.Errorf("expected REQUESTED delivery job, got %s", job.Status)
	}
}

func TestOrderCreateCapacityFailureKeepsOrderPending(t *testing.T) {
	svc, _ := setupOrderTest(t)
	ctx := context.Background()

	// Fill radish capacity first.
	if _, err := svc.Create(ctx, CreateOrderRequest{
		CustomerRef:  "cust-1",
		DeliveryDate: orderDeliveryDate(),
		Items:        []LineItem{{ProductID: "radish-2oz", Quantity: 20}},
	}); err != nil {
		t.Fatalf("setup order failed: %v", err)
	}

	result, err := svc.Create(ctx, CreateOrderRequest{
		CustomerRef:  "cust-2",
		DeliveryDate: orderDeliveryDate(),
		Items:        []LineItem{{ProductID: "radish-2oz", Quantity: 1}},
	})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	// The order stays PENDING alongside the per-item errors so the caller
	// can retry with a different date or quantity.
	if result == nil || result.Order == nil {
		t.Fatal("expected order returned with the failure")
	}
	if result.Order.Status != entity.OrderPending {
		t.Errorf("expected PENDING order, got %s", result.Order.Status)
	}
	if result.Reservation == nil || result.Reservation.Success {
		t.Errorf("expected failed reservation, got %+v", result.Reservation)
	}

	order, err := svc.Get(ctx, result.Order.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if order.Status != entity.OrderPending {
		t.Errorf("order status changed unexpectedly: %s", order.Status)
	}
}

func TestOrderCreateRejectsInfeasibleDate(t *testing.T) {
	svc, db := setupOrderTest(t)
	ctx := context.Background()

	// Pea shoots need 10 days to grow; a date 3 days out cannot be met.
	result, err := svc.Create(ctx, CreateOrderRequest{
		CustomerRef:  "cust-1",
		DeliveryDate: time.Now().UTC().AddDate(0, 0, 3),
		Items:        []LineItem{{ProductID: "pea-shoots-2oz", Quantity: 1}},
	})
	if !errors.Is(err, ErrTimingInfeasible) {
		t.Fatalf("expected ErrTimingInfeasible, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result for an infeasible date, got %+v", result)
	}

	// Rejection happens before anything is written.
	var count int64
	if err := db.Model(&entity.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no orders persisted, got %d", count)
	}
}

func TestOrderConfirmUnknownOrder(t *testing.T) {
	svc, _ := setupOrderTest(t)

	if _, err := svc.Confirm(context.Background(), "missing", "courier", ""); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
