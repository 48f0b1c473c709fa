package service

import (
	"context"
	"testing"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/repository"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/testutil"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func setupSlotTest(t *testing.T) (*SlotService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := NewSlotService(
		repository.NewOrderRepository(db),
		repository.NewSubscriptionRepository(db),
		nil,
		testutil.TestFulfillmentConfig(),
	)
	return svc, db
}

func TestListDeliveryOptionsEnumeratesConfiguredDays(t *testing.T) {
	svc, _ := setupSlotTest(t)

	// Monday morning, two week horizon: Tue/Thu/Sat twice over.
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	options, err := svc.ListDeliveryOptions(context.Background(), now, 2)
	if err != nil {
		t.Fatalf("ListDeliveryOptions failed: %v", err)
	}
	if len(options) != 6 {
		t.Fatalf("expected 6 options over 2 weeks, got %d", len(options))
	}

	allowed := map[time.Weekday]bool{time.Tuesday: true, time.Thursday: true, time.Saturday: true}
	var prev time.Time
	for _, opt := range options {
		if !allowed[opt.Date.Weekday()] {
			t.Errorf("unexpected delivery weekday %s", opt.Date.Weekday())
		}
		if !opt.Date.After(now) {
			t.Errorf("option date %v not in the future", opt.Date)
		}
		if !prev.IsZero() && !opt.Date.After(prev) {
			t.Error("options not in ascending date order")
		}
		prev = opt.Date

		// Sellable cap is the hard limit scaled by the soft ratio: 40 * 0.9.
		if opt.CapacityMax != 36 {
			t.Errorf("expected capacity max 36, got %d", opt.CapacityMax)
		}
		if !opt.CutoffTime.Before(opt.Date) {
			t.Errorf("cutoff %v not before delivery date %v", opt.CutoffTime, opt.Date)
		}
		if !opt.Available {
			t.Errorf("expected empty day %v to be available", opt.Date)
		}
	}
}

func TestCutoffFor(t *testing.T) {
	svc, _ := setupSlotTest(t)

	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	want := time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC)
	if got := svc.CutoffFor(date); !got.Equal(want) {
		t.Errorf("expected cutoff %v, got %v", want, got)
	}
}

func TestListDeliveryOptionsCutoffPassed(t *testing.T) {
	svc, _ := setupSlotTest(t)

	// Monday evening, after the Tuesday cutoff (Sunday 18:00) has long
	// passed; Tuesday must be listed but unavailable.
	now := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
	options, err := svc.ListDeliveryOptions(context.Background(), now, 1)
	if err != nil {
		t.Fatalf("ListDeliveryOptions failed: %v", err)
	}

	for _, opt := range options {
		if opt.Date.Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
			if opt.Available {
				t.Error("expected Tuesday unavailable after its cutoff")
			}
			return
		}
	}
	t.Fatal("expected an option on 2026-03-03")
}

func TestListDeliveryOptionsCountsBookedCapacity(t *testing.T) {
	svc, db := setupSlotTest(t)

	// Fill Thursday 2026-03-05 to the sellable cap with a confirmed order.
	target := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	order := &entity.Order{
		ID:           uuid.New().String(),
		CustomerRef:  "cust-1",
		DeliveryDate: target,
		Status:       entity.OrderConfirmed,
		Items: []entity.OrderItem{
			{ID: uuid.New().String(), ProductID: "radish-2oz", Quantity: 36},
		},
	}
	order.Items[0].OrderID = order.ID
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	options, err := svc.ListDeliveryOptions(context.Background(), now, 1)
	if err != nil {
		t.Fatalf("ListDeliveryOptions failed: %v", err)
	}

	for _, opt := range options {
		if opt.Date.Equal(target) {
			if opt.CapacityUsed != 36 {
				t.Errorf("expected capacity used 36, got %d", opt.CapacityUsed)
			}
			if opt.Available {
				t.Error("expected fully booked day to be unavailable")
			}
			return
		}
	}
	t.Fatal("expected an option on 2026-03-05")
}
