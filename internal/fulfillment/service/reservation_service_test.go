package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	catalogentity "github.com/geoffdsims/chefpax-sub000/internal/catalog/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/repository"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupReservationTest(t *testing.T) (*ReservationService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cat := testutil.SetupCatalog(t, db)
	svc := NewReservationService(
		repository.NewReservationRepository(db),
		cat,
		nil,
		testutil.TestFulfillmentConfig(),
		zap.NewNop(),
	)
	return svc, db
}

func reservationDate() time.Time {
	return time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
}

func TestReserveAndAvailability(t *testing.T) {
	svc, _ := setupReservationTest(t)
	ctx := context.Background()

	result, err := svc.Reserve(ctx, ReserveRequest{
		OrderRef:     "order-1",
		DeliveryDate: reservationDate(),
		Items:        []LineItem{{ProductID: "pea-shoots-2oz", Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if !result.Success || result.ReservationID == "" {
		t.Fatalf("expected successful reservation, got %+v", result)
	}
	if result.ExpiresAt == nil || time.Until(*result.ExpiresAt) > 24*time.Hour {
		t.Errorf("expected expiry within the 24h TTL, got %v", result.ExpiresAt)
	}

	avail, err := svc.Availability(ctx, "pea-shoots-2oz", reservationDate())
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if avail.Total != 24 || avail.Reserved != 5 || avail.Available != 19 {
		t.Errorf("unexpected availability: %+v", avail)
	}
}

func TestReserveAllOrNothing(t *testing.T) {
	svc, _ := setupReservationTest(t)
	ctx := context.Background()

	// Fill radish (weekly capacity 20) completely.
	if _, err := svc.Reserve(ctx, ReserveRequest{
		OrderRef:     "order-1",
		DeliveryDate: reservationDate(),
		Items:        []LineItem{{ProductID: "radish-2oz", Quantity: 20}},
	}); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	// A bundle touching a full slot must fail as a whole: the pea line
	// would fit on its own but must not be partially committed.
	result, err := svc.Reserve(ctx, ReserveRequest{
		OrderRef:     "order-2",
		DeliveryDate: reservationDate(),
		Items: []LineItem{
			{ProductID: "pea-shoots-2oz", Quantity: 5},
			{ProductID: "radish-2oz", Quantity: 1},
		},
	})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if result == nil || result.Success {
		t.Fatalf("expected failed result, got %+v", result)
	}
	if _, flagged := result.Errors["radish-2oz"]; !flagged {
		t.Errorf("expected radish flagged in item errors, got %v", result.Errors)
	}

	peaAvail, err := svc.Availability(ctx, "pea-shoots-2oz", reservationDate())
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if peaAvail.Reserved != 0 {
		t.Errorf("pea line leaked from rolled-back reservation: %+v", peaAvail)
	}
}

func TestReserveExactRemainingCapacity(t *testing.T) {
	svc, _ := setupReservationTest(t)
	ctx := context.Background()

	// Taking exactly the full capacity succeeds (<=, not <).
	if _, err := svc.Reserve(ctx, ReserveRequest{
		OrderRef:     "order-1",
		DeliveryDate: reservationDate(),
		Items:        []LineItem{{ProductID: "pea-shoots-2oz", Quantity: 24}},
	}); err != nil {
		t.Fatalf("Reserve at exact capacity failed: %v", err)
	}

	if _, err := svc.Reserve(ctx, ReserveRequest{
		OrderRef:     "order-2",
		DeliveryDate: reservationDate(),
		Items:        []LineItem{{ProductID: "pea-shoots-2oz", Quantity: 1}},
	}); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded past capacity, got %v", err)
	}
}

func TestReserveConcurrentLastUnit(t *testing.T) {
	svc, _ := setupReservationTest(t)
	ctx := context.Background()

	// Leave exactly one unit of pea capacity.
	if _, err := svc.Reserve(ctx, ReserveRequest{
		OrderRef:     "setup",
		DeliveryDate: reservationDate(),
		Items:        []LineItem{{ProductID: "pea-shoots-2oz", Quantity: 23}},
	}); err != nil {
		t.Fatalf("setup reserve failed: %v", err)
	}

	// Two concurrent reservations race for the last unit; the capacity
	// predicate must admit exactly one.
	var wg sync.WaitGroup
	successes := make(chan string, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			result, err := svc.Reserve(ctx, ReserveRequest{
				OrderRef:     ref,
				DeliveryDate: reservationDate(),
				Items:        []LineItem{{ProductID: "pea-shoots-2oz", Quantity: 1}},
			})
			if err == nil && result.Success {
				successes <- ref
			}
		}("racer")
	}
	wg.Wait()
	close(successes)

	won := 0
	for range successes {
		won++
	}
	if won != 1 {
		t.Fatalf("expected exactly one winner for the last unit, got %d", won)
	}

	avail, err := svc.Availability(ctx, "pea-shoots-2oz", reservationDate())
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if avail.Reserved != 24 {
		t.Errorf("expected full capacity reserved, got %d", avail.Reserved)
	}
}

func TestReleaseReturnsCapacityOnce(t *testing.T) {
	svc, _ := setupReservationTest(t)
	ctx := context.Background()

	result, err := svc.Reserve(ctx, ReserveRequest{
		OrderRef:     "order-1",
		DeliveryDate: reservationDate(),
		Items:        []LineItem{{ProductID: "broccoli-2oz", Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	moved, err := svc.Release(ctx, result.ReservationID)
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !moved {
		t.Fatal("expected release to take effect")
	}

	avail, err := svc.Availability(ctx, "broccoli-2oz", reservationDate())
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if avail.Reserved != 0 {
		t.Errorf("expected capacity returned, reserved=%d", avail.Reserved)
	}

	// Second release is a harmless no-op: capacity is not returned twice.
	moved, err = svc.Release(ctx, result.ReservationID)
	if err != nil {
		t.Fatalf("repeat Release failed: %v", err)
	}
	if moved {
		t.Error("expected repeat release to be a no-op")
	}
}

func TestExpireStaleIsIdempotent(t *testing.T) {
	svc, db := setupReservationTest(t)
	ctx := context.Background()

	result, err := svc.Reserve(ctx, ReserveRequest{
		OrderRef:     "order-1",
		DeliveryDate: reservationDate(),
		Items:        []LineItem{{ProductID: "sunflower-2oz", Quantity: 6}},
	})
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	// Age the reservation past its TTL.
	if err := db.Model(&entity.InventoryReservation{}).
		Where("id = ?", result.ReservationID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("failed to age reservation: %v", err)
	}

	expired, err := svc.ExpireStale(ctx, time.Now())
	if err != nil {
		t.Fatalf("ExpireStale failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired reservation, got %d", expired)
	}

	avail, err := svc.Availability(ctx, "sunflower-2oz", reservationDate())
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if avail.Reserved != 0 {
		t.Errorf("expected capacity returned after expiry, reserved=%d", avail.Reserved)
	}

	// Running the sweep again must not touch anything.
	expired, err = svc.ExpireStale(ctx, time.Now())
	if err != nil {
		t.Fatalf("second ExpireStale failed: %v", err)
	}
	if expired != 0 {
		t.Errorf("expected repeat sweep to be a no-op, got %d", expired)
	}
}

func TestReserveSurvivesCapacityChange(t *testing.T) {
	svc, db := setupReservationTest(t)
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, ReserveRequest{
		OrderRef:     "order-1",
		DeliveryDate: reservationDate(),
		Items:        []LineItem{{ProductID: "pea-shoots-2oz", Quantity: 5}},
	}); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	// A catalog capacity change after the slot row exists must not break
	// further reservations for the same (product, date).
	if err := db.Model(&catalogentity.Product{}).
		Where("id = ?", "pea-shoots-2oz").
		Update("weekly_capacity", 30).Error; err != nil {
		t.Fatalf("failed to update product capacity: %v", err)
	}

	result, err := svc.Reserve(ctx, ReserveRequest{
		OrderRef:     "order-2",
		DeliveryDate: reservationDate(),
		Items:        []LineItem{{ProductID: "pea-shoots-2oz", Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("Reserve after capacity change failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected successful reservation, got %+v", result)
	}

	// The existing slot keeps the capacity it was created with.
	avail, err := svc.Availability(ctx, "pea-shoots-2oz", reservationDate())
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if avail.Total != 24 || avail.Reserved != 8 {
		t.Errorf("unexpected availability after capacity change: %+v", avail)
	}
}

func TestReserveRejectsInvalidQuantity(t *testing.T) {
	svc, _ := setupReservationTest(t)

	if _, err := svc.Reserve(context.Background(), ReserveRequest{
		OrderRef:     "order-1",
		DeliveryDate: reservationDate(),
		Items:        []LineItem{{ProductID: "pea-shoots-2oz", Quantity: 0}},
	}); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}
