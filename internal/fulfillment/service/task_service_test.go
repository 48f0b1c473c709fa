package service

import (
	"context"
	"errors"
	"testing"
	"time"

	catalog "github.com/geoffdsims/chefpax-sub000/internal/catalog/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/repository"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/testutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTaskTest(t *testing.T) (*TaskService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cat := testutil.SetupCatalog(t, db)
	svc := NewTaskService(repository.NewTaskRepository(db), cat, zap.NewNop())
	return svc, db
}

func TestGenerateForOrderBuildsStageChain(t *testing.T) {
	svc, _ := setupTaskTest(t)

	orderID := uuid.New().String()
	delivery := time.Now().UTC().AddDate(0, 0, 20).Truncate(24 * time.Hour)
	tasks, err := svc.GenerateForOrder(context.Background(), orderID, LineItem{ProductID: "pea-shoots-2oz", Quantity: 3}, delivery)
	if err != nil {
		t.Fatalf("GenerateForOrder failed: %v", err)
	}
	if len(tasks) != 5 {
		t.Fatalf("expected 5 stage tasks, got %d", len(tasks))
	}

	seedDate := delivery.AddDate(0, 0, -10)
	if !tasks[0].RunAt.Equal(seedDate) {
		t.Errorf("expected seeding at %v, got %v", seedDate, tasks[0].RunAt)
	}
	if tasks[0].Status != entity.TaskReady {
		t.Errorf("expected the offset-0 task READY, got %s", tasks[0].Status)
	}

	prev := tasks[0].RunAt
	for i, task := range tasks[1:] {
		if task.Status != entity.TaskPending {
			t.Errorf("stage %d: expected PENDING, got %s", i+1, task.Status)
		}
		if task.RunAt.Before(prev) {
			t.Errorf("stage %d: run_at went backwards", i+1)
		}
		prev = task.RunAt
	}
	if last := tasks[len(tasks)-1]; last.RunAt.After(delivery) {
		t.Errorf("final stage %v runs after delivery %v", last.RunAt, delivery)
	}

	for _, task := range tasks {
		origin, err := task.Origin()
		if err != nil {
			t.Fatalf("task origin: %v", err)
		}
		if origin.Kind != entity.OriginOrder || origin.ID != orderID {
			t.Errorf("expected order origin %s, got %+v", orderID, origin)
		}
		if task.Quantity != 3 {
			t.Errorf("expected quantity 3, got %d", task.Quantity)
		}
	}

	// The pack task carries the label payload for downstream printing.
	pack := tasks[len(tasks)-1]
	if pack.StageType != catalog.StagePack {
		t.Fatalf("expected terminal PACK stage, got %s", pack.StageType)
	}
	if pack.LabelPayload["sku"] != "pea-shoots-2oz" {
		t.Errorf("unexpected label sku: %v", pack.LabelPayload["sku"])
	}
	wantBatch := entity.DateKey(delivery) + ":pea-shoots-2oz"
	if pack.LabelPayload["batch_key"] != wantBatch {
		t.Errorf("expected batch key %s, got %v", wantBatch, pack.LabelPayload["batch_key"])
	}
}

func TestPriorityForDeliveryBuckets(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		delivery time.Time
		want     entity.TaskPriority
	}{
		{now.AddDate(0, 0, 1), entity.PriorityUrgent},
		{now.Add(71 * time.Hour), entity.PriorityUrgent},
		{now.AddDate(0, 0, 3), entity.PriorityHigh}, // exactly 3 days is not < 3
		{now.AddDate(0, 0, 5), entity.PriorityHigh},
		{now.AddDate(0, 0, 7), entity.PriorityMedium},
		{now.AddDate(0, 0, 13), entity.PriorityMedium},
		{now.AddDate(0, 0, 14), entity.PriorityLow},
		{now.AddDate(0, 0, 30), entity.PriorityLow},
	}
	for _, c := range cases {
		if got := entity.PriorityForDelivery(now, c.delivery); got != c.want {
			t.Errorf("delivery %v: expected %s, got %s", c.delivery, c.want, got)
		}
	}
}

func TestGenerateForSubscriptionIdempotentPerCycle(t *testing.T) {
	svc, db := setupTaskTest(t)

	subID := uuid.New().String()
	cycleDate := time.Now().UTC().AddDate(0, 0, 15).Truncate(24 * time.Hour)
	items := []LineItem{
		{ProductID: "pea-shoots-2oz", Quantity: 2},
		{ProductID: "radish-2oz", Quantity: 1},
	}

	tasks, err := svc.GenerateForSubscription(context.Background(), subID, items, cycleDate)
	if err != nil {
		t.Fatalf("GenerateForSubscription failed: %v", err)
	}
	if len(tasks) != 10 {
		t.Fatalf("expected 10 tasks for two items, got %d", len(tasks))
	}
	for _, task := range tasks {
		origin, err := task.Origin()
		if err != nil {
			t.Fatalf("task origin: %v", err)
		}
		if origin.Kind != entity.OriginSubscription || origin.ID != subID {
			t.Errorf("expected subscription origin, got %+v", origin)
		}
	}

	// Regenerating the same cycle is a conflict, not a duplicate batch.
	if _, err := svc.GenerateForSubscription(context.Background(), subID, items, cycleDate); !errors.Is(err, ErrDuplicateCycle) {
		t.Fatalf("expected ErrDuplicateCycle, got %v", err)
	}

	var count int64
	db.Model(&entity.ProductionTask{}).Where("subscription_id = ?", subID).Count(&count)
	if count != 10 {
		t.Errorf("expected task count unchanged at 10, got %d", count)
	}

	// A different cycle date for the same subscription generates again.
	if _, err := svc.GenerateForSubscription(context.Background(), subID, items, cycleDate.AddDate(0, 0, 7)); err != nil {
		t.Errorf("next cycle should generate: %v", err)
	}
}

func TestUpdateStatusEnforcesStateMachine(t *testing.T) {
	svc, _ := setupTaskTest(t)
	ctx := context.Background()

	tasks, err := svc.GenerateForOrder(ctx, uuid.New().String(), LineItem{ProductID: "radish-2oz", Quantity: 1}, time.Now().UTC().AddDate(0, 0, 12))
	if err != nil {
		t.Fatalf("GenerateForOrder failed: %v", err)
	}
	ready, pending := tasks[0], tasks[1]

	if err := svc.UpdateStatus(ctx, ready.ID, entity.TaskInProgress); err != nil {
		t.Fatalf("READY -> IN_PROGRESS failed: %v", err)
	}
	if err := svc.UpdateStatus(ctx, ready.ID, entity.TaskDone); err != nil {
		t.Fatalf("IN_PROGRESS -> DONE failed: %v", err)
	}
	// DONE is terminal.
	if err := svc.UpdateStatus(ctx, ready.ID, entity.TaskFailed); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from DONE, got %v", err)
	}

	// PENDING cannot jump straight to DONE, but may fail.
	if err := svc.UpdateStatus(ctx, pending.ID, entity.TaskDone); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for PENDING -> DONE, got %v", err)
	}
	if err := svc.UpdateStatus(ctx, pending.ID, entity.TaskFailed); err != nil {
		t.Errorf("PENDING -> FAILED should be allowed: %v", err)
	}
}

func TestPromoteDueIsIdempotent(t *testing.T) {
	svc, _ := setupTaskTest(t)
	ctx := context.Background()

	now := time.Now().UTC()
	// Pea chain seeded today: offsets 0/1/4/9/10. The offset-0 task is
	// already READY; five days in, offsets 1 and 4 are due.
	if _, err := svc.GenerateForOrder(ctx, uuid.New().String(), LineItem{ProductID: "pea-shoots-2oz", Quantity: 1}, now.AddDate(0, 0, 10)); err != nil {
		t.Fatalf("GenerateForOrder failed: %v", err)
	}

	promoted, err := svc.PromoteDue(ctx, now.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("PromoteDue failed: %v", err)
	}
	if promoted != 2 {
		t.Errorf("expected 2 promotions, got %d", promoted)
	}

	promoted, err = svc.PromoteDue(ctx, now.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("PromoteDue failed: %v", err)
	}
	if promoted != 0 {
		t.Errorf("expected repeat promotion to be a no-op, got %d", promoted)
	}
}

func TestTaskOriginMustBeExclusive(t *testing.T) {
	_, db := setupTaskTest(t)

	orderID := uuid.New().String()
	subID := uuid.New().String()
	task := entity.ProductionTask{
		ID:             uuid.New().String(),
		ProductID:      "radish-2oz",
		StageType:      catalog.StageSeed,
		RunAt:          time.Now(),
		Status:         entity.TaskReady,
		Priority:       entity.PriorityLow,
		Quantity:       1,
		OrderID:        &orderID,
		SubscriptionID: &subID,
	}
	if err := db.Create(&task).Error; err == nil {
		t.Fatal("expected save to reject a task referencing both order and subscription")
	}

	task.SubscriptionID = nil
	task.OrderID = nil
	if err := db.Create(&task).Error; err == nil {
		t.Fatal("expected save to reject a task referencing neither order nor subscription")
	}
}

func TestListOrdersByPriorityThenRunAt(t *testing.T) {
	svc, _ := setupTaskTest(t)
	ctx := context.Background()

	// Two chains with different urgency; the closer delivery ranks first.
	if _, err := svc.GenerateForOrder(ctx, uuid.New().String(), LineItem{ProductID: "radish-2oz", Quantity: 1}, time.Now().UTC().AddDate(0, 0, 8)); err != nil {
		t.Fatalf("GenerateForOrder failed: %v", err)
	}
	if _, err := svc.GenerateForOrder(ctx, uuid.New().String(), LineItem{ProductID: "radish-2oz", Quantity: 1}, time.Now().UTC().AddDate(0, 0, 20)); err != nil {
		t.Fatalf("GenerateForOrder failed: %v", err)
	}

	tasks, err := svc.List(ctx, repository.TaskListParams{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tasks) != 10 {
		t.Fatalf("expected 10 tasks, got %d", len(tasks))
	}
	prevRank := tasks[0].Priority.Rank()
	for _, task := range tasks[1:] {
		rank := task.Priority.Rank()
		if rank > prevRank {
			t.Fatal("tasks not sorted by priority descending")
		}
		prevRank = rank
	}
	if tasks[0].Priority != entity.PriorityMedium {
		t.Errorf("expected the 8-day chain (MEDIUM) first, got %s", tasks[0].Priority)
	}
}
