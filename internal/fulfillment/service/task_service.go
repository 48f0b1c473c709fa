package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	catalog "github.com/geoffdsims/chefpax-sub000/internal/catalog/entity"
	catalogsvc "github.com/geoffdsims/chefpax-sub000/internal/catalog/service"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskService struct {
	taskRepo *repository.TaskRepository
	catalog  *catalogsvc.CatalogService
	logger   *zap.Logger
}

func NewTaskService(taskRepo *repository.TaskRepository, catalog *catalogsvc.CatalogService, logger *zap.Logger) *TaskService {
	return &TaskService{taskRepo: taskRepo, catalog: catalog, logger: logger}
}

// LineItem 订单/订阅行项
type LineItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// GenerateForOrder 为已确认订单行项生成整条生产任务链。
// 产品缺失立刻失败，该行项不落任何任务；同一行项的阶段任务整批一个事务写入。
func (s *TaskService) GenerateForOrder(ctx context.Context, orderID string, item LineItem, deliveryDate time.Time) ([]entity.ProductionTask, error) {
	tasks, err := s.buildChain(ctx, entity.OrderOrigin(orderID), item, deliveryDate, "")
	if err != nil {
		return nil, err
	}
	if err := s.taskRepo.CreateBatch(ctx, tasks); err != nil {
		return nil, fmt.Errorf("persist task chain: %w", err)
	}
	s.logger.Info("generated production tasks",
		zap.String("order_id", orderID),
		zap.String("product_id", item.ProductID),
		zap.Int("stages", len(tasks)),
	)
	return tasks, nil
}

// GenerateForSubscription 订阅变体：任务来源换成订阅引用、备注加订阅前缀。
// 整个周期的全部行项与周期记录在同一事务写入；同一 (订阅, 周期日) 的重复生成
// 被唯一索引挡下，返回 ErrDuplicateCycle 供调用方按幂等空操作处理。
func (s *TaskService) GenerateForSubscription(ctx context.Context, subscriptionID string, items []LineItem, cycleDate time.Time) ([]entity.ProductionTask, error) {
	dateKey := entity.DateKey(cycleDate)
	exists, err := s.taskRepo.CycleExists(ctx, subscriptionID, dateKey)
	if err != nil {
		return nil, fmt.Errorf("check cycle: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: subscription %s cycle %s", ErrDuplicateCycle, subscriptionID, dateKey)
	}

	var tasks []entity.ProductionTask
	for _, item := range items {
		chain, err := s.buildChain(ctx, entity.SubscriptionOrigin(subscriptionID), item, cycleDate, "[subscription] ")
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, chain...)
	}
	cycle := &entity.SubscriptionCycle{
		ID:             uuid.New().String(),
		SubscriptionID: subscriptionID,
		CycleDate:      dateKey,
	}
	if err := s.taskRepo.CreateBatchWithCycle(ctx, tasks, cycle); err != nil {
		if isDuplicateErr(err) {
			// 并发下两个生成者同时通过了存在性检查，索引兜底
			return nil, fmt.Errorf("%w: subscription %s cycle %s", ErrDuplicateCycle, subscriptionID, dateKey)
		}
		return nil, fmt.Errorf("persist subscription task chain: %w", err)
	}
	return tasks, nil
}

// buildChain 按阶段链生成任务：runAt = 播种日 + 阶段偏移，
// 播种日 = 交付日 − 生长周期；偏移为 0 的播种任务立即可执行（READY），
// 其余为 PENDING，到点由时间驱动自动置 READY。
func (s *TaskService) buildChain(ctx context.Context, origin entity.TaskOrigin, item LineItem, deliveryDate time.Time, notesPrefix string) ([]entity.ProductionTask, error) {
	product, err := s.catalog.Get(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if item.Quantity <= 0 {
		return nil, fmt.Errorf("invalid quantity %d for product %s", item.Quantity, item.ProductID)
	}

	now := time.Now()
	seedDate := deliveryDate.AddDate(0, 0, -product.LeadTimeDays)
	priority := entity.PriorityForDelivery(now, deliveryDate)

	tasks := make([]entity.ProductionTask, 0, len(product.Stages))
	for _, stage := range product.Stages {
		status := entity.TaskPending
		if stage.OffsetDays == 0 {
			status = entity.TaskReady
		}
		task := entity.ProductionTask{
			ID:        uuid.New().String(),
			ProductID: product.ID,
			StageType: stage.StageType,
			RunAt:     seedDate.AddDate(0, 0, stage.OffsetDays),
			Status:    status,
			Priority:  priority,
			Quantity:  item.Quantity,
			Notes:     notesPrefix + stage.Notes,
		}
		if err := task.SetOrigin(origin); err != nil {
			return nil, err
		}
		if stage.StageType == catalog.StagePack {
			// 打包任务附带标签载荷，供下游打印；只是附加数据，不参与排期
			task.LabelPayload = entity.JSON{
				"sku":       product.ID,
				"batch_key": entity.DateKey(deliveryDate) + ":" + product.ID,
				"origin":    string(origin.Kind),
				"ref":       origin.ID,
			}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// List 生产任务查询，固定按 (priority desc, run_at asc) 排序
func (s *TaskService) List(ctx context.Context, params repository.TaskListParams) ([]entity.ProductionTask, error) {
	return s.taskRepo.List(ctx, params)
}

// UpdateStatus 执行状态机迁移；任意非终态可直接置 FAILED（外部信号）
func (s *TaskService) UpdateStatus(ctx context.Context, id string, to entity.TaskStatus) error {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find task: %w", err)
	}
	if !task.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, task.Status, to)
	}
	moved, err := s.taskRepo.UpdateStatus(ctx, id, task.Status, to)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if !moved {
		// 读到的状态已被并发更新，按迁移冲突上报
		return fmt.Errorf("%w: task %s changed concurrently", ErrInvalidTransition, id)
	}
	return nil
}

// PromoteDue 时间驱动的 PENDING → READY 批量迁移，由定时任务调用
func (s *TaskService) PromoteDue(ctx context.Context, now time.Time) (int64, error) {
	promoted, err := s.taskRepo.PromoteDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("promote due tasks: %w", err)
	}
	if promoted > 0 {
		s.logger.Info("promoted due tasks", zap.Int64("count", promoted))
	}
	return promoted, nil
}

func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
