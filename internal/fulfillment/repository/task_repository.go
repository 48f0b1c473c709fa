package repository

import (
	"context"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"gorm.io/gorm"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreateBatch 同一行项的阶段任务整批落库，避免读到半截任务链
func (r *TaskRepository) CreateBatch(ctx context.Context, tasks []entity.ProductionTask) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&tasks).Error
	})
}

// CreateBatchWithCycle 订阅变体：任务链与周期记录同一事务写入，
// 周期唯一索引冲突即同周期已生成过，由调用方按幂等处理
func (r *TaskRepository) CreateBatchWithCycle(ctx context.Context, tasks []entity.ProductionTask, cycle *entity.SubscriptionCycle) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cycle).Error; err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		return tx.Create(&tasks).Error
	})
}

// CycleExists 该订阅周期是否已生成过任务
func (r *TaskRepository) CycleExists(ctx context.Context, subscriptionID, cycleDate string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.SubscriptionCycle{}).
		Where("subscription_id = ? AND cycle_date = ?", subscriptionID, cycleDate).
		Count(&count).Error
	return count > 0, err
}

func (r *TaskRepository) FindByID(ctx context.Context, id string) (*entity.ProductionTask, error) {
	var task entity.ProductionTask
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// TaskListParams 任务查询参数
type TaskListParams struct {
	Status    entity.TaskStatus
	ProductID string
	OrderID   string
	Due       *time.Time // 只要 run_at 不晚于该时刻的任务
	Limit     int
}

// List 任务列表，按 (priority desc, run_at asc) 排序
func (r *TaskRepository) List(ctx context.Context, params TaskListParams) ([]entity.ProductionTask, error) {
	query := r.db.WithContext(ctx).Model(&entity.ProductionTask{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.ProductID != "" {
		query = query.Where("product_id = ?", params.ProductID)
	}
	if params.OrderID != "" {
		query = query.Where("order_id = ?", params.OrderID)
	}
	if params.Due != nil {
		query = query.Where("run_at <= ?", *params.Due)
	}
	if params.Limit <= 0 {
		params.Limit = 200
	}
	var tasks []entity.ProductionTask
	err := query.
		Order(priorityRankSQL + " DESC").
		Order("run_at ASC").
		Limit(params.Limit).
		Find(&tasks).Error
	return tasks, err
}

// priority 列存的是档位名，排序时映射回數值；CASE 写法在 postgres 与 sqlite 下行为一致
const priorityRankSQL = `CASE priority
	WHEN 'URGENT' THEN 4
	WHEN 'HIGH' THEN 3
	WHEN 'MEDIUM' THEN 2
	ELSE 1 END`

// UpdateStatus 更新任务状态；from 谓词防止越过状态机写入
func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, from, to entity.TaskStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.ProductionTask{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	return result.RowsAffected > 0, result.Error
}

// PromoteDue 把 run_at 已到的 PENDING 任务批量置为 READY（时间驱动的自动迁移）
func (r *TaskRepository) PromoteDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.ProductionTask{}).
		Where("status = ? AND run_at <= ?", entity.TaskPending, now).
		Updates(map[string]interface{}{"status": entity.TaskReady, "updated_at": now})
	return result.RowsAffected, result.Error
}
