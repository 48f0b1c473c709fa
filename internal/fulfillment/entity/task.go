package entity

import (
	"fmt"
	"time"

	catalog "github.com/geoffdsims/chefpax-sub000/internal/catalog/entity"
	"gorm.io/gorm"
)

// TaskStatus 生产任务状态机：PENDING → READY → IN_PROGRESS → DONE，
// FAILED 可由任意非终态进入。终态：DONE、FAILED。
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskReady      TaskStatus = "READY"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
	TaskFailed     TaskStatus = "FAILED"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskPending:    {TaskReady, TaskFailed},
	TaskReady:      {TaskInProgress, TaskFailed},
	TaskInProgress: {TaskDone, TaskFailed},
}

// Terminal 是否终态
func (s TaskStatus) Terminal() bool {
	return s == TaskDone || s == TaskFailed
}

// CanTransitionTo 状态迁移是否合法
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range taskTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TaskPriority 按生成时距交付日的天数分档
type TaskPriority string

const (
	PriorityUrgent TaskPriority = "URGENT"
	PriorityHigh   TaskPriority = "HIGH"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityLow    TaskPriority = "LOW"
)

// Rank 排序用，数值越大越紧急
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// PriorityForDelivery 分档为阶梯函数，边界取严格小于，压线按更紧急档处理
func PriorityForDelivery(now, deliveryDate time.Time) TaskPriority {
	days := deliveryDate.Sub(now).Hours() / 24
	switch {
	case days < 3:
		return PriorityUrgent
	case days < 7:
		return PriorityHigh
	case days < 14:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// OriginKind 任务来源类型
type OriginKind string

const (
	OriginOrder        OriginKind = "ORDER"
	OriginSubscription OriginKind = "SUBSCRIPTION"
)

// TaskOrigin 任务来源：订单或订阅，二者互斥。
// 持久化为两个可空列，但构造路径只接受本类型，XOR 在 BeforeSave 再次校验。
type TaskOrigin struct {
	Kind OriginKind
	ID   string
}

// OrderOrigin 订单来源
func OrderOrigin(orderID string) TaskOrigin {
	return TaskOrigin{Kind: OriginOrder, ID: orderID}
}

// SubscriptionOrigin 订阅来源
func SubscriptionOrigin(subscriptionID string) TaskOrigin {
	return TaskOrigin{Kind: OriginSubscription, ID: subscriptionID}
}

// ProductionTask 由订单/订阅行项生成的生产任务，一个阶段一条；只标记终态，从不删除
type ProductionTask struct {
	ID             string            `json:"id" gorm:"primaryKey;size:64"`
	ProductID      string            `json:"product_id" gorm:"size:64;not null;index"`
	OrderID        *string           `json:"order_id,omitempty" gorm:"size:64;index"`
	SubscriptionID *string           `json:"subscription_id,omitempty" gorm:"size:64;index"`
	StageType      catalog.StageType `json:"stage_type" gorm:"size:16;not null"`
	RunAt          time.Time         `json:"run_at" gorm:"not null;index"`
	Status         TaskStatus        `json:"status" gorm:"size:16;not null;default:PENDING;index"`
	Priority       TaskPriority      `json:"priority" gorm:"size:16;not null;default:LOW"`
	Quantity       int               `json:"quantity" gorm:"not null;default:1"`
	Notes          string            `json:"notes" gorm:"type:text"`
	LabelPayload   JSON              `json:"label_payload,omitempty" gorm:"type:jsonb"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (ProductionTask) TableName() string {
	return "production_tasks"
}

// SetOrigin 写入来源引用，清空另一侧
func (t *ProductionTask) SetOrigin(origin TaskOrigin) error {
	switch origin.Kind {
	case OriginOrder:
		t.OrderID = &origin.ID
		t.SubscriptionID = nil
	case OriginSubscription:
		t.SubscriptionID = &origin.ID
		t.OrderID = nil
	default:
		return fmt.Errorf("unknown task origin kind %q", origin.Kind)
	}
	return nil
}

// Origin 读取来源引用
func (t *ProductionTask) Origin() (TaskOrigin, error) {
	switch {
	case t.OrderID != nil && t.SubscriptionID == nil:
		return TaskOrigin{Kind: OriginOrder, ID: *t.OrderID}, nil
	case t.SubscriptionID != nil && t.OrderID == nil:
		return TaskOrigin{Kind: OriginSubscription, ID: *t.SubscriptionID}, nil
	default:
		return TaskOrigin{}, fmt.Errorf("task %s: origin must reference exactly one of order or subscription", t.ID)
	}
}

// BeforeSave 落库前校验来源互斥
func (t *ProductionTask) BeforeSave(*gorm.DB) error {
	_, err := t.Origin()
	return err
}
