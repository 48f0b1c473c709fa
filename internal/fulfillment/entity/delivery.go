package entity

import (
	"time"
)

// DeliveryStatus 配送状态机：REQUESTED → SCHEDULED → PICKED_UP → IN_TRANSIT → DELIVERED，
// FAILED 可由任意非终态进入。
type DeliveryStatus string

const (
	DeliveryRequested DeliveryStatus = "REQUESTED"
	DeliveryScheduled DeliveryStatus = "SCHEDULED"
	DeliveryPickedUp  DeliveryStatus = "PICKED_UP"
	DeliveryInTransit DeliveryStatus = "IN_TRANSIT"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryFailed    DeliveryStatus = "FAILED"
)

var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryRequested: {DeliveryScheduled, DeliveryFailed},
	DeliveryScheduled: {DeliveryPickedUp, DeliveryFailed},
	DeliveryPickedUp:  {DeliveryInTransit, DeliveryFailed},
	DeliveryInTransit: {DeliveryDelivered, DeliveryFailed},
}

// Terminal 是否终态
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryFailed
}

// CanTransitionTo 状态迁移是否合法
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	for _, allowed := range deliveryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DeliveryJob 每单一条，记录配送方式与承运方回调历史（仅追加）
type DeliveryJob struct {
	ID             string         `json:"id" gorm:"primaryKey;size:64"`
	OrderID        string         `json:"order_id" gorm:"size:64;not null;uniqueIndex"`
	Method         string         `json:"method" gorm:"size:32;not null;default:courier"`
	Address        string         `json:"address" gorm:"size:512"`
	DeliveryDate   string         `json:"delivery_date" gorm:"size:10;not null;index"`
	Status         DeliveryStatus `json:"status" gorm:"size:16;not null;default:REQUESTED;index"`
	WebhookHistory JSONList       `json:"webhook_history,omitempty" gorm:"type:jsonb"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (DeliveryJob) TableName() string {
	return "delivery_jobs"
}
