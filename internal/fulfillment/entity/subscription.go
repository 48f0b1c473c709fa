package entity

import (
	"time"
)

// SubscriptionFrequency 订阅周期，按固定天数递增（月付固定 30 天，不做日历月运算）
type SubscriptionFrequency string

const (
	FrequencyWeekly   SubscriptionFrequency = "WEEKLY"
	FrequencyBiweekly SubscriptionFrequency = "BIWEEKLY"
	FrequencyMonthly  SubscriptionFrequency = "MONTHLY"
)

// Days 周期对应的固定天数
func (f SubscriptionFrequency) Days() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyBiweekly:
		return 14
	case FrequencyMonthly:
		return 30
	}
	return 0
}

// SubscriptionStatus 订阅状态
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionPaused    SubscriptionStatus = "PAUSED"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
)

// Subscription 周期性订单
type Subscription struct {
	ID          string                `json:"id" gorm:"primaryKey;size:64"`
	CustomerRef string                `json:"customer_ref" gorm:"size:128;index"`
	Frequency   SubscriptionFrequency `json:"frequency" gorm:"size:16;not null"`
	Status      SubscriptionStatus    `json:"status" gorm:"size:16;not null;default:ACTIVE;index"`
	NextCycleAt time.Time             `json:"next_cycle_at" gorm:"not null;index"`
	Items       []SubscriptionItem    `json:"items,omitempty" gorm:"foreignKey:SubscriptionID"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// SubscriptionItem 订阅行项
type SubscriptionItem struct {
	ID             string `json:"id" gorm:"primaryKey;size:64"`
	SubscriptionID string `json:"subscription_id" gorm:"size:64;not null;index"`
	ProductID      string `json:"product_id" gorm:"size:64;not null;index"`
	Quantity       int    `json:"quantity" gorm:"not null"`
}

func (SubscriptionItem) TableName() string {
	return "subscription_items"
}

// SubscriptionCycle 每个订阅周期一条，唯一索引防止同一周期重复生成任务
type SubscriptionCycle struct {
	ID             string    `json:"id" gorm:"primaryKey;size:64"`
	SubscriptionID string    `json:"subscription_id" gorm:"size:64;not null;uniqueIndex:idx_sub_cycle"`
	CycleDate      string    `json:"cycle_date" gorm:"size:10;not null;uniqueIndex:idx_sub_cycle"`
	CreatedAt      time.Time `json:"created_at"`
}

func (SubscriptionCycle) TableName() string {
	return "subscription_cycles"
}
