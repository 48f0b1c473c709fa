package entity

import (
	"time"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderFulfilled OrderStatus = "FULFILLED"
)

// Order 已下单的客户订单，支付确认后进入 CONFIRMED 并触发任务生成
type Order struct {
	ID           string      `json:"id" gorm:"primaryKey;size:64"`
	CustomerRef  string      `json:"customer_ref" gorm:"size:128;index"`
	DeliveryDate time.Time   `json:"delivery_date" gorm:"not null;index"`
	Status       OrderStatus `json:"status" gorm:"size:16;not null;default:PENDING;index"`
	TotalCents   int         `json:"total_cents" gorm:"default:0"`
	Items        []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem 订单行项
type OrderItem struct {
	ID        string `json:"id" gorm:"primaryKey;size:64"`
	OrderID   string `json:"order_id" gorm:"size:64;not null;index"`
	ProductID string `json:"product_id" gorm:"size:64;not null;index"`
	Quantity  int    `json:"quantity" gorm:"not null"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
