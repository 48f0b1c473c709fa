package entity

import (
	"time"
)

// CapacitySlot 每个 (产品, 配送日) 一行，预约的容量检查与扣减都打在这一行上，
// 由带谓词的 UPDATE 串行化，保证并发下 reserved_qty 永不超过 capacity。
type CapacitySlot struct {
	ID           string    `json:"id" gorm:"primaryKey;size:64"`
	ProductID    string    `json:"product_id" gorm:"size:64;not null;uniqueIndex:idx_product_date"`
	DeliveryDate string    `json:"delivery_date" gorm:"size:10;not null;uniqueIndex:idx_product_date"`
	Capacity     int       `json:"capacity" gorm:"not null"`
	ReservedQty  int       `json:"reserved_qty" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (CapacitySlot) TableName() string {
	return "capacity_slots"
}

// ReservationStatus 预约生命周期：active → released 或 active → expired
type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "active"
	ReservationReleased ReservationStatus = "released"
	ReservationExpired  ReservationStatus = "expired"
)

// InventoryReservation 一次下单对应一条预约记录，覆盖全部行项；
// 到期未被下游确认则过期释放容量。
type InventoryReservation struct {
	ID           string            `json:"id" gorm:"primaryKey;size:64"`
	OrderRef     string            `json:"order_ref" gorm:"size:64;index"`
	DeliveryDate string            `json:"delivery_date" gorm:"size:10;not null;index"`
	Status       ReservationStatus `json:"status" gorm:"size:16;not null;default:active;index"`
	ExpiresAt    time.Time         `json:"expires_at" gorm:"not null;index"`
	Items        []ReservationItem `json:"items,omitempty" gorm:"foreignKey:ReservationID"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (InventoryReservation) TableName() string {
	return "inventory_reservations"
}

// ReservationItem 预约行项
type ReservationItem struct {
	ID            string `json:"id" gorm:"primaryKey;size:64"`
	ReservationID string `json:"reservation_id" gorm:"size:64;not null;index"`
	ProductID     string `json:"product_id" gorm:"size:64;not null;index"`
	Quantity      int    `json:"quantity" gorm:"not null"`
}

func (ReservationItem) TableName() string {
	return "reservation_items"
}

// DateKey 配送日统一用 UTC 日期字符串做键，避免时区参与比较
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
