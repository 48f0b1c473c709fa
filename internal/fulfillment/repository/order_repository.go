package repository

import (
	"context"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create 创建订单及行项（同一事务）
func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus 订单状态迁移
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status entity.OrderStatus) error {
	return r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}

// QuantityOnDate 某配送日内全部已确认订单的件数之和
func (r *OrderRepository) QuantityOnDate(ctx context.Context, dayStart, dayEnd time.Time) (int, error) {
	var result struct{ Total int }
	err := r.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(oi.quantity), 0) AS total
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 WHERE o.delivery_date >= ? AND o.delivery_date < ? AND o.status IN ?`,
		dayStart, dayEnd, []entity.OrderStatus{entity.OrderPending, entity.OrderConfirmed},
	).Scan(&result).Error
	return result.Total, err
}
