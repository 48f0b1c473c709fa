package repository

import (
	"context"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *entity.Subscription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(sub).Error
	})
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*entity.Subscription, error) {
	var sub entity.Subscription
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListDue 下一周期时间已到的活跃订阅
func (r *SubscriptionRepository) ListDue(ctx context.Context, now time.Time) ([]entity.Subscription, error) {
	var subs []entity.Subscription
	err := r.db.WithContext(ctx).Preload("Items").
		Where("status = ? AND next_cycle_at <= ?", entity.SubscriptionActive, now).
		Find(&subs).Error
	return subs, err
}

// AdvanceCycle 推进到下一周期时间点
func (r *SubscriptionRepository) AdvanceCycle(ctx context.Context, id string, next time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"next_cycle_at": next, "updated_at": time.Now()}).Error
}

// QuantityOnDate 某配送日内活跃订阅行项的件数之和
func (r *SubscriptionRepository) QuantityOnDate(ctx context.Context, dayStart, dayEnd time.Time) (int, error) {
	var result struct{ Total int }
	err := r.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(si.quantity), 0) AS total
		 FROM subscription_items si
		 JOIN subscriptions s ON s.id = si.subscription_id
		 WHERE s.status = ? AND s.next_cycle_at >= ? AND s.next_cycle_at < ?`,
		entity.SubscriptionActive, dayStart, dayEnd,
	).Scan(&result).Error
	return result.Total, err
}

// UpdateStatus 订阅状态迁移
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id string, status entity.SubscriptionStatus) error {
	return r.db.WithContext(ctx).Model(&entity.Subscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}
