package repository

import (
	"context"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"gorm.io/gorm"
)

type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Create(ctx context.Context, job *entity.DeliveryJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *DeliveryRepository) FindByID(ctx context.Context, id string) (*entity.DeliveryJob, error) {
	var job entity.DeliveryJob
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *DeliveryRepository) FindByOrder(ctx context.Context, orderID string) (*entity.DeliveryJob, error) {
	var job entity.DeliveryJob
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// AppendWebhook 追加回调事件并更新状态；历史只增不改，整个读改写在一个事务内
func (r *DeliveryRepository) AppendWebhook(ctx context.Context, id string, status entity.DeliveryStatus, event map[string]interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job entity.DeliveryJob
		if err := tx.Where("id = ?", id).First(&job).Error; err != nil {
			return err
		}
		job.WebhookHistory = append(job.WebhookHistory, event)
		return tx.Model(&entity.DeliveryJob{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":          status,
				"webhook_history": job.WebhookHistory,
				"updated_at":      time.Now(),
			}).Error
	})
}
