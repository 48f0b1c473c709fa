package repository

import (
	"context"
	"errors"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"gorm.io/gorm"
)

// ErrSlotFull 谓词更新未命中任何行，即该 (产品, 配送日) 容量不足
var ErrSlotFull = errors.New("capacity slot full")

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// SlotCapacity 单个产品在某配送日的容量视图
type SlotCapacity struct {
	ProductID string `json:"product_id"`
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Reserved  int    `json:"reserved"`
	Available int    `json:"available"`
}

// ReserveLine 待预约的行项（capacity 为产品周容量，用于惰性建 slot 行）
type ReserveLine struct {
	ProductID string
	Quantity  int
	Capacity  int
}

// CreateReservation 全有或全无地创建预约：
// 对每个行项先确保 slot 行存在，再执行带谓词的扣减
//
//	UPDATE capacity_slots SET reserved_qty = reserved_qty + q
//	WHERE product_id = ? AND delivery_date = ? AND reserved_qty + q <= capacity
//
// 任一行项未命中（RowsAffected == 0）则整个事务回滚并返回 ErrSlotFull。
// 容量检查与写入在同一条 UPDATE 内完成，并发下由行锁串行化，
// 绝不在应用层做 read-then-write。
func (r *ReservationRepository) CreateReservation(ctx context.Context, res *entity.InventoryReservation, lines []ReserveLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			if err := ensureSlot(tx, line.ProductID, res.DeliveryDate, line.Capacity); err != nil {
				return err
			}
			result := tx.Exec(
				`UPDATE capacity_slots SET reserved_qty = reserved_qty + ?, updated_at = ?
				 WHERE product_id = ? AND delivery_date = ? AND reserved_qty + ? <= capacity`,
				line.Quantity, time.Now(), line.ProductID, res.DeliveryDate, line.Quantity,
			)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrSlotFull
			}
		}
		return tx.Create(res).Error
	})
}

func ensureSlot(tx *gorm.DB, productID, date string, capacity int) error {
	// 只按 (product_id, delivery_date) 查找；capacity 仅在首次建行时写入，
	// 行已存在时不改 capacity，产品容量调整不影响既有 slot
	var slot entity.CapacitySlot
	return tx.Where("product_id = ? AND delivery_date = ?", productID, date).
		Attrs(entity.CapacitySlot{
			ID:           productID + ":" + date,
			ProductID:    productID,
			DeliveryDate: date,
			Capacity:     capacity,
		}).
		FirstOrCreate(&slot).Error
}

// FindByID 查询预约（含行项）
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*entity.InventoryReservation, error) {
	var res entity.InventoryReservation
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Transition 将预约从 active 迁移到目标状态并归还容量。
// 状态列上的谓词保证迁移幂等：已不是 active 时整个操作是无害的空操作。
func (r *ReservationRepository) Transition(ctx context.Context, id string, to entity.ReservationStatus) (bool, error) {
	var moved bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.InventoryReservation{}).
			Where("id = ? AND status = ?", id, entity.ReservationActive).
			Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		moved = true

		var res entity.InventoryReservation
		if err := tx.Preload("Items").Where("id = ?", id).First(&res).Error; err != nil {
			return err
		}
		for _, item := range res.Items {
			result := tx.Exec(
				`UPDATE capacity_slots SET reserved_qty = reserved_qty - ?, updated_at = ?
				 WHERE product_id = ? AND delivery_date = ? AND reserved_qty - ? >= 0`,
				item.Quantity, time.Now(), item.ProductID, res.DeliveryDate, item.Quantity,
			)
			if result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	return moved, err
}

// ListStale 到期仍为 active 的预约 ID
func (r *ReservationRepository) ListStale(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.InventoryReservation{}).
		Where("status = ? AND expires_at < ?", entity.ReservationActive, now).
		Pluck("id", &ids).Error
	return ids, err
}

// GetSlot 读取容量视图；slot 行尚未建立时 reserved 记 0
func (r *ReservationRepository) GetSlot(ctx context.Context, productID, date string, capacity int) (*SlotCapacity, error) {
	var slot entity.CapacitySlot
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND delivery_date = ?", productID, date).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &SlotCapacity{ProductID: productID, Date: date, Total: capacity, Reserved: 0, Available: capacity}, nil
		}
		return nil, err
	}
	return &SlotCapacity{
		ProductID: productID,
		Date:      date,
		Total:     slot.Capacity,
		Reserved:  slot.ReservedQty,
		Available: slot.Capacity - slot.ReservedQty,
	}, nil
}
