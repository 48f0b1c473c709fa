package repository

import (
	"context"

	"github.com/geoffdsims/chefpax-sub000/internal/catalog/entity"
	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindByID 按 SKU 查询产品（含阶段链，按 seq 排序）
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var product entity.Product
	err := r.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs 批量查询，结果按传入 ID 建索引
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	var products []entity.Product
	err := r.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]*entity.Product, len(products))
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

// List 产品列表，activeOnly 为 true 时仅返回在售产品
func (r *ProductRepository) List(ctx context.Context, activeOnly bool) ([]entity.Product, error) {
	query := r.db.WithContext(ctx).
		Preload("Stages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") })
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var products []entity.Product
	err := query.Order("name ASC").Find(&products).Error
	return products, err
}

// Create 创建产品及其阶段链（同一事务）
func (r *ProductRepository) Create(ctx context.Context, product *entity.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(product).Error
	})
}

// Upsert 按 ID 覆盖写入，用于目录初始化
func (r *ProductRepository) Upsert(ctx context.Context, product *entity.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entity.Product{}).Where("id = ?", product.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Create(product).Error
	})
}

// ListVarietiesInMix 参与混装产品的品种列表
func (r *ProductRepository) ListVarietiesInMix(ctx context.Context) ([]string, error) {
	var varieties []string
	err := r.db.WithContext(ctx).Model(&entity.Product{}).
		Where("in_mix = ? AND active = ?", true, true).
		Distinct().
		Pluck("variety", &varieties).Error
	return varieties, err
}
