package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/geoffdsims/chefpax-sub000/internal/catalog/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/catalog/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrProductNotFound 产品不存在（数据完整性错误，区别于排期失败）
var ErrProductNotFound = errors.New("product not found")

type CatalogService struct {
	repo *repository.ProductRepository
}

func NewCatalogService(repo *repository.ProductRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// Get 获取产品详情
func (s *CatalogService) Get(ctx context.Context, id string) (*entity.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return product, nil
}

// GetMany 批量获取，任一缺失即报错（调用方依赖完整目录做捆绑校验）
func (s *CatalogService) GetMany(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	products, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
	}
	return products, nil
}

// List 产品列表
func (s *CatalogService) List(ctx context.Context, activeOnly bool) ([]entity.Product, error) {
	return s.repo.List(ctx, activeOnly)
}

// MixVarieties 参与混装的品种
func (s *CatalogService) MixVarieties(ctx context.Context) ([]string, error) {
	return s.repo.ListVarietiesInMix(ctx)
}

// CreateProductRequest 创建产品请求
type CreateProductRequest struct {
	ID             string         `json:"id" binding:"required"`
	Name           string         `json:"name" binding:"required"`
	Variety        string         `json:"variety"`
	TraySize       string         `json:"tray_size"`
	PriceCents     int            `json:"price_cents"`
	LeadTimeDays   int            `json:"lead_time_days" binding:"required,gt=0"`
	WeeklyCapacity int            `json:"weekly_capacity" binding:"required,gt=0"`
	UnitSizeOz     float64        `json:"unit_size_oz"`
	InMix          bool           `json:"in_mix"`
	LiveTray       bool           `json:"live_tray"`
	Stages         []StageRequest `json:"stages" binding:"required,min=1"`
}

type StageRequest struct {
	StageType    entity.StageType `json:"stage_type" binding:"required"`
	OffsetDays   int              `json:"offset_days"`
	DurationDays int              `json:"duration_days"`
	Notes        string           `json:"notes"`
}

// Create 创建产品，先校验阶段链不变量再落库
func (s *CatalogService) Create(ctx context.Context, req *CreateProductRequest) (*entity.Product, error) {
	product := &entity.Product{
		ID:             req.ID,
		Name:           req.Name,
		Variety:        req.Variety,
		TraySize:       req.TraySize,
		PriceCents:     req.PriceCents,
		LeadTimeDays:   req.LeadTimeDays,
		WeeklyCapacity: req.WeeklyCapacity,
		UnitSizeOz:     req.UnitSizeOz,
		InMix:          req.InMix,
		LiveTray:       req.LiveTray,
		Active:         true,
	}
	if product.TraySize == "" {
		product.TraySize = entity.TraySize10x20
	}
	if product.UnitSizeOz <= 0 {
		product.UnitSizeOz = 2
	}
	for i, st := range req.Stages {
		product.Stages = append(product.Stages, entity.GrowStage{
			ID:           uuid.New().String(),
			ProductID:    product.ID,
			StageType:    st.StageType,
			OffsetDays:   st.OffsetDays,
			DurationDays: st.DurationDays,
			Notes:        st.Notes,
			Seq:          i,
		})
	}
	if err := product.ValidateStages(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

// EnsureDefaultCatalog 初始化默认产品目录（已存在的 SKU 不覆盖）
func (s *CatalogService) EnsureDefaultCatalog(ctx context.Context) error {
	for _, p := range defaultCatalog() {
		product := p
		if err := product.ValidateStages(); err != nil {
			return err
		}
		if err := s.repo.Upsert(ctx, &product); err != nil {
			return fmt.Errorf("seed product %s: %w", product.ID, err)
		}
	}
	return nil
}

func stages(productID string, offsets [5]int) []entity.GrowStage {
	types := [5]entity.StageType{entity.StageSeed, entity.StageGerminate, entity.StageLight, entity.StageHarvest, entity.StagePack}
	out := make([]entity.GrowStage, 0, 5)
	for i, t := range types {
		out = append(out, entity.GrowStage{
			ID:         uuid.New().String(),
			ProductID:  productID,
			StageType:  t,
			OffsetDays: offsets[i],
			Seq:        i,
		})
	}
	return out
}

// defaultCatalog 默认 SKU，产能与周期来自每周播种计划
func defaultCatalog() []entity.Product {
	return []entity.Product{
		{
			ID: "chefpax-mix-4oz", Name: "ChefPax Mix 4oz", Variety: "mix",
			TraySize: entity.TraySize10x20, PriceCents: 1200, LeadTimeDays: 10,
			WeeklyCapacity: 30, UnitSizeOz: 4, Active: true,
			Stages: stages("chefpax-mix-4oz", [5]int{0, 1, 4, 9, 10}),
		},
		{
			ID: "pea-shoots-2oz", Name: "Pea Shoots 2oz", Variety: "pea",
			TraySize: entity.TraySize10x20, PriceCents: 700, LeadTimeDays: 10,
			WeeklyCapacity: 24, UnitSizeOz: 2, InMix: true, Active: true,
			Stages: stages("pea-shoots-2oz", [5]int{0, 1, 4, 9, 10}),
		},
		{
			ID: "sunflower-2oz", Name: "Sunflower Shoots 2oz", Variety: "sunflower",
			TraySize: entity.TraySize10x20, PriceCents: 700, LeadTimeDays: 9,
			WeeklyCapacity: 24, UnitSizeOz: 2, InMix: true, Active: true,
			Stages: stages("sunflower-2oz", [5]int{0, 1, 3, 8, 9}),
		},
		{
			ID: "radish-2oz", Name: "Rambo Radish 2oz", Variety: "radish",
			TraySize: entity.TraySize10x20, PriceCents: 650, LeadTimeDays: 7,
			WeeklyCapacity: 20, UnitSizeOz: 2, InMix: true, Active: true,
			Stages: stages("radish-2oz", [5]int{0, 1, 3, 6, 7}),
		},
		{
			ID: "broccoli-2oz", Name: "Broccoli 2oz", Variety: "broccoli",
			TraySize: entity.TraySize10x20, PriceCents: 650, LeadTimeDays: 8,
			WeeklyCapacity: 20, UnitSizeOz: 2, InMix: true, Active: true,
			Stages: stages("broccoli-2oz", [5]int{0, 1, 3, 7, 8}),
		},
		{
			ID: "pea-live-tray", Name: "Pea Shoots Live Tray", Variety: "pea",
			TraySize: entity.TraySize10x20, PriceCents: 2500, LeadTimeDays: 10,
			WeeklyCapacity: 6, UnitSizeOz: 10, LiveTray: true, Active: true,
			Stages: stages("pea-live-tray", [5]int{0, 1, 4, 9, 10}),
		},
		{
			ID: "micro-sampler-5x5", Name: "Micro Sampler 5x5 Tray", Variety: "mix",
			TraySize: entity.TraySize5x5, PriceCents: 1500, LeadTimeDays: 8,
			WeeklyCapacity: 10, UnitSizeOz: 5, LiveTray: true, Active: true,
			Stages: stages("micro-sampler-5x5", [5]int{0, 1, 3, 7, 8}),
		},
	}
}
