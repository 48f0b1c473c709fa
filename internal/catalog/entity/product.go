package entity

import (
	"fmt"
	"time"
)

// StageType 生长阶段类型（闭合枚举，顺序固定）
type StageType string

const (
	StageSeed      StageType = "SEED"
	StageGerminate StageType = "GERMINATE"
	StageLight     StageType = "LIGHT"
	StageHarvest   StageType = "HARVEST"
	StagePack      StageType = "PACK"
)

var stageOrder = map[StageType]int{
	StageSeed:      0,
	StageGerminate: 1,
	StageLight:     2,
	StageHarvest:   3,
	StagePack:      4,
}

// Valid 是否为已知阶段类型
func (s StageType) Valid() bool {
	_, ok := stageOrder[s]
	return ok
}

// Order 阶段在生长周期中的序号，未知类型返回 -1
func (s StageType) Order() int {
	if o, ok := stageOrder[s]; ok {
		return o
	}
	return -1
}

// TraySize 育苗盘规格
const (
	TraySize10x20 = "10x20"
	TraySize5x5   = "5x5"
)

// Product 可售产品（按周生产的活体/切割微菜）
type Product struct {
	ID             string      `json:"id" gorm:"primaryKey;size:64"`
	Name           string      `json:"name" gorm:"size:128;not null"`
	Variety        string      `json:"variety" gorm:"size:64;index"`
	TraySize       string      `json:"tray_size" gorm:"size:16;default:10x20"`
	PriceCents     int         `json:"price_cents" gorm:"not null;default:0"`
	LeadTimeDays   int         `json:"lead_time_days" gorm:"not null"`
	WeeklyCapacity int         `json:"weekly_capacity" gorm:"not null"`
	UnitSizeOz     float64     `json:"unit_size_oz" gorm:"type:decimal(8,2);default:2"`
	InMix          bool        `json:"in_mix" gorm:"default:false"`
	LiveTray       bool        `json:"live_tray" gorm:"default:false"`
	Active         bool        `json:"active" gorm:"default:true;index"`
	Stages         []GrowStage `json:"stages,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}

// GrowStage 产品生长周期中的一个阶段，OffsetDays 为距播种日的偏移
type GrowStage struct {
	ID           string    `json:"id" gorm:"primaryKey;size:64"`
	ProductID    string    `json:"product_id" gorm:"size:64;not null;index"`
	StageType    StageType `json:"stage_type" gorm:"size:16;not null"`
	OffsetDays   int       `json:"offset_days" gorm:"not null"`
	DurationDays int       `json:"duration_days" gorm:"default:0"`
	Notes        string    `json:"notes" gorm:"type:text"`
	Seq          int       `json:"seq" gorm:"not null;default:0"`
}

func (GrowStage) TableName() string {
	return "grow_stages"
}

// ValidateStages 校验阶段链不变量：
// 恰好一个 SEED 且偏移为 0；偏移按阶段顺序非递减；末段偏移不超过交付周期；PACK 只能是终段。
func (p *Product) ValidateStages() error {
	if len(p.Stages) == 0 {
		return fmt.Errorf("product %s: stage list is empty", p.ID)
	}
	seedCount := 0
	prevOffset := 0
	for i, st := range p.Stages {
		if !st.StageType.Valid() {
			return fmt.Errorf("product %s: unknown stage type %q", p.ID, st.StageType)
		}
		if st.StageType == StageSeed {
			seedCount++
			if st.OffsetDays != 0 {
				return fmt.Errorf("product %s: SEED stage must be at offset 0, got %d", p.ID, st.OffsetDays)
			}
		}
		if st.StageType == StagePack && i != len(p.Stages)-1 {
			return fmt.Errorf("product %s: PACK must be the terminal stage", p.ID)
		}
		if i > 0 {
			if st.StageType.Order() <= p.Stages[i-1].StageType.Order() {
				return fmt.Errorf("product %s: stages out of order at index %d", p.ID, i)
			}
			if st.OffsetDays < prevOffset {
				return fmt.Errorf("product %s: stage offsets must be non-decreasing, %d < %d", p.ID, st.OffsetDays, prevOffset)
			}
		}
		prevOffset = st.OffsetDays
	}
	if seedCount != 1 {
		return fmt.Errorf("product %s: expected exactly one SEED stage, got %d", p.ID, seedCount)
	}
	if last := p.Stages[len(p.Stages)-1].OffsetDays; last > p.LeadTimeDays {
		return fmt.Errorf("product %s: final stage offset %d exceeds lead time %d", p.ID, last, p.LeadTimeDays)
	}
	return nil
}
