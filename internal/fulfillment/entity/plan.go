package entity

import (
	"time"
)

// WeeklyProductionPlan 每周播种计划（计算输入，不落库）。
// PodCount 为小盘播种数，FlatCount 为 10x20 标准盘播种数，
// LiveTrayReserved 为整盘活体预留数（整盘售出，不参与切割）。
type WeeklyProductionPlan struct {
	WeekOf    time.Time       `json:"week_of"`
	Varieties []VarietySowing `json:"varieties"`
}

// VarietySowing 单一品种的播种数量
type VarietySowing struct {
	Variety          string `json:"variety"`
	PodCount         int    `json:"pod_count"`
	FlatCount        int    `json:"flat_count"`
	LiveTrayReserved int    `json:"live_tray_reserved"`
}

// YieldBreakdown 周产量分解结果，重量单位为盎司
type YieldBreakdown struct {
	WeekOf         time.Time          `json:"week_of"`
	VarietyWeights map[string]float64 `json:"variety_weights"`
	PooledWeightOz float64            `json:"pooled_weight_oz"`
	MixWeightOz    float64            `json:"mix_weight_oz"`
	SingleWeightOz float64            `json:"single_weight_oz"`
	BufferWeightOz float64            `json:"buffer_weight_oz"`
	MixUnits       int                `json:"mix_units"`
	SingleUnits    map[string]int     `json:"single_units"`
	LiveTraysByVar map[string]int     `json:"live_trays_by_variety"`
}

// DeliveryOption 候选配送日（派生数据，不落库，按查询即时计算）
type DeliveryOption struct {
	Date         time.Time         `json:"date"`
	Available    bool              `json:"available"`
	CutoffTime   time.Time         `json:"cutoff_time"`
	CapacityUsed int               `json:"capacity_used"`
	CapacityMax  int               `json:"capacity_max"`
	Reasons      map[string]string `json:"reasons,omitempty"`
}
