package service

import (
	"context"
	"fmt"

	catalogsvc "github.com/geoffdsims/chefpax-sub000/internal/catalog/service"
	"github.com/geoffdsims/chefpax-sub000/internal/config"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/shopspring/decimal"
)

// varietyYield 每个播种单位的产出重量（盎司）。
// 数值来自称重记录的经验校准，不做推导；新品种先用 defaultYield 估算。
type varietyYield struct {
	PerPodOz  decimal.Decimal
	PerFlatOz decimal.Decimal
}

var varietyYields = map[string]varietyYield{
	"pea":       {PerPodOz: decimal.NewFromFloat(0.45), PerFlatOz: decimal.NewFromInt(10)},
	"sunflower": {PerPodOz: decimal.NewFromFloat(0.40), PerFlatOz: decimal.NewFromInt(9)},
	"radish":    {PerPodOz: decimal.NewFromFloat(0.35), PerFlatOz: decimal.NewFromInt(8)},
	"broccoli":  {PerPodOz: decimal.NewFromFloat(0.30), PerFlatOz: decimal.NewFromInt(7)},
}

var defaultYield = varietyYield{
	PerPodOz:  decimal.NewFromFloat(0.40),
	PerFlatOz: decimal.NewFromInt(8),
}

type YieldService struct {
	catalog *catalogsvc.CatalogService
	cfg     config.FulfillmentConfig
}

func NewYieldService(catalog *catalogsvc.CatalogService, cfg config.FulfillmentConfig) *YieldService {
	return &YieldService{catalog: catalog, cfg: cfg}
}

// ComputeWeeklyYield 根据每周播种计划计算可售产量。
// 活体整盘预留在汇入混装池之前扣除（整盘售出不切割，不能重复计数）；
// 剩余可切割重量按 mix/single/buffer 比例分配，buffer 部分永不可售；
// 盎司转件数一律向下取整，任何派生件数最低为 0。
func (s *YieldService) ComputeWeeklyYield(ctx context.Context, plan entity.WeeklyProductionPlan) (*entity.YieldBreakdown, error) {
	for _, v := range plan.Varieties {
		if v.PodCount < 0 || v.FlatCount < 0 || v.LiveTrayReserved < 0 {
			return nil, fmt.Errorf("%w: negative counts for variety %s", ErrInvalidPlan, v.Variety)
		}
	}

	mixVarieties, err := s.catalog.MixVarieties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mix varieties: %w", err)
	}
	inMix := make(map[string]bool, len(mixVarieties))
	for _, v := range mixVarieties {
		inMix[v] = true
	}

	breakdown := &entity.YieldBreakdown{
		WeekOf:         plan.WeekOf,
		VarietyWeights: make(map[string]float64),
		SingleUnits:    make(map[string]int),
		LiveTraysByVar: make(map[string]int),
	}

	// 每品种可切割重量 = 播种产出 − 活体整盘预留的重量当量
	cuttable := make(map[string]decimal.Decimal, len(plan.Varieties))
	pooled := decimal.Zero
	for _, v := range plan.Varieties {
		yield, ok := varietyYields[v.Variety]
		if !ok {
			yield = defaultYield
		}
		grown := yield.PerPodOz.Mul(decimal.NewFromInt(int64(v.PodCount))).
			Add(yield.PerFlatOz.Mul(decimal.NewFromInt(int64(v.FlatCount))))
		reserved := yield.PerFlatOz.Mul(decimal.NewFromInt(int64(v.LiveTrayReserved)))
		weight := grown.Sub(reserved)

		cuttable[v.Variety] = weight
		breakdown.VarietyWeights[v.Variety], _ = weight.Float64()
		breakdown.LiveTraysByVar[v.Variety] = v.LiveTrayReserved
		if inMix[v.Variety] || len(mixVarieties) == 0 {
			// 目录里没有混装品种时（如测试目录），全部品种参与池化
			pooled = pooled.Add(weight)
		}
	}

	// 过度预留可能使池化重量为负，此时一切派生件数收敛到 0
	if pooled.Sign() <= 0 {
		pooled = decimal.Zero
	}

	mixWeight := pooled.Mul(decimal.NewFromFloat(s.cfg.MixRatio))
	singleWeight := pooled.Mul(decimal.NewFromFloat(s.cfg.SingleRatio))
	bufferWeight := pooled.Sub(mixWeight).Sub(singleWeight)

	breakdown.PooledWeightOz, _ = pooled.Float64()
	breakdown.MixWeightOz, _ = mixWeight.Float64()
	breakdown.SingleWeightOz, _ = singleWeight.Float64()
	breakdown.BufferWeightOz, _ = bufferWeight.Float64()

	products, err := s.catalog.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	// 混装件数按混装产品的单件规格取整
	mixUnitOz := decimal.NewFromInt(4)
	unitByVariety := make(map[string]decimal.Decimal)
	for _, p := range products {
		if p.LiveTray {
			continue
		}
		if p.Variety == "mix" {
			mixUnitOz = decimal.NewFromFloat(p.UnitSizeOz)
			continue
		}
		unitByVariety[p.Variety] = decimal.NewFromFloat(p.UnitSizeOz)
	}
	breakdown.MixUnits = unitsFloor(mixWeight, mixUnitOz)

	// 单品份额按各品种可切割重量加权分配，再按品种单件规格取整
	totalCuttable := decimal.Zero
	for variety, w := range cuttable {
		if w.Sign() > 0 && (inMix[variety] || len(mixVarieties) == 0) {
			totalCuttable = totalCuttable.Add(w)
		}
	}
	for variety, w := range cuttable {
		unit, ok := unitByVariety[variety]
		if !ok || w.Sign() <= 0 || totalCuttable.Sign() <= 0 {
			breakdown.SingleUnits[variety] = 0
			continue
		}
		share := singleWeight.Mul(w.Div(totalCuttable))
		breakdown.SingleUnits[variety] = unitsFloor(share, unit)
	}

	return breakdown, nil
}

// unitsFloor 盎司换算为件数，向下取整且不为负
func unitsFloor(weight, unitOz decimal.Decimal) int {
	if unitOz.Sign() <= 0 || weight.Sign() <= 0 {
		return 0
	}
	n := weight.Div(unitOz).IntPart()
	if n < 0 {
		return 0
	}
	return int(n)
}
