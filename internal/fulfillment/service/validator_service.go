package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	catalogsvc "github.com/geoffdsims/chefpax-sub000/internal/catalog/service"
	"github.com/geoffdsims/chefpax-sub000/internal/config"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
)

type ValidatorService struct {
	catalog *catalogsvc.CatalogService
	slots   *SlotService
	cfg     config.FulfillmentConfig
}

func NewValidatorService(catalog *catalogsvc.CatalogService, slots *SlotService, cfg config.FulfillmentConfig) *ValidatorService {
	return &ValidatorService{catalog: catalog, slots: slots, cfg: cfg}
}

// DeliveryCheck 单品交付可行性结论
type DeliveryCheck struct {
	CanDeliver       bool       `json:"can_deliver"`
	Reason           string     `json:"reason,omitempty"`
	EarliestDelivery *time.Time `json:"earliest_delivery,omitempty"`
	LeadTimeDays     int        `json:"lead_time_days"`
}

// CanDeliverByDate 判断某产品能否按期交付：
// 最晚播种日 = 交付日 − 生长周期；距下单时刻不足备货缓冲时给出最早可行日期
// （下单时刻 + 生长周期 + 1 天安全余量）。
// 产品不存在是数据完整性错误，通过 ErrProductNotFound 区分上报。
func (s *ValidatorService) CanDeliverByDate(ctx context.Context, productID string, deliveryDate, orderTime time.Time) (*DeliveryCheck, error) {
	product, err := s.catalog.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return &DeliveryCheck{CanDeliver: false, Reason: "product not found"}, err
		}
		return nil, fmt.Errorf("load product %s: %w", productID, err)
	}

	latestStart := deliveryDate.AddDate(0, 0, -product.LeadTimeDays)
	buffer := time.Duration(s.cfg.ValidatorBufferHours) * time.Hour
	if latestStart.Sub(orderTime) >= buffer {
		return &DeliveryCheck{CanDeliver: true, LeadTimeDays: product.LeadTimeDays}, nil
	}

	earliest := orderTime.AddDate(0, 0, product.LeadTimeDays+1)
	return &DeliveryCheck{
		CanDeliver:       false,
		Reason:           fmt.Sprintf("needs %d days to grow", product.LeadTimeDays),
		EarliestDelivery: &earliest,
		LeadTimeDays:     product.LeadTimeDays,
	}, nil
}

// ValidateBundle 多品订单的配送日校验。
// 捆绑语义：一个候选日期可用，当且仅当每个产品都单独可按期交付且当日有容量；
// 起决定作用的是生长周期最长的产品。捆绑绝不在本组件内拆成两个配送日。
func (s *ValidatorService) ValidateBundle(ctx context.Context, productIDs []string, orderTime time.Time, horizonWeeks int) ([]entity.DeliveryOption, error) {
	if len(productIDs) == 0 {
		return nil, fmt.Errorf("bundle validation requires at least one product")
	}
	products, err := s.catalog.GetMany(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	options, err := s.slots.ListDeliveryOptions(ctx, orderTime, horizonWeeks)
	if err != nil {
		return nil, fmt.Errorf("list delivery options: %w", err)
	}

	out := make([]entity.DeliveryOption, 0, len(options))
	for _, option := range options {
		result := option
		result.Reasons = make(map[string]string)
		for _, id := range productIDs {
			product := products[id]
			check, err := s.CanDeliverByDate(ctx, product.ID, option.Date, orderTime)
			if err != nil {
				return nil, err
			}
			if !check.CanDeliver {
				result.Available = false
				result.Reasons[id] = check.Reason
			}
		}
		if len(result.Reasons) == 0 {
			result.Reasons = nil
		}
		out = append(out, result)
	}
	return out, nil
}
