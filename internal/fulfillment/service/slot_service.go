package service

import (
	"context"
	"fmt"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/config"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/repository"
)

type SlotService struct {
	orderRepo *repository.OrderRepository
	subRepo   *repository.SubscriptionRepository
	cache     *SlotCache
	cfg       config.FulfillmentConfig
}

func NewSlotService(
	orderRepo *repository.OrderRepository,
	subRepo *repository.SubscriptionRepository,
	cache *SlotCache,
	cfg config.FulfillmentConfig,
) *SlotService {
	return &SlotService{orderRepo: orderRepo, subRepo: subRepo, cache: cache, cfg: cfg}
}

// ListDeliveryOptions 枚举未来 horizonWeeks 周内的固定配送日并计算占用。
// available = 已用量 < 可售上限(硬上限×比例) 且 now 早于截单时间。
// 每次调用重新计算；缓存命中直接返回，条目过期自动重算。
func (s *SlotService) ListDeliveryOptions(ctx context.Context, now time.Time, horizonWeeks int) ([]entity.DeliveryOption, error) {
	if horizonWeeks <= 0 {
		horizonWeeks = 2
	}
	if options, ok := s.cache.Get(ctx, horizonWeeks); ok {
		return options, nil
	}

	deliveryDays := make(map[time.Weekday]bool, len(s.cfg.DeliveryWeekdays))
	for _, wd := range s.cfg.DeliveryWeekdays {
		deliveryDays[time.Weekday(wd)] = true
	}

	capacityMax := int(float64(s.cfg.MaxOrdersPerDay) * s.cfg.SoftCapacityRatio)

	var options []entity.DeliveryOption
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	horizon := horizonWeeks * 7
	for i := 1; i <= horizon; i++ {
		date := dayStart.AddDate(0, 0, i)
		if !deliveryDays[date.Weekday()] {
			continue
		}
		used, err := s.capacityUsed(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("compute capacity for %s: %w", date.Format("2006-01-02"), err)
		}
		cutoff := s.CutoffFor(date)
		options = append(options, entity.DeliveryOption{
			Date:         date,
			Available:    used < capacityMax && now.Before(cutoff),
			CutoffTime:   cutoff,
			CapacityUsed: used,
			CapacityMax:  capacityMax,
		})
	}

	s.cache.Set(ctx, horizonWeeks, options)
	return options, nil
}

// CutoffFor 配送日前 CutoffDaysBefore 天的 CutoffHour 点，必然严格早于配送日
func (s *SlotService) CutoffFor(date time.Time) time.Time {
	cutoffDay := date.AddDate(0, 0, -s.cfg.CutoffDaysBefore)
	return time.Date(cutoffDay.Year(), cutoffDay.Month(), cutoffDay.Day(), s.cfg.CutoffHour, 0, 0, 0, time.UTC)
}

// InvalidateCache 预约/下单成功后刷掉缓存的可用性
func (s *SlotService) InvalidateCache(ctx context.Context) {
	s.cache.Invalidate(ctx)
}

// capacityUsed 当日已确认订单件数 + 当日到期的活跃订阅件数
func (s *SlotService) capacityUsed(ctx context.Context, date time.Time) (int, error) {
	dayEnd := date.AddDate(0, 0, 1)
	orderQty, err := s.orderRepo.QuantityOnDate(ctx, date, dayEnd)
	if err != nil {
		return 0, err
	}
	subQty, err := s.subRepo.QuantityOnDate(ctx, date, dayEnd)
	if err != nil {
		return 0, err
	}
	return orderQty + subQty, nil
}
