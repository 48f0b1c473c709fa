package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/redis/go-redis/v9"
)

// SlotCache 配送日可用性的 TTL 缓存。
// 显式注入而非模块级状态；缓存内容只用于展示，写决策永远直接查账本，
// 所以条目可随时失效或重算，不影响正确性。
type SlotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSlotCache(rdb *redis.Client, ttl time.Duration) *SlotCache {
	return &SlotCache{rdb: rdb, ttl: ttl}
}

func slotCacheKey(horizonWeeks int) string {
	return fmt.Sprintf("slots:horizon:%d", horizonWeeks)
}

// Get 命中返回缓存的选项列表；cache 为 nil 或 redis 不可用时当作未命中
func (c *SlotCache) Get(ctx context.Context, horizonWeeks int) ([]entity.DeliveryOption, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, slotCacheKey(horizonWeeks)).Bytes()
	if err != nil {
		return nil, false
	}
	var options []entity.DeliveryOption
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil, false
	}
	return options, true
}

// Set 写入缓存，失败静默忽略（缓存不是正确性依赖）
func (c *SlotCache) Set(ctx context.Context, horizonWeeks int, options []entity.DeliveryOption) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, slotCacheKey(horizonWeeks), raw, c.ttl)
}

// Invalidate 显式失效钩子，预约成功后调用
func (c *SlotCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	iter := c.rdb.Scan(ctx, 0, "slots:horizon:*", 0).Iterator()
	for iter.Next(ctx) {
		c.rdb.Del(ctx, iter.Val())
	}
}
