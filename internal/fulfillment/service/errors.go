package service

import (
	"errors"

	catalogsvc "github.com/geoffdsims/chefpax-sub000/internal/catalog/service"
)

// 错误分类（§错误处理）：
// 数据完整性错误只中止受影响的单个操作；容量错误整单拒绝；
// 时效错误不是系统故障，附带最早可行日期返回；存储瞬时错误可重试，
// 绝不与容量错误混淆。
var (
	// ErrProductNotFound 数据完整性错误，与排期失败分开上报
	ErrProductNotFound = catalogsvc.ErrProductNotFound

	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = errors.New("order not found")

	// ErrCapacityExceeded 预约会超出周容量，整单原子拒绝
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrTimingInfeasible 下单时间距交付日不足一个生长周期
	ErrTimingInfeasible = errors.New("timing infeasible for lead time")

	// ErrInvalidTransition 状态机不允许的迁移
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDuplicateCycle 同一订阅周期重复生成（幂等保护命中）
	ErrDuplicateCycle = errors.New("cycle already generated")

	// ErrInvalidPlan 播种计划输入非法（负数量），入口处拒绝
	ErrInvalidPlan = errors.New("invalid production plan")
)
