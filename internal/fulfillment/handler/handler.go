package handler

import (
	"errors"
	"net/http"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handlers 履约域 HTTP 处理器集合
type Handlers struct {
	Slot         *SlotHandler
	Order        *OrderHandler
	Reservation  *ReservationHandler
	Task         *TaskHandler
	Subscription *SubscriptionHandler
	Delivery     *DeliveryHandler
	Plan         *PlanHandler
}

type Services struct {
	Slots         *service.SlotService
	Validator     *service.ValidatorService
	Orders        *service.OrderService
	Reservations  *service.ReservationService
	Tasks         *service.TaskService
	Subscriptions *service.SubscriptionService
	Deliveries    *service.DeliveryService
	Yield         *service.YieldService
}

func NewHandlers(services *Services) *Handlers {
	return &Handlers{
		Slot:         NewSlotHandler(services.Slots, services.Validator),
		Order:        NewOrderHandler(services.Orders),
		Reservation:  NewReservationHandler(services.Reservations),
		Task:         NewTaskHandler(services.Tasks),
		Subscription: NewSubscriptionHandler(services.Subscriptions),
		Delivery:     NewDeliveryHandler(services.Deliveries),
		Plan:         NewPlanHandler(services.Yield),
	}
}

// respondErr 统一把服务层错误映射到响应码族：
// 0 成功 / 10001 参数 / 10002 不存在 / 40901 状态冲突 /
// 42201 容量不足 / 42202 时效不可行 / 50001 内部错误（可重试）
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound), errors.Is(err, service.ErrOrderNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error()})
	case errors.Is(err, service.ErrCapacityExceeded):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": 42201, "message": err.Error()})
	case errors.Is(err, service.ErrTimingInfeasible):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": 42202, "message": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrDuplicateCycle):
		c.JSON(http.StatusConflict, gin.H{"code": 40901, "message": err.Error()})
	case errors.Is(err, service.ErrInvalidPlan):
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
	}
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": data})
}
