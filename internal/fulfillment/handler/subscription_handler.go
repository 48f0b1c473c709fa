package handler

import (
	"net/http"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/service"
	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	svc *service.SubscriptionService
}

func NewSubscriptionHandler(svc *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc}
}

// Create POST /subscriptions
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req service.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	sub, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, sub)
}

// Get GET /subscriptions/:id
func (h *SubscriptionHandler) Get(c *gin.Context) {
	sub, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, sub)
}

// RunCycles POST /subscriptions/run-cycles — 定时任务之外的手工触发入口
func (h *SubscriptionHandler) RunCycles(c *gin.Context) {
	count, err := h.svc.RunDueCycles(c.Request.Context(), time.Now())
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, gin.H{"processed": count})
}
