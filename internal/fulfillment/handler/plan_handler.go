package handler

import (
	"net/http"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/service"
	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	yield *service.YieldService
}

func NewPlanHandler(yield *service.YieldService) *PlanHandler {
	return &PlanHandler{yield: yield}
}

// ComputeYield POST /plans/yield — 根据每周播种计划计算可售产量
func (h *PlanHandler) ComputeYield(c *gin.Context) {
	var plan entity.WeeklyProductionPlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	breakdown, err := h.yield.ComputeWeeklyYield(c.Request.Context(), plan)
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, breakdown)
}
