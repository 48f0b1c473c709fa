package handler

import (
	"net/http"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/service"
	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	svc *service.ReservationService
}

func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

// Reserve POST /reservations
func (h *ReservationHandler) Reserve(c *gin.Context) {
	var req service.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	result, err := h.svc.Reserve(c.Request.Context(), req)
	if err != nil {
		if result != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"code": 42201, "message": err.Error(), "data": result})
			return
		}
		respondErr(c, err)
		return
	}
	ok(c, result)
}

// Release POST /reservations/:id/release
func (h *ReservationHandler) Release(c *gin.Context) {
	released, err := h.svc.Release(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, gin.H{"released": released})
}

// Availability GET /availability?product=pea-shoots-2oz&date=2026-09-05
func (h *ReservationHandler) Availability(c *gin.Context) {
	productID := c.Query("product")
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if productID == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": "product and date (YYYY-MM-DD) are required"})
		return
	}
	slot, err := h.svc.Availability(c.Request.Context(), productID, date)
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, slot)
}

// ExpireStale POST /reservations/expire-stale — 手工触发清扫（定时任务之外的运维入口）
func (h *ReservationHandler) ExpireStale(c *gin.Context) {
	count, err := h.svc.ExpireStale(c.Request.Context(), time.Now())
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, gin.H{"expired": count})
}
