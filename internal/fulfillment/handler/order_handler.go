package handler

import (
	"net/http"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/service"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	svc *service.OrderService
}

func NewOrderHandler(svc *service.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Create POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	result, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		// 容量不足时带回逐项错误，调用方据此改期
		if result != nil && result.Reservation != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"code": 42201, "message": err.Error(), "data": result})
			return
		}
		respondErr(c, err)
		return
	}
	ok(c, result)
}

// Confirm POST /orders/:id/confirm — 支付回执后的编排入口
func (h *OrderHandler) Confirm(c *gin.Context) {
	var req struct {
		Method  string `json:"method"`
		Address string `json:"address"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	result, err := h.svc.Confirm(c.Request.Context(), c.Param("id"), req.Method, req.Address)
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, result)
}

// Get GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, order)
}
