package handler

import (
	"net/http"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/service"
	"github.com/gin-gonic/gin"
)

type DeliveryHandler struct {
	svc *service.DeliveryService
}

func NewDeliveryHandler(svc *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{svc: svc}
}

// Get GET /deliveries/:id
func (h *DeliveryHandler) Get(c *gin.Context) {
	job, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, job)
}

// Webhook POST /deliveries/:id/webhook — 承运方状态回调
func (h *DeliveryHandler) Webhook(c *gin.Context) {
	var event service.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	if err := h.svc.HandleWebhook(c.Request.Context(), c.Param("id"), event); err != nil {
		respondErr(c, err)
		return
	}
	ok(c, nil)
}
