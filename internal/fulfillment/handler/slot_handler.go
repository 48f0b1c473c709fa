package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/service"
	"github.com/gin-gonic/gin"
)

type SlotHandler struct {
	slots     *service.SlotService
	validator *service.ValidatorService
}

func NewSlotHandler(slots *service.SlotService, validator *service.ValidatorService) *SlotHandler {
	return &SlotHandler{slots: slots, validator: validator}
}

// ListOptions GET /delivery-options?horizon_weeks=2
func (h *SlotHandler) ListOptions(c *gin.Context) {
	horizon, _ := strconv.Atoi(c.DefaultQuery("horizon_weeks", "2"))
	options, err := h.slots.ListDeliveryOptions(c.Request.Context(), time.Now(), horizon)
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, options)
}

// ValidateBundle GET /delivery-options/validate?products=a,b&horizon_weeks=2
// 捆绑校验：每个候选日带逐产品拒绝原因
func (h *SlotHandler) ValidateBundle(c *gin.Context) {
	raw := c.Query("products")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": "products query parameter is required"})
		return
	}
	productIDs := strings.Split(raw, ",")
	horizon, _ := strconv.Atoi(c.DefaultQuery("horizon_weeks", "2"))

	options, err := h.validator.ValidateBundle(c.Request.Context(), productIDs, time.Now(), horizon)
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, options)
}

// CheckProduct GET /delivery-options/check?product=pea-shoots-2oz&date=2026-09-05
func (h *SlotHandler) CheckProduct(c *gin.Context) {
	productID := c.Query("product")
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if productID == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": "product and date (YYYY-MM-DD) are required"})
		return
	}
	check, err := h.validator.CanDeliverByDate(c.Request.Context(), productID, date, time.Now())
	if err != nil && check == nil {
		respondErr(c, err)
		return
	}
	// 产品不存在时 check 携带原因返回 404，其余情况正常返回结论
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": 10002, "message": err.Error(), "data": check})
		return
	}
	ok(c, check)
}
