package handler

import (
	"net/http"
	"time"

	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/entity"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/repository"
	"github.com/geoffdsims/chefpax-sub000/internal/fulfillment/service"
	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// List GET /tasks?status=READY&due=today — 按 (priority desc, run_at asc) 排序
func (h *TaskHandler) List(c *gin.Context) {
	params := repository.TaskListParams{
		Status:    entity.TaskStatus(c.Query("status")),
		ProductID: c.Query("product_id"),
		OrderID:   c.Query("order_id"),
	}
	if c.Query("due") == "today" {
		endOfDay := time.Now().Truncate(24*time.Hour).AddDate(0, 0, 1)
		params.Due = &endOfDay
	}
	tasks, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		respondErr(c, err)
		return
	}
	ok(c, tasks)
}

// Generate POST /tasks/generate — 已确认行项的任务链生成入口
func (h *TaskHandler) Generate(c *gin.Context) {
	var req struct {
		OrderID      string           `json:"order_id" binding:"required"`
		Item         service.LineItem `json:"item" binding:"required"`
		DeliveryDate time.Time        `json:"delivery_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	tasks, err := h.svc.GenerateForOrder(c.Request.Context(), req.OrderID, req.Item, req.DeliveryDate)
	if err != nil {
		respondErr(c, err)
		return
	}
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	ok(c, gin.H{"task_ids": ids})
}

// UpdateStatus PUT /tasks/:id/status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status entity.TaskStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	if err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		respondErr(c, err)
		return
	}
	ok(c, nil)
}

// Export GET /tasks/export — 任务清单 xlsx
func (h *TaskHandler) Export(c *gin.Context) {
	params := repository.TaskListParams{
		Status: entity.TaskStatus(c.Query("status")),
	}
	f, filename, err := h.svc.ExportTaskSheet(c.Request.Context(), params)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		respondErr(c, err)
	}
}
