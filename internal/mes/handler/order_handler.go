package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/loomworks/atelier/internal/mes/repository"
	"github.com/loomworks/atelier/internal/mes/service"
	"go.uber.org/zap"
)

// OrderHandler 订单生命周期接口
type OrderHandler struct {
	svc    *service.OrderService
	logger *zap.Logger
}

func NewOrderHandler(svc *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

// List GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	page, limit := GetPagination(c)
	params := repository.OrderListParams{
		Status:    c.Query("status"),
		Priority:  c.Query("priority"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		Page:      page,
		Limit:     limit,
	}

	result, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	Success(c, gin.H{
		"orders": result.Orders,
		"pagination": gin.H{
			"total":   result.Total,
			"pages":   result.Pages,
			"current": result.Page,
			"limit":   result.Limit,
		},
		"filters": gin.H{
			"status_counts":   result.StatusCounts,
			"priority_counts": result.PriorityCounts,
		},
	})
}

// Get GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	order, err := h.svc.GetDetails(c.Request.Context(), id)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	Success(c, order)
}

// Create POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	order, err := h.svc.Create(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	Created(c, order)
}

// Update PUT /orders/:id
func (h *OrderHandler) Update(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	var req service.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	order, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	Success(c, order)
}

// UpdateStatus PATCH /orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	result, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status, GetUserID(c))
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	Success(c, gin.H{
		"order": gin.H{
			"id":         result.Order.ID,
			"status":     result.Order.Status,
			"updated_at": result.Order.UpdatedAt,
		},
		"stock_updated": result.StockUpdated,
		"stock_updates": result.StockUpdates,
	})
}

// UpdateWorker PATCH /orders/:id/worker
func (h *OrderHandler) UpdateWorker(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	var req struct {
		WorkerContactID *uint `json:"worker_contact_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	order, err := h.svc.UpdateWorker(c.Request.Context(), id, req.WorkerContactID)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	Success(c, gin.H{
		"order": gin.H{
			"id":                order.ID,
			"worker_contact_id": order.WorkerContactID,
			"worker_contact":    order.WorkerContact,
			"updated_at":        order.UpdatedAt,
		},
	})
}

// Delete DELETE /orders/:id
func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, h.logger, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}

// Timeline GET /orders/:id/timeline
func (h *OrderHandler) Timeline(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	order, events, err := h.svc.Timeline(c.Request.Context(), id)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	Success(c, gin.H{
		"order":  order,
		"events": events,
	})
}
