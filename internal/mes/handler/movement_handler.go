package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/loomworks/atelier/internal/mes/repository"
	"go.uber.org/zap"
)

// MovementHandler 物料流水查询接口
type MovementHandler struct {
	movements *repository.MovementRepository
	logger    *zap.Logger
}

func NewMovementHandler(movements *repository.MovementRepository, logger *zap.Logger) *MovementHandler {
	return &MovementHandler{movements: movements, logger: logger}
}

// List GET /movements
func (h *MovementHandler) List(c *gin.Context) {
	page, limit := GetPagination(c)

	params := repository.MovementListParams{Page: page, Limit: limit}
	if v := c.Query("materialId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			BadRequest(c, "invalid materialId")
			return
		}
		params.MaterialID = uint(id)
	}
	if v := c.Query("orderId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			BadRequest(c, "invalid orderId")
			return
		}
		params.OrderID = uint(id)
	}

	movements, total, err := h.movements.List(c.Request.Context(), params)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	Success(c, gin.H{
		"movements": movements,
		"pagination": gin.H{
			"total":   total,
			"current": page,
			"limit":   limit,
		},
	})
}
