package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/loomworks/atelier/internal/mes/repository"
	"go.uber.org/zap"
)

// ProductHandler 产品查询接口
type ProductHandler struct {
	products *repository.ProductRepository
	logger   *zap.Logger
}

func NewProductHandler(products *repository.ProductRepository, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

// List GET /products
func (h *ProductHandler) List(c *gin.Context) {
	page, limit := GetPagination(c)
	search := c.Query("search")

	products, total, err := h.products.List(c.Request.Context(), search, page, limit)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	Success(c, gin.H{
		"products": products,
		"pagination": gin.H{
			"total":   total,
			"current": page,
			"limit":   limit,
		},
	})
}
