package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/loomworks/atelier/internal/mes/service"
	"go.uber.org/zap"
)

// WorkerHandler 工人列表接口
type WorkerHandler struct {
	svc    *service.WorkerService
	logger *zap.Logger
}

func NewWorkerHandler(svc *service.WorkerService, logger *zap.Logger) *WorkerHandler {
	return &WorkerHandler{svc: svc, logger: logger}
}

// List GET /workers
func (h *WorkerHandler) List(c *gin.Context) {
	workers, err := h.svc.GetWorkers(c.Request.Context())
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	Success(c, workers)
}

// ClearCache POST /workers/cache/clear
func (h *WorkerHandler) ClearCache(c *gin.Context) {
	h.svc.ClearCache()
	Success(c, gin.H{"cleared": true})
}
