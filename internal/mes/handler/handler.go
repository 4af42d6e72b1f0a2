package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/loomworks/atelier/internal/mes/repository"
	"github.com/loomworks/atelier/internal/mes/service"
	"go.uber.org/zap"
)

// Handlers MES HTTP处理器集合
type Handlers struct {
	Order    *OrderHandler
	Worker   *WorkerHandler
	Product  *ProductHandler
	Movement *MovementHandler
	Report   *ReportHandler
}

func NewHandlers(services *service.Services, repos *repository.Repositories, archiver *service.ReportArchiver, logger *zap.Logger) *Handlers {
	return &Handlers{
		Order:    NewOrderHandler(services.Order, logger),
		Worker:   NewWorkerHandler(services.Workers, logger),
		Product:  NewProductHandler(repos.Product, logger),
		Movement: NewMovementHandler(repos.Movement, logger),
		Report:   NewReportHandler(services.Report, archiver, logger),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{Code: 0, Message: "success", Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{Code: 0, Message: "success", Data: data})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{Code: code, Message: message})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// HandleError 按错误分类回包：校验错→400，记录不存在→404，
// 其余记日志后回脱敏的500。
func HandleError(c *gin.Context, logger *zap.Logger, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		BadRequest(c, ve.Message)
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "record not found")
	default:
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		InternalError(c, "internal server error")
	}
}

// GetUserID 从认证中间件注入的上下文中取当前用户
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetPagination 解析 page/limit 查询参数
func GetPagination(c *gin.Context) (page, limit int) {
	page = 1
	limit = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	return page, limit
}

// ParseID 解析路径里的数字ID
func ParseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
