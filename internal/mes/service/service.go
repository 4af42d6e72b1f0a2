package service

import (
	"fmt"
	"time"

	"github.com/loomworks/atelier/internal/mes/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ValidationError 客户端可见的校验错误，消息可直接透出
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError 构造校验错误
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Services MES服务集合
type Services struct {
	Order   *OrderService
	Workers *WorkerService
	Report  *ReportService
}

func NewServices(repos *repository.Repositories, db *gorm.DB, logger *zap.Logger, workersTTL time.Duration) *Services {
	return &Services{
		Order:   NewOrderService(repos, db, logger),
		Workers: NewWorkerService(repos.Contact, NewWorkerCache(workersTTL, time.Now)),
		Report:  NewReportService(repos.Order),
	}
}
