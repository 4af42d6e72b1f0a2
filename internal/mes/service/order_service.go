package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/loomworks/atelier/internal/mes/entity"
	"github.com/loomworks/atelier/internal/mes/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderService 订单生命周期服务
type OrderService struct {
	orders   *repository.OrderRepository
	products *repository.ProductRepository
	contacts *repository.ContactRepository
	db       *gorm.DB
	logger   *zap.Logger
}

func NewOrderService(repos *repository.Repositories, db *gorm.DB, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:   repos.Order,
		products: repos.Product,
		contacts: repos.Contact,
		db:       db,
		logger:   logger,
	}
}

// statusTransitions 状态迁移表。目前任意状态互达（沿袭看板的自由流转），
// 收紧策略时只需在这里维护白名单。
var statusTransitions = map[string][]string{
	entity.OrderStatusCreated:      entity.OrderStatuses,
	entity.OrderStatusNeedMaterial: entity.OrderStatuses,
	entity.OrderStatusConfirmed:    entity.OrderStatuses,
	entity.OrderStatusProcessing:   entity.OrderStatuses,
	entity.OrderStatusCompleted:    entity.OrderStatuses,
	entity.OrderStatusShipped:      entity.OrderStatuses,
	entity.OrderStatusDelivered:    entity.OrderStatuses,
	entity.OrderStatusCancelled:    entity.OrderStatuses,
}

func canTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, target := range statusTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// NormalizeStatus 大小写归一并校验状态值
func NormalizeStatus(status string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(status))
	for _, s := range entity.OrderStatuses {
		if s == normalized {
			return normalized, nil
		}
	}
	return "", NewValidationError("invalid status %q, must be one of: %s", status, strings.Join(entity.OrderStatuses, ", "))
}

// NormalizePriority 大小写归一并校验优先级
func NormalizePriority(priority string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(priority))
	for _, p := range entity.OrderPriorities {
		if p == normalized {
			return normalized, nil
		}
	}
	return "", NewValidationError("invalid priority %q, must be one of: %s", priority, strings.Join(entity.OrderPriorities, ", "))
}

// OrderProductInput 订单明细入参
type OrderProductInput struct {
	ProductID    uint             `json:"product_id" binding:"required"`
	Quantity     int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	CompletedQty int              `json:"completed_qty"`
	Notes        string           `json:"notes"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	CustomerNote    string              `json:"customer_note"`
	Description     string              `json:"description"`
	DueDate         string              `json:"due_date"` // YYYY-MM-DD
	Priority        string              `json:"priority"`
	Status          string              `json:"status"`
	WorkerContactID *uint               `json:"worker_contact_id"`
	Products        []OrderProductInput `json:"products"`
}

// UpdateOrderRequest 更新订单请求。nil字段表示不修改；
// products 为 nil 保留原明细，否则整体替换。
type UpdateOrderRequest struct {
	CustomerNote    *string             `json:"customer_note"`
	Description     *string             `json:"description"`
	DueDate         *string             `json:"due_date"`
	Priority        *string             `json:"priority"`
	Status          *string             `json:"status"`
	WorkerContactID *uint               `json:"worker_contact_id"`
	Products        []OrderProductInput `json:"products"`
}

// validateWorker 指派对象必须是活跃的WORKER联系人
func (s *OrderService) validateWorker(ctx context.Context, workerContactID uint) error {
	_, err := s.contacts.FindActiveWorker(ctx, workerContactID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewValidationError("Invalid worker")
		}
		return err
	}
	return nil
}

// buildLines 校验产品引用并展开明细行，返回行集合与目标件数。
// 任意一个产品不存在则整体失败，不做部分创建。
func (s *OrderService) buildLines(ctx context.Context, inputs []OrderProductInput) ([]entity.OrderProduct, int, error) {
	ids := make([]uint, 0, len(inputs))
	for _, in := range inputs {
		if in.Quantity <= 0 {
			return nil, 0, NewValidationError("product %d: quantity must be positive", in.ProductID)
		}
		ids = append(ids, in.ProductID)
	}

	byID, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	lines := make([]entity.OrderProduct, 0, len(inputs))
	targetPcs := 0
	for _, in := range inputs {
		product, ok := byID[in.ProductID]
		if !ok {
			return nil, 0, NewValidationError("product %d not found", in.ProductID)
		}

		unitPrice := product.Price
		if in.UnitPrice != nil {
			unitPrice = *in.UnitPrice
		}

		lines = append(lines, entity.OrderProduct{
			ProductID:    in.ProductID,
			Quantity:     in.Quantity,
			UnitPrice:    unitPrice,
			TotalPrice:   unitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))),
			CompletedQty: in.CompletedQty,
			Status:       entity.LineStatusPending,
			Notes:        in.Notes,
		})
		targetPcs += in.Quantity
	}

	return lines, targetPcs, nil
}

// Create 创建订单。订单号取当前总数+1，撞唯一索引时递增重试。
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest, userID string) (*entity.Order, error) {
	if strings.TrimSpace(req.DueDate) == "" {
		return nil, NewValidationError("due_date is required")
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return nil, NewValidationError("due_date must be YYYY-MM-DD")
	}
	if len(req.Products) == 0 {
		return nil, NewValidationError("at least one product is required")
	}

	status := entity.OrderStatusCreated
	if req.Status != "" {
		if status, err = NormalizeStatus(req.Status); err != nil {
			return nil, err
		}
	}
	priority := entity.PriorityMedium
	if req.Priority != "" {
		if priority, err = NormalizePriority(req.Priority); err != nil {
			return nil, err
		}
	}

	if req.WorkerContactID != nil {
		if err := s.validateWorker(ctx, *req.WorkerContactID); err != nil {
			return nil, err
		}
	}

	lines, targetPcs, err := s.buildLines(ctx, req.Products)
	if err != nil {
		return nil, err
	}

	count, err := s.orders.Count(ctx)
	if err != nil {
		return nil, err
	}

	seq := count + 1
	order := &entity.Order{
		Status:          status,
		Priority:        priority,
		CustomerNote:    req.CustomerNote,
		Description:     req.Description,
		DueDate:         dueDate,
		TargetPcs:       targetPcs,
		CompletedPcs:    0,
		WorkerContactID: req.WorkerContactID,
		CreatedBy:       userID,
		IsActive:        true,
	}

	for attempt := 0; attempt < 3; attempt++ {
		order.ID = 0
		order.OrderNo = fmt.Sprintf("ORD-%06d", seq)
		order.Products = make([]entity.OrderProduct, len(lines))
		copy(order.Products, lines)

		err = s.orders.Create(ctx, order)
		if err == nil {
			return s.orders.FindByID(ctx, order.ID)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			seq++
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("create order: exhausted order number retries: %w", err)
}

// GetDetails 订单详情，含明细和指派工人
func (s *OrderService) GetDetails(ctx context.Context, id uint) (*entity.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// Update 部分更新订单；提供新产品清单时明细整体替换并重算 target_pcs
func (s *OrderService) Update(ctx context.Context, id uint, req UpdateOrderRequest) (*entity.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	order.WorkerContact = nil

	if req.CustomerNote != nil {
		order.CustomerNote = *req.CustomerNote
	}
	if req.Description != nil {
		order.Description = *req.Description
	}
	if req.DueDate != nil {
		dueDate, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			return nil, NewValidationError("due_date must be YYYY-MM-DD")
		}
		order.DueDate = dueDate
	}
	if req.Priority != nil {
		priority, err := NormalizePriority(*req.Priority)
		if err != nil {
			return nil, err
		}
		order.Priority = priority
	}
	if req.Status != nil {
		status, err := NormalizeStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		order.Status = status
	}
	if req.WorkerContactID != nil {
		if err := s.validateWorker(ctx, *req.WorkerContactID); err != nil {
			return nil, err
		}
		order.WorkerContactID = req.WorkerContactID
	}

	if req.Products != nil {
		if len(req.Products) == 0 {
			return nil, NewValidationError("at least one product is required")
		}
		lines, targetPcs, err := s.buildLines(ctx, req.Products)
		if err != nil {
			return nil, err
		}
		order.Products = nil
		if err := s.orders.ReplaceLines(ctx, order, lines, targetPcs); err != nil {
			return nil, err
		}
	} else {
		order.Products = nil
		if err := s.orders.Save(ctx, order); err != nil {
			return nil, err
		}
	}

	return s.orders.FindByID(ctx, id)
}

// StockUpdate 完工入库对单个产品的影响
type StockUpdate struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	QtyAdded    float64 `json:"qty_added"`
	QtyOnHand   float64 `json:"qty_on_hand"`
}

// StatusUpdateResult 状态变更结果
type StatusUpdateResult struct {
	Order        *entity.Order `json:"order"`
	StockUpdated bool          `json:"stock_updated"`
	StockUpdates []StockUpdate `json:"stock_updates"`
}

// UpdateStatus 变更订单状态。首次进入 COMPLETED 时触发完工入库：
// 逐行把 completed_qty 加进产品库存并追加流水，整体一个事务。
// 入库失败只记日志，状态变更不回滚（显式的部分失败策略）。
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status, userID string) (*StatusUpdateResult, error) {
	normalized, err := NormalizeStatus(status)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canTransition(order.Status, normalized) {
		return nil, NewValidationError("status transition %s -> %s is not allowed", order.Status, normalized)
	}

	previous := order.Status
	if err := s.orders.UpdateStatus(ctx, id, normalized); err != nil {
		return nil, err
	}
	order.Status = normalized
	order.UpdatedAt = time.Now()

	result := &StatusUpdateResult{Order: order, StockUpdates: []StockUpdate{}}

	if normalized == entity.OrderStatusCompleted && previous != entity.OrderStatusCompleted {
		updates, err := s.reconcileStock(ctx, order, userID)
		if err != nil {
			// 状态变更已生效；入库失败记日志后继续
			s.logger.Error("stock reconciliation failed after status change",
				zap.Uint("order_id", order.ID),
				zap.String("order_no", order.OrderNo),
				zap.Error(err),
			)
		} else {
			result.StockUpdated = true
			result.StockUpdates = updates
		}
	}

	return result, nil
}

// reconcileStock 完工入库。对每个 completed_qty>0 的明细：
// 重读产品库存、加量、回写，并追加一条 qty_after 为新余额的流水。
func (s *OrderService) reconcileStock(ctx context.Context, order *entity.Order, userID string) ([]StockUpdate, error) {
	updates := []StockUpdate{}
	now := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range order.Products {
			if line.CompletedQty <= 0 {
				continue
			}

			var product entity.Product
			if err := tx.First(&product, line.ProductID).Error; err != nil {
				return fmt.Errorf("load product %d: %w", line.ProductID, err)
			}

			qtyAfter := product.QtyOnHand + float64(line.CompletedQty)
			if err := tx.Model(&entity.Product{}).
				Where("id = ?", product.ID).
				Update("qty_on_hand", qtyAfter).Error; err != nil {
				return fmt.Errorf("update stock for product %d: %w", product.ID, err)
			}

			materialID := entity.FallbackMaterialID
			if product.MaterialID != nil {
				materialID = *product.MaterialID
			}

			orderID := order.ID
			movement := &entity.MaterialMovement{
				MaterialID:   materialID,
				OrderID:      &orderID,
				MovementType: entity.MovementIn,
				Quantity:     float64(line.CompletedQty),
				Unit:         product.Unit,
				QtyAfter:     qtyAfter,
				Notes:        fmt.Sprintf("Production intake for order %s - %s", order.OrderNo, product.Name),
				MovementDate: now,
				CreatedBy:    userID,
			}
			if err := tx.Create(movement).Error; err != nil {
				return fmt.Errorf("append movement for product %d: %w", product.ID, err)
			}

			updates = append(updates, StockUpdate{
				ProductID:   product.ID,
				ProductName: product.Name,
				QtyAdded:    float64(line.CompletedQty),
				QtyOnHand:   qtyAfter,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updates, nil
}

// UpdateWorker 指派或清空订单工人。workerContactID 为 nil/0 表示清空。
func (s *OrderService) UpdateWorker(ctx context.Context, id uint, workerContactID *uint) (*entity.Order, error) {
	if _, err := s.orders.FindByID(ctx, id); err != nil {
		return nil, err
	}

	if workerContactID != nil && *workerContactID == 0 {
		workerContactID = nil
	}
	if workerContactID != nil {
		if err := s.validateWorker(ctx, *workerContactID); err != nil {
			return nil, err
		}
	}

	if err := s.orders.UpdateWorker(ctx, id, workerContactID); err != nil {
		return nil, err
	}
	return s.orders.FindByID(ctx, id)
}

// Delete 软删订单；进入生产后的状态不可删
func (s *OrderService) Delete(ctx context.Context, id uint) error {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return err
	}

	for _, protected := range entity.ProtectedStatuses {
		if order.Status == protected {
			return NewValidationError("cannot delete order in %s status", order.Status)
		}
	}

	return s.orders.SoftDelete(ctx, id)
}

// OrderListResult 列表结果：分页订单 + 全量状态/优先级分布
type OrderListResult struct {
	Orders         []entity.Order   `json:"orders"`
	Total          int64            `json:"total"`
	Pages          int              `json:"pages"`
	Page           int              `json:"page"`
	Limit          int              `json:"limit"`
	StatusCounts   map[string]int64 `json:"status_counts"`
	PriorityCounts map[string]int64 `json:"priority_counts"`
}

// List 分页查询订单，附带不受分页影响的状态/优先级计数
func (s *OrderService) List(ctx context.Context, params repository.OrderListParams) (*OrderListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 20
	}
	if params.Status != "" {
		status, err := NormalizeStatus(params.Status)
		if err != nil {
			return nil, err
		}
		params.Status = status
	}
	if params.Priority != "" {
		priority, err := NormalizePriority(params.Priority)
		if err != nil {
			return nil, err
		}
		params.Priority = priority
	}

	orders, total, err := s.orders.List(ctx, params)
	if err != nil {
		return nil, err
	}
	statusCounts, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	priorityCounts, err := s.orders.CountByPriority(ctx)
	if err != nil {
		return nil, err
	}

	return &OrderListResult{
		Orders:         orders,
		Total:          total,
		Pages:          int(math.Ceil(float64(total) / float64(params.Limit))),
		Page:           params.Page,
		Limit:          params.Limit,
		StatusCounts:   statusCounts,
		PriorityCounts: priorityCounts,
	}, nil
}

// TimelineEvent 订单时间线事件
type TimelineEvent struct {
	Event       string    `json:"event"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Timeline 订单 + 按时间排列的事件列表。
// 创建事件恒存在；最后修改时间晚于创建时补一条更新事件。
func (s *OrderService) Timeline(ctx context.Context, id uint) (*entity.Order, []TimelineEvent, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	events := []TimelineEvent{
		{
			Event:       "created",
			Description: fmt.Sprintf("Order %s created", order.OrderNo),
			Timestamp:   order.CreatedAt,
		},
	}
	if order.UpdatedAt.After(order.CreatedAt) {
		events = append(events, TimelineEvent{
			Event:       "updated",
			Description: fmt.Sprintf("Order %s last updated", order.OrderNo),
			Timestamp:   order.UpdatedAt,
		})
	}

	return order, events, nil
}
