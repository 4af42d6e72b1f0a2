package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/loomworks/atelier/internal/mes/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRepository 订单仓库
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// DB 返回底层连接，供服务层组织跨仓库事务
func (r *OrderRepository) DB() *gorm.DB {
	return r.db
}

// OrderListParams 列表/报表共用的过滤条件
type OrderListParams struct {
	Status    string
	Priority  string
	Search    string
	DateFrom  *time.Time
	DateTo    *time.Time // exclusive upper bound
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// 可排序字段白名单，未知字段一律按 created_at 排
var orderSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"due_date":   true,
	"order_no":   true,
	"status":     true,
	"priority":   true,
	"target_pcs": true,
}

func (r *OrderRepository) applyFilters(query *gorm.DB, params OrderListParams) *gorm.DB {
	query = query.Where("is_active = ?", true)

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Priority != "" {
		query = query.Where("priority = ?", params.Priority)
	}
	if params.Search != "" {
		// LOWER+LIKE 在 postgres 与 sqlite 上行为一致
		pattern := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where(
			"LOWER(order_no) LIKE ? OR LOWER(customer_note) LIKE ? OR LOWER(description) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if params.DateFrom != nil {
		query = query.Where("created_at >= ?", *params.DateFrom)
	}
	if params.DateTo != nil {
		query = query.Where("created_at < ?", *params.DateTo)
	}

	return query
}

func (r *OrderRepository) orderClause(params OrderListParams) string {
	sortBy := params.SortBy
	if !orderSortFields[sortBy] {
		sortBy = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(params.SortOrder, "asc") {
		direction = "ASC"
	}
	return sortBy + " " + direction
}

// List 分页查询订单列表
func (r *OrderRepository) List(ctx context.Context, params OrderListParams) ([]entity.Order, int64, error) {
	var orders []entity.Order
	var total int64

	query := r.applyFilters(r.db.WithContext(ctx).Model(&entity.Order{}), params)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (params.Page - 1) * params.Limit
	err := query.
		Preload("WorkerContact").
		Preload("Products.Product").
		Order(r.orderClause(params)).
		Offset(offset).
		Limit(params.Limit).
		Find(&orders).Error

	return orders, total, err
}

// ListAll 按同一过滤条件取全量结果（报表用，不分页）
func (r *OrderRepository) ListAll(ctx context.Context, params OrderListParams) ([]entity.Order, error) {
	var orders []entity.Order
	err := r.applyFilters(r.db.WithContext(ctx).Model(&entity.Order{}), params).
		Preload("WorkerContact").
		Preload("Products.Product").
		Order(r.orderClause(params)).
		Find(&orders).Error
	return orders, err
}

// StatusCount 状态分布（UI角标用，不受分页影响）
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// PriorityCount 优先级分布
type PriorityCount struct {
	Priority string `json:"priority"`
	Count    int64  `json:"count"`
}

// CountByStatus 活跃订单按状态分组计数
func (r *OrderRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).Model(&entity.Order{}).
		Select("status, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountByPriority 活跃订单按优先级分组计数
func (r *OrderRepository) CountByPriority(ctx context.Context) (map[string]int64, error) {
	var rows []PriorityCount
	err := r.db.WithContext(ctx).Model(&entity.Order{}).
		Select("priority, COUNT(*) AS count").
		Where("is_active = ?", true).
		Group("priority").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Priority] = row.Count
	}
	return counts, nil
}

// FindByID 查询单个活跃订单（含明细和工人）
func (r *OrderRepository) FindByID(ctx context.Context, id uint) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Preload("WorkerContact").
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Products.Product").
		Where("id = ? AND is_active = ?", id, true).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Count 订单总数（含软删，订单号生成用）
func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&entity.Order{}).Count(&total).Error
	return total, err
}

// Create 创建订单及其明细，单事务提交
func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
}

// Save 持久化订单头部字段，不触碰关联
func (r *OrderRepository) Save(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error
}

// ReplaceLines 整体替换订单明细并回写 target_pcs，单事务提交
func (r *OrderRepository) ReplaceLines(ctx context.Context, order *entity.Order, lines []entity.OrderProduct, targetPcs int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&entity.OrderProduct{}).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].OrderID = order.ID
		}
		if len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}
		order.TargetPcs = targetPcs
		return tx.Omit(clause.Associations).Save(order).Error
	})
}

// UpdateStatus 更新订单状态
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdateWorker 更新或清空订单的工人指派
func (r *OrderRepository) UpdateWorker(ctx context.Context, id uint, workerContactID *uint) error {
	return r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ?", id).
		Update("worker_contact_id", workerContactID).Error
}

// SoftDelete 软删订单，记录保留可按ID查询
func (r *OrderRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}
