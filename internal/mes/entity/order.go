package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 订单状态
const (
	OrderStatusCreated      = "CREATED"
	OrderStatusNeedMaterial = "NEED_MATERIAL"
	OrderStatusConfirmed    = "CONFIRMED"
	OrderStatusProcessing   = "PROCESSING"
	OrderStatusCompleted    = "COMPLETED"
	OrderStatusShipped      = "SHIPPED"
	OrderStatusDelivered    = "DELIVERED"
	OrderStatusCancelled    = "CANCELLED"
)

// OrderStatuses 全部合法状态（校验与错误提示用）
var OrderStatuses = []string{
	OrderStatusCreated,
	OrderStatusNeedMaterial,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusCompleted,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ProtectedStatuses 进入生产后不可软删的状态
var ProtectedStatuses = []string{
	OrderStatusProcessing,
	OrderStatusCompleted,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// OrderPriority 订单优先级
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// OrderPriorities 全部合法优先级
var OrderPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Order 生产订单
type Order struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	OrderNo         string     `json:"order_no" gorm:"size:20;not null;uniqueIndex"`
	Status          string     `json:"status" gorm:"size:20;not null;default:CREATED;index"`
	Priority        string     `json:"priority" gorm:"size:10;not null;default:MEDIUM;index"`
	CustomerNote    string     `json:"customer_note" gorm:"size:500"`
	Description     string     `json:"description" gorm:"type:text"`
	DueDate         time.Time  `json:"due_date" gorm:"not null"`
	TargetPcs       int        `json:"target_pcs" gorm:"not null;default:0"`
	CompletedPcs    int        `json:"completed_pcs" gorm:"not null;default:0"`
	WorkerContactID *uint      `json:"worker_contact_id" gorm:"index"`
	CreatedBy       string     `json:"created_by" gorm:"size:64;not null"`
	IsActive        bool       `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	WorkerContact *Contact       `json:"worker_contact,omitempty" gorm:"foreignKey:WorkerContactID"`
	Products      []OrderProduct `json:"products,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "mes_orders"
}

// OrderProductStatus 订单明细状态
const (
	LineStatusPending    = "PENDING"
	LineStatusProcessing = "PROCESSING"
	LineStatusCompleted  = "COMPLETED"
)

// OrderProduct 订单产品明细
type OrderProduct struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	OrderID      uint            `json:"order_id" gorm:"not null;index"`
	ProductID    uint            `json:"product_id" gorm:"not null;index"`
	Quantity     int             `json:"quantity" gorm:"not null"`
	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null;default:0"`
	TotalPrice   decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null;default:0"`
	CompletedQty int             `json:"completed_qty" gorm:"not null;default:0"`
	Status       string          `json:"status" gorm:"size:20;not null;default:PENDING"`
	Notes        string          `json:"notes" gorm:"size:500"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (OrderProduct) TableName() string {
	return "mes_order_products"
}
