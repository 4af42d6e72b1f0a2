package entity

import (
	"time"
)

// MovementType 库存流水方向
const (
	MovementIn  = "IN"
	MovementOut = "OUT"
)

// MaterialMovement 库存流水。只追加，本服务从不修改或删除已有记录。
type MaterialMovement struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	MaterialID   uint      `json:"material_id" gorm:"not null;index"`
	OrderID      *uint     `json:"order_id" gorm:"index"`
	MovementType string    `json:"movement_type" gorm:"size:10;not null"`
	Quantity     float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	Unit         string    `json:"unit" gorm:"size:20;not null;default:pcs"`
	QtyAfter     float64   `json:"qty_after" gorm:"type:decimal(12,4);not null"`
	Notes        string    `json:"notes" gorm:"type:text"`
	MovementDate time.Time `json:"movement_date" gorm:"not null;index"`
	CreatedBy    string    `json:"created_by" gorm:"size:64;not null"`
	CreatedAt    time.Time `json:"created_at"`
}

func (MaterialMovement) TableName() string {
	return "mes_material_movements"
}
