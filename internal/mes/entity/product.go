package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product 成品档案
type Product struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	Name       string          `json:"name" gorm:"size:128;not null"`
	Code       string          `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Unit       string          `json:"unit" gorm:"size:20;not null;default:pcs"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	QtyOnHand  float64         `json:"qty_on_hand" gorm:"type:decimal(12,4);not null;default:0"`
	MaterialID *uint           `json:"material_id" gorm:"index"`
	IsActive   bool            `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Material *Material `json:"material,omitempty" gorm:"foreignKey:MaterialID"`
}

func (Product) TableName() string {
	return "mes_products"
}

// FallbackMaterialID 产品未关联面料时库存流水使用的兜底物料
const FallbackMaterialID uint = 1

// Material 物料（面料/辅料）档案
type Material struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	Code      string    `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Unit      string    `json:"unit" gorm:"size:20;not null;default:pcs"`
	QtyOnHand float64   `json:"qty_on_hand" gorm:"type:decimal(12,4);not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Material) TableName() string {
	return "mes_materials"
}
