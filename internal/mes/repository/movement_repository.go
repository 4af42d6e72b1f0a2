package repository

import (
	"context"

	"github.com/loomworks/atelier/internal/mes/entity"
	"gorm.io/gorm"
)

// MovementRepository 库存流水仓库。流水只追加，没有更新和删除。
type MovementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// Create 追加一条流水
func (r *MovementRepository) Create(ctx context.Context, movement *entity.MaterialMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// MovementListParams 流水查询条件
type MovementListParams struct {
	MaterialID uint
	OrderID    uint
	Page       int
	Limit      int
}

// List 分页查询流水，按发生时间倒序
func (r *MovementRepository) List(ctx context.Context, params MovementListParams) ([]entity.MaterialMovement, int64, error) {
	var movements []entity.MaterialMovement
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.MaterialMovement{})
	if params.MaterialID != 0 {
		query = query.Where("material_id = ?", params.MaterialID)
	}
	if params.OrderID != 0 {
		query = query.Where("order_id = ?", params.OrderID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("movement_date DESC, id DESC").
		Offset((params.Page - 1) * params.Limit).
		Limit(params.Limit).
		Find(&movements).Error

	return movements, total, err
}
