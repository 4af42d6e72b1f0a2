package repository

import (
	"context"
	"strings"

	"github.com/loomworks/atelier/internal/mes/entity"
	"gorm.io/gorm"
)

// ProductRepository 产品仓库
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindByIDs 批量查询活跃产品，结果按ID索引
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]*entity.Product, error) {
	var products []entity.Product
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*entity.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return byID, nil
}

// List 产品列表（看板选择器用）
func (r *ProductRepository) List(ctx context.Context, search string, page, limit int) ([]entity.Product, int64, error) {
	var products []entity.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Product{}).Where("is_active = ?", true)
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("name ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error

	return products, total, err
}
