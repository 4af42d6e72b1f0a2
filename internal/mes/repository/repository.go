package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound 记录不存在或已被软删
var ErrNotFound = errors.New("record not found")

// Repositories MES仓库集合
type Repositories struct {
	Order    *OrderRepository
	Product  *ProductRepository
	Contact  *ContactRepository
	Movement *MovementRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:    NewOrderRepository(db),
		Product:  NewProductRepository(db),
		Contact:  NewContactRepository(db),
		Movement: NewMovementRepository(db),
	}
}
