package entity

import "gorm.io/gorm"

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 基础数据
		&Contact{},
		&Material{},
		&Product{},

		// 订单
		&Order{},
		&OrderProduct{},

		// 物料流水
		&MaterialMovement{},
	)
}

// SeedFallbackMaterial 确保兜底物料存在
func SeedFallbackMaterial(db *gorm.DB) error {
	fallback := Material{
		ID:   FallbackMaterialID,
		Name: "General Fabric",
		Code: "MAT-GENERAL",
		Unit: "pcs",
	}
	return db.Where("id = ?", FallbackMaterialID).FirstOrCreate(&fallback).Error
}
