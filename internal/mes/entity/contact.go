package entity

import (
	"time"
)

// ContactType 联系人类型
const (
	ContactTypeWorker   = "WORKER"
	ContactTypeCustomer = "CUSTOMER"
	ContactTypeSupplier = "SUPPLIER"
)

// Contact 联系人（工人/客户/供应商共用一张表）
type Contact struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:128;not null"`
	ContactType string    `json:"contact_type" gorm:"size:20;not null;index"`
	Phone       string    `json:"phone" gorm:"size:32"`
	Email       string    `json:"email" gorm:"size:128"`
	Address     string    `json:"address" gorm:"size:500"`
	Notes       string    `json:"notes" gorm:"size:500"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Contact) TableName() string {
	return "mes_contacts"
}
