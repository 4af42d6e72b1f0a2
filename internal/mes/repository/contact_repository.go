package repository

import (
	"context"
	"errors"

	"github.com/loomworks/atelier/internal/mes/entity"
	"gorm.io/gorm"
)

// ContactRepository 联系人仓库
type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// FindActiveWorker 查询活跃的工人联系人；类型不符或已停用视为不存在
func (r *ContactRepository) FindActiveWorker(ctx context.Context, id uint) (*entity.Contact, error) {
	var contact entity.Contact
	err := r.db.WithContext(ctx).
		Where("id = ? AND contact_type = ? AND is_active = ?", id, entity.ContactTypeWorker, true).
		First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &contact, nil
}

// ListActiveWorkers 全部活跃工人（workers cache 的数据源）
func (r *ContactRepository) ListActiveWorkers(ctx context.Context) ([]entity.Contact, error) {
	workers := make([]entity.Contact, 0)
	err := r.db.WithContext(ctx).
		Where("contact_type = ? AND is_active = ?", entity.ContactTypeWorker, true).
		Order("name ASC").
		Find(&workers).Error
	return workers, err
}
