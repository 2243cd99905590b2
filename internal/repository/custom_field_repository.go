package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/opsboard/import-engine/internal/domain"
)

type CustomFieldRepository struct {
	db *gorm.DB
}

func NewCustomFieldRepository(db *gorm.DB) *CustomFieldRepository {
	return &CustomFieldRepository{db: db}
}

func (r *CustomFieldRepository) List(ctx context.Context) ([]domain.CustomField, error) {
	var fields []domain.CustomField
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&fields).Error
	return fields, err
}

// GetByKey returns nil without an error when the field does not exist.
func (r *CustomFieldRepository) GetByKey(ctx context.Context, key string) (*domain.CustomField, error) {
	var field domain.CustomField
	err := r.db.WithContext(ctx).Where("field = ?", key).First(&field).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &field, nil
}

func (r *CustomFieldRepository) Create(ctx context.Context, field *domain.CustomField) error {
	return r.db.WithContext(ctx).Create(field).Error
}

func (r *CustomFieldRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&domain.CustomField{}, "field = ?", key).Error
}
