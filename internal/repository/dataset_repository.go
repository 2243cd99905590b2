package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/opsboard/import-engine/internal/domain"
)

type DatasetRepository struct {
	db *gorm.DB
}

func NewDatasetRepository(db *gorm.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

func (r *DatasetRepository) Create(ctx context.Context, dataset *domain.ImportedDataset) error {
	return r.db.WithContext(ctx).Create(dataset).Error
}

func (r *DatasetRepository) List(ctx context.Context) ([]domain.ImportedDataset, error) {
	var datasets []domain.ImportedDataset
	err := r.db.WithContext(ctx).Order("uploaded_at DESC").Find(&datasets).Error
	return datasets, err
}

// GetByID returns nil without an error when the dataset does not exist.
func (r *DatasetRepository) GetByID(ctx context.Context, id string) (*domain.ImportedDataset, error) {
	var dataset domain.ImportedDataset
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dataset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}

// Delete is idempotent: deleting an absent id is not an error.
func (r *DatasetRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.ImportedDataset{}, "id = ?", id).Error
}

func (r *DatasetRepository) Count(ctx context.Context) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ImportedDataset{}).Count(&count).Error
	return int(count), err
}
