package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opsboard/import-engine/internal/domain"
)

type MappingRepository struct {
	db *gorm.DB
}

func NewMappingRepository(db *gorm.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// GetByFileKey returns nil without an error when no mapping is stored
// for the file key.
func (r *MappingRepository) GetByFileKey(ctx context.Context, fileKey string) (*domain.SavedMapping, error) {
	var mapping domain.SavedMapping
	err := r.db.WithContext(ctx).Where("file_key = ?", fileKey).First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// Upsert overwrites any prior mapping stored for the same file key.
func (r *MappingRepository) Upsert(ctx context.Context, mapping *domain.SavedMapping) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(mapping).Error
}

func (r *MappingRepository) Delete(ctx context.Context, fileKey string) error {
	return r.db.WithContext(ctx).Delete(&domain.SavedMapping{}, "file_key = ?", fileKey).Error
}
