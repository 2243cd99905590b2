package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opsboard/import-engine/internal/domain"
)

type ImportConfigRepository struct {
	db *gorm.DB
}

func NewImportConfigRepository(db *gorm.DB) *ImportConfigRepository {
	return &ImportConfigRepository{db: db}
}

// Get returns nil without an error when no override row exists.
func (r *ImportConfigRepository) Get(ctx context.Context, key string) (*domain.ImportConfig, error) {
	var cfg domain.ImportConfig
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *ImportConfigRepository) Upsert(ctx context.Context, cfg *domain.ImportConfig) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(cfg).Error
}
