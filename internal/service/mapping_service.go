package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/opsboard/import-engine/internal/domain"
	"github.com/opsboard/import-engine/internal/repository"
	"github.com/opsboard/import-engine/internal/schema"
)

// legacyFieldKeys maps field keys from previous schema versions to their
// current canonical names. Applied to every loaded mapping so mappings
// saved under an older schema remain valid.
var legacyFieldKeys = map[string]string{
	"task":        schema.FieldTaskID,
	"jobFunction": schema.FieldJobFunctionID,
	"dc":          schema.FieldSiteID,
	"site":        schema.FieldSiteID,
}

// MappingService remembers confirmed column mappings per file name. The
// file name is the identity: two different files with the same name
// overwrite each other, which is accepted behavior.
type MappingService struct {
	repo   *repository.MappingRepository
	logger *zap.Logger
}

func NewMappingService(repo *repository.MappingRepository, logger *zap.Logger) *MappingService {
	return &MappingService{repo: repo, logger: logger}
}

// Load returns the stored userColumn→fieldKey map for a file, with
// legacy field keys migrated, or nil when nothing usable is stored. A
// payload that fails to parse is treated as absence, not as an error.
func (s *MappingService) Load(ctx context.Context, fileKey string) (map[string]string, error) {
	stored, err := s.repo.GetByFileKey(ctx, fileKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load mapping for %q: %w", fileKey, err)
	}
	if stored == nil {
		return nil, nil
	}

	var mapping map[string]string
	if err := json.Unmarshal([]byte(stored.Payload), &mapping); err != nil {
		s.logger.Warn("Discarding malformed stored mapping",
			zap.String("file_key", fileKey),
			zap.Error(err),
		)
		return nil, nil
	}

	for column, field := range mapping {
		if current, ok := legacyFieldKeys[field]; ok {
			mapping[column] = current
		}
	}
	return mapping, nil
}

// Save overwrites any prior mapping stored for the same file key.
func (s *MappingService) Save(ctx context.Context, fileKey string, mapping map[string]string) error {
	payload, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to encode mapping for %q: %w", fileKey, err)
	}

	err = s.repo.Upsert(ctx, &domain.SavedMapping{
		FileKey: fileKey,
		Payload: string(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to save mapping for %q: %w", fileKey, err)
	}

	s.logger.Info("Column mapping saved",
		zap.String("file_key", fileKey),
		zap.Int("columns", len(mapping)),
	)
	return nil
}
