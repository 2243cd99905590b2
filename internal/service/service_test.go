package service_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/opsboard/import-engine/internal/database"
	"github.com/opsboard/import-engine/internal/domain"
	"github.com/opsboard/import-engine/internal/repository"
	"github.com/opsboard/import-engine/internal/schema"
	"github.com/opsboard/import-engine/internal/service"
)

// testEnv wires the full service stack against an in-memory database.
type testEnv struct {
	db       *gorm.DB
	registry *schema.Registry
	mappings *service.MappingService
	datasets *service.DatasetService
	importer *service.ImportService

	mappingRepo *repository.MappingRepository
	configRepo  *repository.ImportConfigRepository
}

func setupEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	log := zap.NewNop()
	customFieldRepo := repository.NewCustomFieldRepository(db)
	mappingRepo := repository.NewMappingRepository(db)
	datasetRepo := repository.NewDatasetRepository(db)
	configRepo := repository.NewImportConfigRepository(db)

	registry := schema.NewRegistry(customFieldRepo, log)
	mappings := service.NewMappingService(mappingRepo, log)
	datasets := service.NewDatasetService(datasetRepo, registry, log)
	importer := service.NewImportService(registry, mappings, datasets, configRepo, domain.DefaultValidationRules(), log)

	return &testEnv{
		db:          db,
		registry:    registry,
		mappings:    mappings,
		datasets:    datasets,
		importer:    importer,
		mappingRepo: mappingRepo,
		configRepo:  configRepo,
	}
}

// record builds a canonical row from field key/value pairs.
func record(pairs ...string) domain.Record {
	r := domain.Record{Fields: make(map[string]string)}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Fields[pairs[i]] = pairs[i+1]
	}
	return r
}
