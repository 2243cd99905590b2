package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsboard/import-engine/internal/domain"
	"github.com/opsboard/import-engine/internal/repository"
	"github.com/opsboard/import-engine/internal/schema"
)

// dateLayouts are the cell formats accepted when deriving a dataset's
// date range. Spreadsheet exports are not consistent about this.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
}

// DatasetService owns the append-only collection of imported datasets.
// Datasets are never mutated in place; a re-import creates a new one.
type DatasetService struct {
	repo     *repository.DatasetRepository
	registry *schema.Registry
	logger   *zap.Logger
}

func NewDatasetService(repo *repository.DatasetRepository, registry *schema.Registry, logger *zap.Logger) *DatasetService {
	return &DatasetService{repo: repo, registry: registry, logger: logger}
}

// newDatasetID builds a time-prefixed id: the millisecond timestamp
// keeps ids ordered by creation, the uuid fragment keeps them unique
// within the same millisecond.
func newDatasetID(now time.Time) string {
	return fmt.Sprintf("ds_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
}

// Save persists rows as a new dataset, deriving metadata by a single
// scan over the rows.
func (s *DatasetService) Save(ctx context.Context, name string, rows []domain.Record, source domain.DatasetSource, datasetType domain.DatasetType, fileRef string) (*domain.ImportedDataset, error) {
	now := time.Now().UTC()
	dataset := &domain.ImportedDataset{
		ID:          newDatasetID(now),
		Name:        name,
		UploadedAt:  now,
		Source:      source,
		DatasetType: datasetType,
		FileRef:     fileRef,
		RowCount:    len(rows),
		ColumnCount: countColumns(rows),
		Data:        rows,
		Metadata:    ComputeMetadata(rows),
	}

	if err := s.repo.Create(ctx, dataset); err != nil {
		return nil, fmt.Errorf("failed to save dataset %q: %w", name, err)
	}

	s.logger.Info("Dataset saved",
		zap.String("id", dataset.ID),
		zap.String("name", name),
		zap.Int("rows", dataset.RowCount),
		zap.String("type", string(datasetType)),
	)
	return dataset, nil
}

func (s *DatasetService) ListAll(ctx context.Context) ([]domain.ImportedDataset, error) {
	datasets, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, nil
}

func (s *DatasetService) GetByID(ctx context.Context, id string) (*domain.ImportedDataset, error) {
	dataset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset %q: %w", id, err)
	}
	if dataset == nil {
		return nil, fmt.Errorf("dataset %q: %w", id, domain.ErrNotFound)
	}
	return dataset, nil
}

// Delete removes a dataset. Deleting an absent id is not an error.
func (s *DatasetService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete dataset %q: %w", id, err)
	}
	return nil
}

// ExportCSV writes a dataset as CSV: a header row of display names for
// every schema field present in the data, unmapped extra columns after
// them, one row per record. csv.Writer handles quoting of values
// containing commas or quotes.
func (s *DatasetService) ExportCSV(ctx context.Context, id string, w io.Writer) error {
	dataset, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	fields, err := s.registry.ListFields(ctx, domain.FieldFilter{})
	if err != nil {
		return fmt.Errorf("failed to list fields for export: %w", err)
	}

	present := make(map[string]bool)
	extras := make(map[string]bool)
	for _, row := range dataset.Data {
		for key := range row.Fields {
			present[key] = true
		}
		for header := range row.Extras {
			extras[header] = true
		}
	}

	var fieldKeys, headers []string
	for _, f := range fields {
		if present[f.Field] {
			fieldKeys = append(fieldKeys, f.Field)
			headers = append(headers, f.DisplayName)
		}
	}
	extraHeaders := make([]string, 0, len(extras))
	for h := range extras {
		extraHeaders = append(extraHeaders, h)
	}
	sort.Strings(extraHeaders)
	headers = append(headers, extraHeaders...)

	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range dataset.Data {
		record := make([]string, 0, len(fieldKeys)+len(extraHeaders))
		for _, key := range fieldKeys {
			record = append(record, row.Fields[key])
		}
		for _, h := range extraHeaders {
			record = append(record, row.Extras[h])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ComputeMetadata derives dataset metadata from the rows: distinct site
// and job-function identifiers (sorted for determinism) and the min/max
// parseable date.
func ComputeMetadata(rows []domain.Record) domain.DatasetMetadata {
	sites := make(map[string]bool)
	jobFunctions := make(map[string]bool)
	var minDate, maxDate time.Time

	for _, row := range rows {
		if v := strings.TrimSpace(row.Get(schema.FieldSiteID)); v != "" {
			sites[v] = true
		}
		if v := strings.TrimSpace(row.Get(schema.FieldJobFunctionID)); v != "" {
			jobFunctions[v] = true
		}
		if raw := strings.TrimSpace(row.Get(schema.FieldDate)); raw != "" {
			if d, ok := parseDate(raw); ok {
				if minDate.IsZero() || d.Before(minDate) {
					minDate = d
				}
				if maxDate.IsZero() || d.After(maxDate) {
					maxDate = d
				}
			}
		}
	}

	meta := domain.DatasetMetadata{
		SiteIDs:        sortedKeys(sites),
		JobFunctionIDs: sortedKeys(jobFunctions),
	}
	if !minDate.IsZero() {
		meta.DateRange = &domain.DateRange{
			Start: minDate.Format("2006-01-02"),
			End:   maxDate.Format("2006-01-02"),
		}
	}
	return meta
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func countColumns(rows []domain.Record) int {
	fields := make(map[string]bool)
	extras := make(map[string]bool)
	for _, row := range rows {
		for k := range row.Fields {
			fields[k] = true
		}
		for k := range row.Extras {
			extras[k] = true
		}
	}
	return len(fields) + len(extras)
}
