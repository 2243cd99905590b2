package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/opsboard/import-engine/internal/domain"
	"github.com/opsboard/import-engine/internal/matching"
	"github.com/opsboard/import-engine/internal/repository"
	"github.com/opsboard/import-engine/internal/schema"
)

// SessionState tracks one upload attempt through the import flow.
type SessionState string

const (
	StateIdle             SessionState = "idle"
	StateHeadersExtracted SessionState = "headers-extracted"
	StateMappingProposed  SessionState = "mapping-proposed"
	StateMappingConfirmed SessionState = "mapping-confirmed"
	StateValidating       SessionState = "validating"
	StatePersisted        SessionState = "persisted"
	StateValidationFailed SessionState = "validation-failed"
)

// ImportService orchestrates the import pipeline: propose a mapping
// (saved or matched), confirm it, project rows into canonical records,
// validate, and persist. No path reaches persistence without passing
// validation.
type ImportService struct {
	registry     *schema.Registry
	mappings     *MappingService
	datasets     *DatasetService
	configRepo   *repository.ImportConfigRepository
	defaultRules domain.ValidationRules
	logger       *zap.Logger
}

func NewImportService(
	registry *schema.Registry,
	mappings *MappingService,
	datasets *DatasetService,
	configRepo *repository.ImportConfigRepository,
	defaultRules domain.ValidationRules,
	logger *zap.Logger,
) *ImportService {
	return &ImportService{
		registry:     registry,
		mappings:     mappings,
		datasets:     datasets,
		configRepo:   configRepo,
		defaultRules: defaultRules,
		logger:       logger,
	}
}

// Rules returns the effective validation rules: the configured defaults
// overlaid with the persisted override row, if one exists and parses. A
// corrupt override payload is discarded with a warning.
func (s *ImportService) Rules(ctx context.Context) (domain.ValidationRules, error) {
	rules := s.defaultRules

	stored, err := s.configRepo.Get(ctx, domain.DefaultImportConfigKey)
	if err != nil {
		return rules, fmt.Errorf("failed to read import config: %w", err)
	}
	if stored == nil {
		return rules, nil
	}

	if err := json.Unmarshal([]byte(stored.Payload), &rules); err != nil {
		s.logger.Warn("Discarding malformed import config", zap.Error(err))
		return s.defaultRules, nil
	}
	return rules, nil
}

// SaveRules persists rule overrides for future imports.
func (s *ImportService) SaveRules(ctx context.Context, rules domain.ValidationRules) error {
	payload, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to encode import config: %w", err)
	}
	err = s.configRepo.Upsert(ctx, &domain.ImportConfig{
		Key:     domain.DefaultImportConfigKey,
		Payload: string(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to save import config: %w", err)
	}
	return nil
}

// NewSession starts an idle import session.
func (s *ImportService) NewSession() *ImportSession {
	return &ImportSession{svc: s, state: StateIdle}
}

// ImportSession is one upload attempt moving through
// Idle → HeadersExtracted → MappingProposed → MappingConfirmed →
// Validating → {Persisted | ValidationFailed}. Sessions are not safe
// for concurrent use; every transition is a synchronous user action.
type ImportSession struct {
	svc   *ImportService
	state SessionState

	fileName string
	headers  []string
	rows     [][]string

	proposed    []domain.ColumnMapping
	autoMapping map[string]string
	confirmed   map[string]string
	result      *domain.ValidationResult
}

func (sess *ImportSession) State() SessionState { return sess.state }

// Result returns the most recent validation report, if any.
func (sess *ImportSession) Result() *domain.ValidationResult { return sess.result }

// SetSource loads decoded spreadsheet content into the session. It may
// be called from any state: a new upload discards whatever mapping
// state the previous one had.
func (sess *ImportSession) SetSource(fileName string, headers []string, rows [][]string) error {
	if len(headers) == 0 {
		return fmt.Errorf("%w: decoded input has no columns", domain.ErrFileReadFailure)
	}

	*sess = ImportSession{svc: sess.svc, state: StateHeadersExtracted, fileName: fileName, headers: headers, rows: rows}
	return nil
}

// ProposeMapping builds the header→field proposal: a saved mapping for
// this file name is preferred (with legacy keys migrated and stale
// fields dropped); otherwise columns are auto-detected. Every header
// appears in the proposal, unmapped ones with confidence none.
func (sess *ImportSession) ProposeMapping(ctx context.Context) ([]domain.ColumnMapping, error) {
	switch sess.state {
	case StateHeadersExtracted, StateMappingProposed, StateValidationFailed:
	default:
		return nil, fmt.Errorf("propose mapping from state %q: %w", sess.state, domain.ErrSessionState)
	}

	saved, err := sess.svc.mappings.Load(ctx, sess.fileName)
	if err != nil {
		return nil, err
	}

	var proposed []domain.ColumnMapping
	if restored := sess.restoreFromSaved(ctx, saved); restored != nil {
		proposed = restored
		sess.svc.logger.Info("Restored saved column mapping",
			zap.String("file", sess.fileName),
		)
	} else {
		fields, err := sess.svc.registry.ListFields(ctx, domain.FieldFilter{
			SourceType: domain.SourceImport,
			ImportOnly: true,
		})
		if err != nil {
			return nil, err
		}
		proposed = matching.MatchAll(sess.headers, fields)
	}

	sess.proposed = proposed
	sess.autoMapping = mappingOf(proposed)
	sess.state = StateMappingProposed
	return proposed, nil
}

// restoreFromSaved turns a saved mapping into column mappings, or nil
// when the saved mapping covers none of this file's headers.
func (sess *ImportSession) restoreFromSaved(ctx context.Context, saved map[string]string) []domain.ColumnMapping {
	if len(saved) == 0 {
		return nil
	}

	restored := 0
	out := make([]domain.ColumnMapping, 0, len(sess.headers))
	for _, header := range sess.headers {
		fieldKey, ok := saved[header]
		if ok {
			field, err := sess.svc.registry.GetField(ctx, fieldKey)
			if err == nil {
				out = append(out, domain.ColumnMapping{
					UserColumn:  header,
					SystemField: field.Field,
					Confidence:  domain.ConfidenceHigh,
					Score:       100,
					IsRequired:  field.Required,
				})
				restored++
				continue
			}
			// Saved field no longer exists; fall through to unmapped.
		}
		out = append(out, domain.ColumnMapping{UserColumn: header, Confidence: domain.ConfidenceNone})
	}
	if restored == 0 {
		return nil
	}
	return out
}

// ConfirmMapping finalizes the proposal into a plain userColumn→field
// map, applying user overrides. An override with an empty field unmaps
// the column. The confirmed mapping is persisted for this file name
// only when the user changed something the auto-detection proposed.
func (sess *ImportSession) ConfirmMapping(ctx context.Context, overrides map[string]string) (map[string]string, error) {
	if sess.state != StateMappingProposed {
		return nil, fmt.Errorf("confirm mapping from state %q: %w", sess.state, domain.ErrSessionState)
	}

	final := make(map[string]string, len(sess.autoMapping))
	for column, field := range sess.autoMapping {
		final[column] = field
	}

	known := make(map[string]bool, len(sess.headers))
	for _, h := range sess.headers {
		known[h] = true
	}

	for column, fieldKey := range overrides {
		if !known[column] {
			return nil, fmt.Errorf("%w: column %q is not in the uploaded file", domain.ErrInvalidInput, column)
		}
		if fieldKey == "" {
			delete(final, column)
			continue
		}
		if _, err := sess.svc.registry.GetField(ctx, fieldKey); err != nil {
			return nil, fmt.Errorf("override for column %q: %w", column, err)
		}
		final[column] = fieldKey
	}

	claimed := make(map[string]string, len(final))
	for column, fieldKey := range final {
		if prev, ok := claimed[fieldKey]; ok {
			return nil, fmt.Errorf("%w: columns %q and %q both map to field %q",
				domain.ErrInvalidInput, prev, column, fieldKey)
		}
		claimed[fieldKey] = column
	}

	if !equalMappings(final, sess.autoMapping) {
		if err := sess.svc.mappings.Save(ctx, sess.fileName, final); err != nil {
			return nil, err
		}
	}

	sess.confirmed = final
	sess.state = StateMappingConfirmed
	return final, nil
}

// ValidateAndPersist projects the raw rows through the confirmed
// mapping, validates the canonical records, and persists a dataset when
// validation produces no errors. On errors the session moves to
// ValidationFailed and nothing is persisted; the report is returned
// either way. Warnings alone do not block persistence.
func (sess *ImportSession) ValidateAndPersist(ctx context.Context, name string, datasetType domain.DatasetType) (*domain.ValidationResult, *domain.ImportedDataset, error) {
	if sess.state != StateMappingConfirmed {
		return nil, nil, fmt.Errorf("validate from state %q: %w", sess.state, domain.ErrSessionState)
	}

	sess.state = StateValidating
	records := sess.project()

	rules, err := sess.svc.Rules(ctx)
	if err != nil {
		sess.state = StateMappingConfirmed
		return nil, nil, err
	}

	result := ValidateRows(records, rules)
	sess.result = &result

	if !result.IsValid {
		sess.state = StateValidationFailed
		sess.svc.logger.Info("Import validation failed",
			zap.String("file", sess.fileName),
			zap.Int("errors", len(result.Errors)),
			zap.Int("warnings", len(result.Warnings)),
		)
		return &result, nil, nil
	}

	dataset, err := sess.svc.datasets.Save(ctx, name, records, domain.SourceFile, datasetType, sess.fileName)
	if err != nil {
		sess.state = StateMappingConfirmed
		return &result, nil, err
	}

	sess.state = StatePersisted
	return &result, dataset, nil
}

// Remap returns a failed session to the mapping step so the user can
// adjust and retry.
func (sess *ImportSession) Remap() error {
	if sess.state != StateValidationFailed {
		return fmt.Errorf("remap from state %q: %w", sess.state, domain.ErrSessionState)
	}
	sess.state = StateMappingProposed
	sess.confirmed = nil
	sess.result = nil
	return nil
}

// Abandon discards the session back to idle.
func (sess *ImportSession) Abandon() {
	*sess = ImportSession{svc: sess.svc, state: StateIdle}
}

// project turns raw rows into canonical records through the confirmed
// mapping. Values from unmapped columns land in Extras under the
// original header so nothing is silently dropped. Rows that are blank
// in every cell are skipped.
func (sess *ImportSession) project() []domain.Record {
	records := make([]domain.Record, 0, len(sess.rows))
	for _, row := range sess.rows {
		if blankRow(row) {
			continue
		}
		record := domain.Record{Fields: make(map[string]string)}
		for i, header := range sess.headers {
			var value string
			if i < len(row) {
				value = strings.TrimSpace(row[i])
			}
			if fieldKey, ok := sess.confirmed[header]; ok && fieldKey != "" {
				record.Fields[fieldKey] = value
			} else {
				if record.Extras == nil {
					record.Extras = make(map[string]string)
				}
				record.Extras[header] = value
			}
		}
		records = append(records, record)
	}
	return records
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func mappingOf(mappings []domain.ColumnMapping) map[string]string {
	out := make(map[string]string)
	for _, m := range mappings {
		if m.SystemField != "" {
			out[m.UserColumn] = m.SystemField
		}
	}
	return out
}

func equalMappings(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
