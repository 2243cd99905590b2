package schema

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opsboard/import-engine/internal/domain"
	"github.com/opsboard/import-engine/internal/formula"
)

// CustomFieldStore is the persistence the registry needs for
// user-defined fields.
type CustomFieldStore interface {
	List(ctx context.Context) ([]domain.CustomField, error)
	GetByKey(ctx context.Context, key string) (*domain.CustomField, error)
	Create(ctx context.Context, field *domain.CustomField) error
	Delete(ctx context.Context, key string) error
}

// Registry is the canonical field schema: the immutable core catalog
// unioned with stored custom fields.
type Registry struct {
	store     CustomFieldStore
	core      []domain.FieldDefinition
	coreByKey map[string]domain.FieldDefinition
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewRegistry(store CustomFieldStore, logger *zap.Logger) *Registry {
	core := CoreFields()
	byKey := make(map[string]domain.FieldDefinition, len(core))
	for _, f := range core {
		byKey[f.Field] = f
	}
	return &Registry{
		store:     store,
		core:      core,
		coreByKey: byKey,
		validate:  validator.New(),
		logger:    logger,
	}
}

// CoreFields returns a copy of the built-in catalog.
func (r *Registry) CoreFields() []domain.FieldDefinition {
	out := make([]domain.FieldDefinition, len(r.core))
	copy(out, r.core)
	return out
}

// IsCoreField reports whether key belongs to the built-in catalog.
func (r *Registry) IsCoreField(key string) bool {
	_, ok := r.coreByKey[key]
	return ok
}

// ListFields returns core fields followed by custom fields, optionally
// filtered. Order is stable: core catalog order, then custom fields in
// store order.
func (r *Registry) ListFields(ctx context.Context, filter domain.FieldFilter) ([]domain.FieldDefinition, error) {
	custom, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom fields: %w", err)
	}

	out := make([]domain.FieldDefinition, 0, len(r.core)+len(custom))
	for _, f := range r.core {
		if filter.Matches(f) {
			out = append(out, f)
		}
	}
	for i := range custom {
		def := custom[i].Definition()
		if filter.Matches(def) {
			out = append(out, def)
		}
	}
	return out, nil
}

// GetField looks a field up by key across core and custom fields.
func (r *Registry) GetField(ctx context.Context, key string) (*domain.FieldDefinition, error) {
	if f, ok := r.coreByKey[key]; ok {
		return &f, nil
	}
	stored, err := r.store.GetByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up field %q: %w", key, err)
	}
	if stored == nil {
		return nil, fmt.Errorf("field %q: %w", key, domain.ErrNotFound)
	}
	def := stored.Definition()
	return &def, nil
}

// AddCustomField creates a user-defined field from the metric builder
// request. The field key is derived from the name; a key collision with
// any existing field, core or custom, fails with ErrDuplicateFieldKey
// and leaves the registry unchanged.
func (r *Registry) AddCustomField(ctx context.Context, req domain.CreateCustomFieldRequest) (*domain.FieldDefinition, error) {
	if err := r.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	key := DeriveFieldKey(req.Name)
	if key == "" {
		return nil, fmt.Errorf("%w: name %q yields an empty field key", domain.ErrInvalidInput, req.Name)
	}

	if _, ok := r.coreByKey[key]; ok {
		return nil, fmt.Errorf("field %q: %w", key, domain.ErrDuplicateFieldKey)
	}
	existing, err := r.store.GetByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check field %q: %w", key, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("field %q: %w", key, domain.ErrDuplicateFieldKey)
	}

	def := domain.FieldDefinition{
		Field:         key,
		DisplayName:   req.Name,
		Description:   req.Description,
		SourceType:    req.SourceType,
		Category:      req.Category,
		DataType:      req.DataType,
		Format:        req.Format,
		Decimals:      req.Decimals,
		MatchKeywords: req.MatchKeywords,
		IsCore:        false,
		IsEditable:    true,
		ShowInImport:  req.ShowInImport,
		ShowInForms:   req.ShowInForms,
	}
	if def.Category == "" {
		def.Category = domain.CategoryCustom
	}

	switch req.SourceType {
	case domain.SourceCalculated:
		if res := formula.Validate(req.Formula); !res.Valid {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidFormula, res.Message)
		}
		def.Formula = req.Formula
		def.FormulaString = req.Formula.String()
	case domain.SourceImport:
		// An import field without keywords is legal but will never be
		// auto-detected; the display name still participates in matching.
		def.Formula = nil
	}

	if err := r.store.Create(ctx, domain.CustomFieldFromDefinition(def)); err != nil {
		return nil, fmt.Errorf("failed to create custom field %q: %w", key, err)
	}

	r.logger.Info("Custom field created",
		zap.String("field", key),
		zap.String("source_type", string(def.SourceType)),
	)
	return &def, nil
}

// RemoveCustomField deletes a user-defined field. Core fields are
// protected.
func (r *Registry) RemoveCustomField(ctx context.Context, key string) error {
	if _, ok := r.coreByKey[key]; ok {
		return fmt.Errorf("field %q: %w", key, domain.ErrProtectedField)
	}

	stored, err := r.store.GetByKey(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to look up field %q: %w", key, err)
	}
	if stored == nil {
		return fmt.Errorf("field %q: %w", key, domain.ErrNotFound)
	}

	if err := r.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete custom field %q: %w", key, err)
	}

	r.logger.Info("Custom field removed", zap.String("field", key))
	return nil
}
