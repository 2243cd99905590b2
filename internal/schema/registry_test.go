package schema_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/opsboard/import-engine/internal/domain"
	"github.com/opsboard/import-engine/internal/formula"
	"github.com/opsboard/import-engine/internal/repository"
	"github.com/opsboard/import-engine/internal/schema"
)

func setupRegistry(t *testing.T) *schema.Registry {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.CustomField{}))

	return schema.NewRegistry(repository.NewCustomFieldRepository(db), zap.NewNop())
}

func importFieldRequest(name string) domain.CreateCustomFieldRequest {
	return domain.CreateCustomFieldRequest{
		Name:          name,
		SourceType:    domain.SourceImport,
		DataType:      domain.TypeNumber,
		Format:        domain.FormatNumber,
		MatchKeywords: []string{"damaged units", "damages"},
		ShowInImport:  true,
		ShowInForms:   true,
	}
}

func TestRegistryListFields(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	all, err := reg.ListFields(ctx, domain.FieldFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(schema.CoreFields()))

	imports, err := reg.ListFields(ctx, domain.FieldFilter{SourceType: domain.SourceImport})
	require.NoError(t, err)
	for _, f := range imports {
		assert.Equal(t, domain.SourceImport, f.SourceType)
	}

	budget, err := reg.ListFields(ctx, domain.FieldFilter{Category: domain.CategoryBudget})
	require.NoError(t, err)
	assert.Len(t, budget, 3)
}

func TestRegistryGetField(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	f, err := reg.GetField(ctx, schema.FieldBudgetedVolume)
	require.NoError(t, err)
	assert.Equal(t, "Budgeted Volume", f.DisplayName)
	assert.True(t, f.IsCore)

	_, err = reg.GetField(ctx, "no-such-field")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistryAddCustomField(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	def, err := reg.AddCustomField(ctx, importFieldRequest("Damaged Units"))
	require.NoError(t, err)
	assert.Equal(t, "damaged-units", def.Field)
	assert.Equal(t, domain.CategoryCustom, def.Category)
	assert.False(t, def.IsCore)
	assert.True(t, def.IsEditable)

	// The new field is visible through the registry.
	got, err := reg.GetField(ctx, "damaged-units")
	require.NoError(t, err)
	assert.Equal(t, "Damaged Units", got.DisplayName)

	all, err := reg.ListFields(ctx, domain.FieldFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(schema.CoreFields())+1)
}

func TestRegistryAddCustomFieldDuplicateOfCore(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	before, err := reg.ListFields(ctx, domain.FieldFilter{})
	require.NoError(t, err)

	// "Date" derives to the core "date" key.
	req := importFieldRequest("Date")
	req.DataType = domain.TypeDate
	req.Format = domain.FormatDate
	_, err = reg.AddCustomField(ctx, req)
	assert.ErrorIs(t, err, domain.ErrDuplicateFieldKey)

	after, err := reg.ListFields(ctx, domain.FieldFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after, "registry must be unchanged after a rejected add")
}

func TestRegistryAddCustomFieldDuplicateOfCustom(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	_, err := reg.AddCustomField(ctx, importFieldRequest("Damaged Units"))
	require.NoError(t, err)

	// Same derived key, different spelling of the name.
	_, err = reg.AddCustomField(ctx, importFieldRequest("damaged   units"))
	assert.ErrorIs(t, err, domain.ErrDuplicateFieldKey)
}

func TestRegistryAddCalculatedField(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	req := domain.CreateCustomFieldRequest{
		Name:       "Units Per Hour",
		SourceType: domain.SourceCalculated,
		DataType:   domain.TypeNumber,
		Format:     domain.FormatDecimal,
		Formula: formula.Tokens{
			formula.NewMetric(schema.FieldActualVolume, "Actual Volume"),
			formula.NewOperator("/"),
			formula.NewMetric(schema.FieldActualHours, "Actual Hours"),
		},
		ShowInForms: true,
	}

	def, err := reg.AddCustomField(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "[Actual Volume] / [Actual Hours]", def.FormulaString)

	got, err := reg.GetField(ctx, "units-per-hour")
	require.NoError(t, err)
	require.Len(t, got.Formula, 3)
	assert.Equal(t, def.FormulaString, got.FormulaString)
}

func TestRegistryAddCalculatedFieldRejectsBadFormula(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	req := domain.CreateCustomFieldRequest{
		Name:       "Broken Metric",
		SourceType: domain.SourceCalculated,
		DataType:   domain.TypeNumber,
		Format:     domain.FormatDecimal,
		Formula: formula.Tokens{
			formula.NewOperator("+"),
			formula.NewMetric(schema.FieldActualVolume, "Actual Volume"),
		},
	}

	_, err := reg.AddCustomField(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidFormula)

	_, err = reg.GetField(ctx, "broken-metric")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistryAddCustomFieldInvalidRequest(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	req := importFieldRequest("")
	_, err := reg.AddCustomField(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	req = importFieldRequest("$%&")
	_, err = reg.AddCustomField(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegistryRemoveCustomField(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	_, err := reg.AddCustomField(ctx, importFieldRequest("Damaged Units"))
	require.NoError(t, err)

	require.NoError(t, reg.RemoveCustomField(ctx, "damaged-units"))
	_, err = reg.GetField(ctx, "damaged-units")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Removing again reports not found.
	assert.ErrorIs(t, reg.RemoveCustomField(ctx, "damaged-units"), domain.ErrNotFound)
}

func TestRegistryRemoveCoreFieldProtected(t *testing.T) {
	reg := setupRegistry(t)
	ctx := context.Background()

	err := reg.RemoveCustomField(ctx, schema.FieldTaskID)
	assert.ErrorIs(t, err, domain.ErrProtectedField)

	f, err := reg.GetField(ctx, schema.FieldTaskID)
	require.NoError(t, err)
	assert.True(t, f.IsCore)
}
