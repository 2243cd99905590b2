package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsboard/import-engine/internal/domain"
	"github.com/opsboard/import-engine/internal/schema"
	"github.com/opsboard/import-engine/internal/service"
)

var budgetHeaders = []string{"Task ID", "Budgeted Volume", "Budgeted Rate", "Budgeted Hours", "Mystery"}

func startSession(t *testing.T, env *testEnv, rows [][]string) *service.ImportSession {
	t.Helper()
	sess := env.importer.NewSession()
	require.NoError(t, sess.SetSource("budget.csv", budgetHeaders, rows))
	return sess
}

func TestImportSessionHappyPath(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	sess := startSession(t, env, [][]string{
		{"Pick", "100", "10", "10", "x"},
		{"", "", "", "", ""},
		{"Pack", "200", "20", "10", "y"},
	})
	assert.Equal(t, service.StateHeadersExtracted, sess.State())

	proposed, err := sess.ProposeMapping(ctx)
	require.NoError(t, err)
	require.Len(t, proposed, len(budgetHeaders))
	assert.Equal(t, service.StateMappingProposed, sess.State())

	confirmed, err := sess.ConfirmMapping(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, schema.FieldTaskID, confirmed["Task ID"])
	assert.NotContains(t, confirmed, "Mystery")

	result, dataset, err := sess.ValidateAndPersist(ctx, "March Budget", domain.DatasetBudget)
	require.NoError(t, err)
	require.NotNil(t, dataset)
	assert.True(t, result.IsValid)
	assert.Equal(t, service.StatePersisted, sess.State())

	// Blank rows are dropped; unmapped cells survive in Extras.
	assert.Equal(t, 2, dataset.RowCount)
	assert.Equal(t, "x", dataset.Data[0].Extras["Mystery"])
	assert.Equal(t, "100", dataset.Data[0].Get(schema.FieldBudgetedVolume))
}

func TestImportSessionNoMappingSavedWithoutOverrides(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	sess := startSession(t, env, [][]string{{"Pick", "100", "10", "10", "x"}})
	_, err := sess.ProposeMapping(ctx)
	require.NoError(t, err)
	_, err = sess.ConfirmMapping(ctx, nil)
	require.NoError(t, err)

	saved, err := env.mappings.Load(ctx, "budget.csv")
	require.NoError(t, err)
	assert.Nil(t, saved, "accepting the proposal as-is stores nothing")
}

func TestImportSessionOverrideSavesAndRestoresMapping(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	sess := startSession(t, env, [][]string{{"Pick", "100", "10", "10", "Outbound"}})
	_, err := sess.ProposeMapping(ctx)
	require.NoError(t, err)

	confirmed, err := sess.ConfirmMapping(ctx, map[string]string{"Mystery": schema.FieldJobFunctionID})
	require.NoError(t, err)
	assert.Equal(t, schema.FieldJobFunctionID, confirmed["Mystery"])

	saved, err := env.mappings.Load(ctx, "budget.csv")
	require.NoError(t, err)
	assert.Equal(t, confirmed, saved)

	// A later session for the same file restores the stored mapping at
	// full confidence instead of re-matching.
	next := startSession(t, env, [][]string{{"Pack", "50", "5", "10", "Inbound"}})
	proposed, err := next.ProposeMapping(ctx)
	require.NoError(t, err)
	byColumn := make(map[string]domain.ColumnMapping)
	for _, m := range proposed {
		byColumn[m.UserColumn] = m
	}
	assert.Equal(t, schema.FieldJobFunctionID, byColumn["Mystery"].SystemField)
	assert.Equal(t, domain.ConfidenceHigh, byColumn["Mystery"].Confidence)
	assert.Equal(t, 100, byColumn["Mystery"].Score)
}

func TestImportSessionConfirmRejectsBadOverrides(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	sess := startSession(t, env, [][]string{{"Pick", "100", "10", "10", "x"}})
	_, err := sess.ProposeMapping(ctx)
	require.NoError(t, err)

	_, err = sess.ConfirmMapping(ctx, map[string]string{"Not A Column": schema.FieldTaskID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = sess.ConfirmMapping(ctx, map[string]string{"Mystery": "no-such-field"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Two columns may not claim the same field.
	_, err = sess.ConfirmMapping(ctx, map[string]string{"Mystery": schema.FieldTaskID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// The session is still at the mapping step and can recover.
	assert.Equal(t, service.StateMappingProposed, sess.State())
	_, err = sess.ConfirmMapping(ctx, nil)
	assert.NoError(t, err)
}

func TestImportSessionUnmapViaEmptyOverride(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	sess := startSession(t, env, [][]string{{"Pick", "100", "10", "10", "x"}})
	_, err := sess.ProposeMapping(ctx)
	require.NoError(t, err)

	confirmed, err := sess.ConfirmMapping(ctx, map[string]string{"Budgeted Hours": ""})
	require.NoError(t, err)
	assert.NotContains(t, confirmed, "Budgeted Hours")

	_, dataset, err := sess.ValidateAndPersist(ctx, "No Hours", domain.DatasetBudget)
	require.NoError(t, err)
	require.NotNil(t, dataset)
	assert.Equal(t, "10", dataset.Data[0].Extras["Budgeted Hours"])
}

func TestImportSessionValidationFailureThenRemap(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	sess := startSession(t, env, [][]string{{"", "100", "10", "10", "x"}})
	_, err := sess.ProposeMapping(ctx)
	require.NoError(t, err)
	_, err = sess.ConfirmMapping(ctx, nil)
	require.NoError(t, err)

	result, dataset, err := sess.ValidateAndPersist(ctx, "Bad Budget", domain.DatasetBudget)
	require.NoError(t, err, "validation failure is a report, not an error")
	assert.Nil(t, dataset)
	assert.False(t, result.IsValid)
	assert.Equal(t, service.StateValidationFailed, sess.State())

	// Nothing was persisted.
	all, err := env.datasets.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// Back to the mapping step, fix by treating Mystery as the task id.
	require.NoError(t, sess.Remap())
	assert.Equal(t, service.StateMappingProposed, sess.State())

	_, err = sess.ConfirmMapping(ctx, map[string]string{"Task ID": "", "Mystery": schema.FieldTaskID})
	require.NoError(t, err)

	result, dataset, err = sess.ValidateAndPersist(ctx, "Fixed Budget", domain.DatasetBudget)
	require.NoError(t, err)
	require.NotNil(t, dataset)
	assert.True(t, result.IsValid)
	assert.Equal(t, "x", dataset.Data[0].Get(schema.FieldTaskID))
}

func TestImportSessionStateGuards(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	sess := env.importer.NewSession()
	assert.Equal(t, service.StateIdle, sess.State())

	_, err := sess.ProposeMapping(ctx)
	assert.ErrorIs(t, err, domain.ErrSessionState)

	_, err = sess.ConfirmMapping(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrSessionState)

	_, _, err = sess.ValidateAndPersist(ctx, "x", domain.DatasetBudget)
	assert.ErrorIs(t, err, domain.ErrSessionState)

	assert.ErrorIs(t, sess.Remap(), domain.ErrSessionState)

	require.NoError(t, sess.SetSource("budget.csv", budgetHeaders, nil))
	_, err = sess.ConfirmMapping(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrSessionState, "confirm requires a proposal first")
}

func TestImportSessionSetSourceRejectsEmptyHeaders(t *testing.T) {
	env := setupEnv(t)

	sess := env.importer.NewSession()
	err := sess.SetSource("empty.csv", nil, nil)
	assert.ErrorIs(t, err, domain.ErrFileReadFailure)
	assert.Equal(t, service.StateIdle, sess.State())
}

func TestImportSessionAbandon(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	sess := startSession(t, env, [][]string{{"Pick", "100", "10", "10", "x"}})
	_, err := sess.ProposeMapping(ctx)
	require.NoError(t, err)

	sess.Abandon()
	assert.Equal(t, service.StateIdle, sess.State())
	assert.Nil(t, sess.Result())

	// An abandoned session accepts a fresh upload.
	require.NoError(t, sess.SetSource("other.csv", []string{"Task ID"}, [][]string{{"Pick"}}))
	assert.Equal(t, service.StateHeadersExtracted, sess.State())
}

func TestImportServiceRules(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	// No stored override: defaults apply.
	rules, err := env.importer.Rules(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultValidationRules(), rules)

	// Persisted overrides win on the next read.
	custom := domain.DefaultValidationRules()
	custom.AllowNegativeNumbers = true
	custom.MaximumRows = 5000
	require.NoError(t, env.importer.SaveRules(ctx, custom))

	rules, err = env.importer.Rules(ctx)
	require.NoError(t, err)
	assert.Equal(t, custom, rules)
}

func TestImportServiceRulesMalformedConfigFallsBack(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	require.NoError(t, env.configRepo.Upsert(ctx, &domain.ImportConfig{
		Key:     domain.DefaultImportConfigKey,
		Payload: `{"allowNegativeNumbers": tru`,
	}))

	rules, err := env.importer.Rules(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultValidationRules(), rules)
}

func TestImportSessionRulesAppliedDuringValidation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	custom := domain.DefaultValidationRules()
	custom.AllowNegativeNumbers = true
	custom.ValidateCalculatedHours = false
	require.NoError(t, env.importer.SaveRules(ctx, custom))

	sess := startSession(t, env, [][]string{{"Adjustment", "-5", "10", "10", "x"}})
	_, err := sess.ProposeMapping(ctx)
	require.NoError(t, err)
	_, err = sess.ConfirmMapping(ctx, nil)
	require.NoError(t, err)

	result, dataset, err := sess.ValidateAndPersist(ctx, "Adjustments", domain.DatasetBudget)
	require.NoError(t, err)
	require.NotNil(t, dataset)
	assert.True(t, result.IsValid)
}
