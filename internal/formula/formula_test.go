package formula_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsboard/import-engine/internal/formula"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tokens  formula.Tokens
		valid   bool
		message string
	}{
		{
			name:    "empty sequence",
			tokens:  formula.Tokens{},
			valid:   false,
			message: "formula is empty",
		},
		{
			name: "leading operator",
			tokens: formula.Tokens{
				formula.NewOperator("+"),
				formula.NewMetric("budgetedVolume", "Volume"),
			},
			valid:   false,
			message: "formula cannot start with an operator",
		},
		{
			name: "trailing operator",
			tokens: formula.Tokens{
				formula.NewMetric("budgetedVolume", "Volume"),
				formula.NewOperator("+"),
			},
			valid:   false,
			message: "formula cannot end with an operator",
		},
		{
			name: "unbalanced open parenthesis",
			tokens: formula.Tokens{
				formula.NewParenthesis("("),
				formula.NewMetric("budgetedVolume", "Volume"),
			},
			valid:   false,
			message: "unbalanced parentheses",
		},
		{
			name: "closing before opening",
			tokens: formula.Tokens{
				formula.NewParenthesis(")"),
				formula.NewMetric("budgetedVolume", "Volume"),
				formula.NewParenthesis("("),
			},
			valid:   false,
			message: "closing parenthesis without a matching opening parenthesis",
		},
		{
			name: "adjacent operators",
			tokens: formula.Tokens{
				formula.NewMetric("budgetedVolume", "Volume"),
				formula.NewOperator("+"),
				formula.NewOperator("-"),
				formula.NewMetric("budgetedHours", "Hours"),
			},
			valid:   false,
			message: "two operators in a row",
		},
		{
			name: "valid expression",
			tokens: formula.Tokens{
				formula.NewMetric("budgetedVolume", "Volume"),
				formula.NewOperator("/"),
				formula.NewMetric("budgetedHours", "Hours"),
				formula.NewOperator("*"),
				formula.NewNumberLiteral("100"),
			},
			valid: true,
		},
		{
			name: "valid with parentheses and function",
			tokens: formula.Tokens{
				formula.NewFunctionCall("SUM"),
				formula.NewParenthesis("("),
				formula.NewMetric("actualHours", "Actual Hours"),
				formula.NewParenthesis(")"),
			},
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := formula.Validate(tt.tokens)
			assert.Equal(t, tt.valid, res.Valid)
			if !tt.valid {
				assert.Equal(t, tt.message, res.Message)
			} else {
				assert.Empty(t, res.Message)
			}
		})
	}
}

func TestTokensString(t *testing.T) {
	tokens := formula.Tokens{
		formula.NewMetric("budgetedVolume", "Volume"),
		formula.NewOperator("/"),
		formula.NewMetric("budgetedHours", "Hours"),
		formula.NewOperator("*"),
		formula.NewNumberLiteral("100"),
	}
	assert.Equal(t, "[Volume] / [Hours] * 100", tokens.String())
}

func TestBuilderAppendRemove(t *testing.T) {
	b := formula.NewBuilder()
	b.Append(formula.NewMetric("budgetedVolume", "Volume"))
	op := formula.NewOperator("+")
	b.Append(op)
	b.Append(formula.NewNumberLiteral("5"))

	require.Equal(t, 3, b.Len())
	assert.Equal(t, "[Volume] + 5", b.String())
	assert.True(t, b.Validate().Valid)

	assert.True(t, b.Remove(op.ID()))
	assert.False(t, b.Remove(op.ID()), "removing twice should report false")
	assert.Equal(t, "[Volume] 5", b.String())

	// The returned slice is a copy; mutating it must not affect the builder.
	tokens := b.Tokens()
	tokens[0] = formula.NewNumberLiteral("9")
	assert.Equal(t, "[Volume] 5", b.String())
}

func TestTokensJSONRoundTrip(t *testing.T) {
	original := formula.Tokens{
		formula.NewMetric("budgetedVolume", "Volume"),
		formula.NewOperator("/"),
		formula.NewParenthesis("("),
		formula.NewFunctionCall("AVG"),
		formula.NewNumberLiteral("2"),
		formula.NewParenthesis(")"),
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded formula.Tokens
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, original, decoded)
}

func TestTokensUnmarshalUnknownType(t *testing.T) {
	var decoded formula.Tokens
	err := json.Unmarshal([]byte(`[{"id":"x","type":"mystery","value":"?","label":"?"}]`), &decoded)
	assert.Error(t, err)
}

func TestTokensSQLValueScan(t *testing.T) {
	original := formula.Tokens{
		formula.NewMetric("actualRate", "Actual Rate"),
		formula.NewOperator("-"),
		formula.NewMetric("budgetedRate", "Budgeted Rate"),
	}

	value, err := original.Value()
	require.NoError(t, err)

	var decoded formula.Tokens
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, original, decoded)

	var empty formula.Tokens
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)

	nothing, err := formula.Tokens{}.Value()
	require.NoError(t, err)
	assert.Nil(t, nothing)
}
