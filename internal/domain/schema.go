package domain

import "github.com/opsboard/import-engine/internal/formula"

// SourceType says where a field's values come from.
type SourceType string

const (
	SourceImport     SourceType = "import"
	SourceCalculated SourceType = "calculated"
	SourceSystem     SourceType = "system"
)

// FieldCategory groups fields for display and filtering.
type FieldCategory string

const (
	CategoryIdentifiers FieldCategory = "identifiers"
	CategoryBudget      FieldCategory = "budget"
	CategoryForecast    FieldCategory = "forecast"
	CategoryActual      FieldCategory = "actual"
	CategoryPerformance FieldCategory = "performance"
	CategoryCustom      FieldCategory = "custom"
)

// DataType is the logical type of a field's values.
type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeDate    DataType = "date"
	TypeBoolean DataType = "boolean"
)

// FieldFormat controls how values are rendered.
type FieldFormat string

const (
	FormatNumber     FieldFormat = "number"
	FormatPercentage FieldFormat = "percentage"
	FormatCurrency   FieldFormat = "currency"
	FormatDecimal    FieldFormat = "decimal"
	FormatText       FieldFormat = "text"
	FormatDate       FieldFormat = "date"
)

// FieldDefinition is one entry in the canonical schema: a core field
// shipped with the system or a user-defined custom field.
type FieldDefinition struct {
	Field       string        `json:"field"`
	DisplayName string        `json:"displayName"`
	Description string        `json:"description,omitempty"`
	SourceType  SourceType    `json:"sourceType"`
	Category    FieldCategory `json:"category"`
	DataType    DataType      `json:"dataType"`
	Required    bool          `json:"required"`
	Format      FieldFormat   `json:"format"`
	Decimals    *int          `json:"decimals,omitempty"`

	// MatchKeywords feed column auto-detection; only meaningful for
	// import fields. An import field without keywords is never
	// auto-detected, only mappable by hand.
	MatchKeywords []string `json:"matchKeywords,omitempty"`
	// ColumnHint is an extra header alias considered during matching.
	ColumnHint string `json:"columnHint,omitempty"`

	// Formula is set only for calculated fields.
	Formula       formula.Tokens `json:"formula,omitempty"`
	FormulaString string         `json:"formulaString,omitempty"`

	IsCore       bool `json:"isCore"`
	IsEditable   bool `json:"isEditable"`
	ShowInImport bool `json:"showInImport"`
	ShowInForms  bool `json:"showInForms"`
}

// Confidence is the coarse bucket summarizing match strength between a
// spreadsheet header and a field.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// ColumnMapping is the resolved relationship between one uploaded
// column header and the schema. SystemField is empty for unmapped
// columns; unmapped columns are kept so the user can map them manually.
type ColumnMapping struct {
	UserColumn  string     `json:"userColumn"`
	SystemField string     `json:"systemField,omitempty"`
	Confidence  Confidence `json:"confidence"`
	Score       int        `json:"score"`
	IsRequired  bool       `json:"isRequired"`
}

// Record is one canonical imported row. Fields is keyed by schema field
// keys; Extras keeps values from columns the mapping did not resolve,
// keyed by the original header text, so no input data is silently lost.
type Record struct {
	Fields map[string]string `json:"fields"`
	Extras map[string]string `json:"extras,omitempty"`
}

// Get returns the value for a canonical field key, or "".
func (r Record) Get(field string) string {
	return r.Fields[field]
}

// ValidationRules configure the import validator. Zero bounds mean
// unbounded.
type ValidationRules struct {
	AllowNegativeNumbers     bool    `json:"allowNegativeNumbers" mapstructure:"allowNegativeNumbers"`
	WarnOnZeroValues         bool    `json:"warnOnZeroValues" mapstructure:"warnOnZeroValues"`
	ValidateCalculatedHours  bool    `json:"validateCalculatedHours" mapstructure:"validateCalculatedHours"`
	CalculatedHoursTolerance float64 `json:"calculatedHoursTolerance" mapstructure:"calculatedHoursTolerance" validate:"gte=0"`
	MinimumRows              int     `json:"minimumRows" mapstructure:"minimumRows" validate:"gte=0"`
	MaximumRows              int     `json:"maximumRows" mapstructure:"maximumRows" validate:"gte=0"`
}

// DefaultValidationRules returns the rule set used when no override is
// configured or persisted.
func DefaultValidationRules() ValidationRules {
	return ValidationRules{
		AllowNegativeNumbers:     false,
		WarnOnZeroValues:         true,
		ValidateCalculatedHours:  true,
		CalculatedHoursTolerance: 0.5,
		MinimumRows:              1,
		MaximumRows:              0,
	}
}

// ValidationSummary counts rows by outcome.
type ValidationSummary struct {
	TotalRows   int `json:"totalRows"`
	ValidRows   int `json:"validRows"`
	InvalidRows int `json:"invalidRows"`
}

// ValidationResult is the complete report of one validator run. IsValid
// holds exactly when Errors is empty; warnings never block persistence.
type ValidationResult struct {
	IsValid  bool              `json:"isValid"`
	Errors   []string          `json:"errors"`
	Warnings []string          `json:"warnings"`
	Summary  ValidationSummary `json:"summary"`
}
