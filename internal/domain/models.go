package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opsboard/import-engine/internal/formula"
)

// StringList stores a []string as JSON in a text column. sqlite has no
// array type, so the postgres-array route is not available here.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, (*[]string)(l))
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(l))
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

// RecordList stores imported rows as JSON in a text column.
type RecordList []Record

func (rl RecordList) Value() (driver.Value, error) {
	data, err := json.Marshal([]Record(rl))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (rl *RecordList) Scan(src interface{}) error {
	if src == nil {
		*rl = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, (*[]Record)(rl))
	case string:
		return json.Unmarshal([]byte(v), (*[]Record)(rl))
	default:
		return fmt.Errorf("cannot scan %T into RecordList", src)
	}
}

// CustomField is the persisted form of a user-defined FieldDefinition.
// Core fields never appear in this table.
type CustomField struct {
	Field         string         `gorm:"type:varchar(100);primaryKey"`
	DisplayName   string         `gorm:"type:varchar(200);not null;column:display_name"`
	Description   string         `gorm:"type:text"`
	SourceType    SourceType     `gorm:"type:varchar(20);not null;column:source_type"`
	Category      FieldCategory  `gorm:"type:varchar(50);not null;default:'custom'"`
	DataType      DataType       `gorm:"type:varchar(20);not null;column:data_type"`
	Required      bool           `gorm:"not null;default:false"`
	Format        FieldFormat    `gorm:"type:varchar(20);not null"`
	Decimals      *int           `gorm:""`
	MatchKeywords StringList     `gorm:"type:text;column:match_keywords"`
	ColumnHint    string         `gorm:"type:varchar(200);column:column_hint"`
	Formula       formula.Tokens `gorm:"type:text"`
	FormulaString string         `gorm:"type:text;column:formula_string"`
	ShowInImport  bool           `gorm:"not null;default:true;column:show_in_import"`
	ShowInForms   bool           `gorm:"not null;default:true;column:show_in_forms"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (CustomField) TableName() string { return "custom_fields" }

// Definition converts the stored row into the schema representation.
func (c *CustomField) Definition() FieldDefinition {
	return FieldDefinition{
		Field:         c.Field,
		DisplayName:   c.DisplayName,
		Description:   c.Description,
		SourceType:    c.SourceType,
		Category:      c.Category,
		DataType:      c.DataType,
		Required:      c.Required,
		Format:        c.Format,
		Decimals:      c.Decimals,
		MatchKeywords: c.MatchKeywords,
		ColumnHint:    c.ColumnHint,
		Formula:       c.Formula,
		FormulaString: c.FormulaString,
		IsCore:        false,
		IsEditable:    true,
		ShowInImport:  c.ShowInImport,
		ShowInForms:   c.ShowInForms,
	}
}

// CustomFieldFromDefinition builds the persisted row for a definition.
func CustomFieldFromDefinition(def FieldDefinition) *CustomField {
	return &CustomField{
		Field:         def.Field,
		DisplayName:   def.DisplayName,
		Description:   def.Description,
		SourceType:    def.SourceType,
		Category:      def.Category,
		DataType:      def.DataType,
		Required:      def.Required,
		Format:        def.Format,
		Decimals:      def.Decimals,
		MatchKeywords: def.MatchKeywords,
		ColumnHint:    def.ColumnHint,
		Formula:       def.Formula,
		FormulaString: def.FormulaString,
		ShowInImport:  def.ShowInImport,
		ShowInForms:   def.ShowInForms,
	}
}

// DatasetSource says how a dataset entered the system.
type DatasetSource string

const (
	SourceFile         DatasetSource = "file"
	SourceExternalSync DatasetSource = "external-sync"
)

// DatasetType classifies the content of a dataset.
type DatasetType string

const (
	DatasetBudget   DatasetType = "budget"
	DatasetActual   DatasetType = "actual"
	DatasetCombined DatasetType = "combined"
)

// DateRange is the inclusive min/max date observed in a dataset,
// formatted as 2006-01-02.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DatasetMetadata is derived by scanning a dataset's rows. It is always
// recomputed on save, never hand-edited.
type DatasetMetadata struct {
	SiteIDs        []string   `json:"siteIds"`
	JobFunctionIDs []string   `json:"jobFunctionIds"`
	DateRange      *DateRange `json:"dateRange,omitempty"`
}

func (m DatasetMetadata) Value() (driver.Value, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *DatasetMetadata) Scan(src interface{}) error {
	if src == nil {
		*m = DatasetMetadata{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into DatasetMetadata", src)
	}
}

// ImportedDataset is one persisted import result. Datasets are
// append-only: a re-import creates a new dataset rather than mutating an
// existing one.
type ImportedDataset struct {
	ID          string          `gorm:"type:varchar(64);primaryKey"`
	Name        string          `gorm:"type:varchar(255);not null"`
	UploadedAt  time.Time       `gorm:"not null;column:uploaded_at;index"`
	Source      DatasetSource   `gorm:"type:varchar(20);not null"`
	DatasetType DatasetType     `gorm:"type:varchar(20);not null;column:dataset_type"`
	FileRef     string          `gorm:"type:varchar(255);column:file_ref"`
	RowCount    int             `gorm:"not null;column:row_count"`
	ColumnCount int             `gorm:"not null;column:column_count"`
	Data        RecordList      `gorm:"type:text;not null"`
	Metadata    DatasetMetadata `gorm:"type:text"`
}

func (ImportedDataset) TableName() string { return "imported_datasets" }

// SavedMapping remembers a confirmed column mapping per file name so a
// repeat upload of a similarly structured file skips manual remapping.
// Payload is the JSON-encoded userColumn→fieldKey map; it is kept raw so
// a corrupt payload can be treated as absence instead of a query error.
type SavedMapping struct {
	FileKey   string    `gorm:"type:varchar(255);primaryKey;column:file_key"`
	Payload   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SavedMapping) TableName() string { return "column_mappings" }

// ImportConfig persists validation-rule overrides. A single row under
// DefaultImportConfigKey is used; Payload is raw JSON for the same
// corrupt-state reason as SavedMapping.
type ImportConfig struct {
	Key       string    `gorm:"type:varchar(50);primaryKey"`
	Payload   string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ImportConfig) TableName() string { return "import_configs" }

// DefaultImportConfigKey is the row key for the persisted rule overrides.
const DefaultImportConfigKey = "default"
