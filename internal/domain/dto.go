package domain

import "github.com/opsboard/import-engine/internal/formula"

// CreateCustomFieldRequest carries the user input from the metric
// builder. The field key is derived from Name, never supplied directly.
type CreateCustomFieldRequest struct {
	Name          string         `json:"name" validate:"required,max=100"`
	Description   string         `json:"description" validate:"max=500"`
	SourceType    SourceType     `json:"sourceType" validate:"required,oneof=import calculated"`
	Category      FieldCategory  `json:"category" validate:"omitempty,oneof=identifiers budget forecast actual performance custom"`
	DataType      DataType       `json:"dataType" validate:"required,oneof=string number date boolean"`
	Format        FieldFormat    `json:"format" validate:"required,oneof=number percentage currency decimal text date"`
	Decimals      *int           `json:"decimals" validate:"omitempty,gte=0,lte=6"`
	MatchKeywords []string       `json:"matchKeywords" validate:"dive,max=100"`
	Formula       formula.Tokens `json:"formula"`
	ShowInImport  bool           `json:"showInImport"`
	ShowInForms   bool           `json:"showInForms"`
}

// FieldFilter narrows ListFields output. Zero values mean "no filter".
type FieldFilter struct {
	SourceType SourceType
	Category   FieldCategory
	ImportOnly bool
	FormsOnly  bool
}

// Matches reports whether a definition passes the filter.
func (f FieldFilter) Matches(def FieldDefinition) bool {
	if f.SourceType != "" && def.SourceType != f.SourceType {
		return false
	}
	if f.Category != "" && def.Category != f.Category {
		return false
	}
	if f.ImportOnly && !def.ShowInImport {
		return false
	}
	if f.FormsOnly && !def.ShowInForms {
		return false
	}
	return true
}
