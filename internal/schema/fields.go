package schema

import (
	"github.com/opsboard/import-engine/internal/domain"
	"github.com/opsboard/import-engine/internal/formula"
)

// Canonical core field keys. Every canonical record is keyed by these
// (plus any custom field keys).
const (
	FieldTaskID        = "taskId"
	FieldTaskName      = "taskName"
	FieldDate          = "date"
	FieldSiteID        = "siteId"
	FieldJobFunctionID = "jobFunctionId"

	FieldBudgetedVolume = "budgetedVolume"
	FieldBudgetedRate   = "budgetedRate"
	FieldBudgetedHours  = "budgetedHours"

	FieldForecastVolume = "forecastVolume"
	FieldForecastRate   = "forecastRate"
	FieldForecastHours  = "forecastHours"

	FieldActualVolume = "actualVolume"
	FieldActualRate   = "actualRate"
	FieldActualHours  = "actualHours"

	FieldPerformanceIndex = "performanceIndex"
	FieldRateVariance     = "rateVariance"
)

func intPtr(v int) *int { return &v }

func importField(key, display string, category domain.FieldCategory, dataType domain.DataType, format domain.FieldFormat, required bool, keywords ...string) domain.FieldDefinition {
	return domain.FieldDefinition{
		Field:         key,
		DisplayName:   display,
		SourceType:    domain.SourceImport,
		Category:      category,
		DataType:      dataType,
		Required:      required,
		Format:        format,
		MatchKeywords: keywords,
		IsCore:        true,
		IsEditable:    false,
		ShowInImport:  true,
		ShowInForms:   true,
	}
}

// CoreFields returns the built-in schema for the supply-chain labor
// model. Core fields are defined at process start, are immutable and
// undeletable, and never appear in the custom-field store.
//
// The calculated performance fields are built here rather than stored so
// their token ids are fresh per process; their structure never changes.
func CoreFields() []domain.FieldDefinition {
	performanceFormula := formula.Tokens{
		formula.NewMetric(FieldBudgetedHours, "Budgeted Hours"),
		formula.NewOperator("/"),
		formula.NewMetric(FieldActualHours, "Actual Hours"),
		formula.NewOperator("*"),
		formula.NewNumberLiteral("100"),
	}
	rateVarianceFormula := formula.Tokens{
		formula.NewMetric(FieldActualRate, "Actual Rate"),
		formula.NewOperator("-"),
		formula.NewMetric(FieldBudgetedRate, "Budgeted Rate"),
	}

	fields := []domain.FieldDefinition{
		importField(FieldTaskID, "Task ID", domain.CategoryIdentifiers, domain.TypeString, domain.FormatText, true,
			"task", "task id", "task code", "activity", "activity code"),
		importField(FieldTaskName, "Task Name", domain.CategoryIdentifiers, domain.TypeString, domain.FormatText, false,
			"task name", "task description", "activity name", "description"),
		importField(FieldDate, "Date", domain.CategoryIdentifiers, domain.TypeDate, domain.FormatDate, false,
			"date", "day", "work date", "shift date"),
		importField(FieldSiteID, "Site", domain.CategoryIdentifiers, domain.TypeString, domain.FormatText, false,
			"site", "site id", "dc", "distribution center", "warehouse", "location"),
		importField(FieldJobFunctionID, "Job Function", domain.CategoryIdentifiers, domain.TypeString, domain.FormatText, false,
			"job function", "job function id", "function", "role", "department"),

		importField(FieldBudgetedVolume, "Budgeted Volume", domain.CategoryBudget, domain.TypeNumber, domain.FormatNumber, false,
			"budgeted volume", "budget volume", "planned volume", "volume"),
		importField(FieldBudgetedRate, "Budgeted Rate", domain.CategoryBudget, domain.TypeNumber, domain.FormatDecimal, false,
			"budgeted rate", "budget rate", "planned rate", "rate", "uph"),
		importField(FieldBudgetedHours, "Budgeted Hours", domain.CategoryBudget, domain.TypeNumber, domain.FormatDecimal, false,
			"budgeted hours", "budget hours", "planned hours", "hours"),

		importField(FieldForecastVolume, "Forecast Volume", domain.CategoryForecast, domain.TypeNumber, domain.FormatNumber, false,
			"forecast volume", "forecasted volume", "projected volume"),
		importField(FieldForecastRate, "Forecast Rate", domain.CategoryForecast, domain.TypeNumber, domain.FormatDecimal, false,
			"forecast rate", "forecasted rate", "projected rate"),
		importField(FieldForecastHours, "Forecast Hours", domain.CategoryForecast, domain.TypeNumber, domain.FormatDecimal, false,
			"forecast hours", "forecasted hours", "projected hours"),

		importField(FieldActualVolume, "Actual Volume", domain.CategoryActual, domain.TypeNumber, domain.FormatNumber, false,
			"actual volume", "actuals volume", "completed volume"),
		importField(FieldActualRate, "Actual Rate", domain.CategoryActual, domain.TypeNumber, domain.FormatDecimal, false,
			"actual rate", "actuals rate", "achieved rate"),
		importField(FieldActualHours, "Actual Hours", domain.CategoryActual, domain.TypeNumber, domain.FormatDecimal, false,
			"actual hours", "actuals hours", "worked hours", "labor hours"),

		{
			Field:         FieldPerformanceIndex,
			DisplayName:   "Performance Index",
			Description:   "Budgeted hours as a percentage of actual hours",
			SourceType:    domain.SourceCalculated,
			Category:      domain.CategoryPerformance,
			DataType:      domain.TypeNumber,
			Format:        domain.FormatPercentage,
			Decimals:      intPtr(1),
			Formula:       performanceFormula,
			FormulaString: performanceFormula.String(),
			IsCore:        true,
			ShowInForms:   true,
		},
		{
			Field:         FieldRateVariance,
			DisplayName:   "Rate Variance",
			Description:   "Actual rate minus budgeted rate",
			SourceType:    domain.SourceCalculated,
			Category:      domain.CategoryPerformance,
			DataType:      domain.TypeNumber,
			Format:        domain.FormatDecimal,
			Decimals:      intPtr(2),
			Formula:       rateVarianceFormula,
			FormulaString: rateVarianceFormula.String(),
			IsCore:        true,
			ShowInForms:   true,
		},
	}

	return fields
}
