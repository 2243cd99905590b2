package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/opsboard/import-engine/internal/domain"
	"github.com/opsboard/import-engine/internal/schema"
)

// headerRowOffset shifts data-row indices to user-facing row numbers:
// row 1 is the header, so the first data row is row 2.
const headerRowOffset = 2

// ValidateRows applies the configured business rules to canonical
// records and returns the complete report. It never short-circuits: all
// errors and warnings for all rows are collected so the caller can
// present a full account. IsValid holds exactly when no errors were
// recorded; warnings alone never block persistence.
func ValidateRows(records []domain.Record, rules domain.ValidationRules) domain.ValidationResult {
	result := domain.ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	invalidRows := 0
	for i, record := range records {
		rowNum := i + headerRowOffset
		errsBefore := len(result.Errors)

		if strings.TrimSpace(record.Get(schema.FieldTaskID)) == "" {
			result.Errors = append(result.Errors,
				fmt.Sprintf("Row %d: missing required Task ID", rowNum))
		}

		volume, volumeOK, volumeErr := numericField(record, schema.FieldBudgetedVolume, "Budgeted Volume", rowNum)
		rate, rateOK, rateErr := numericField(record, schema.FieldBudgetedRate, "Budgeted Rate", rowNum)
		hours, hoursOK, hoursErr := numericField(record, schema.FieldBudgetedHours, "Budgeted Hours", rowNum)
		for _, e := range []string{volumeErr, rateErr, hoursErr} {
			if e != "" {
				result.Errors = append(result.Errors, e)
			}
		}

		if !rules.AllowNegativeNumbers {
			for _, check := range []struct {
				ok    bool
				value float64
				label string
			}{
				{volumeOK, volume, "Budgeted Volume"},
				{rateOK, rate, "Budgeted Rate"},
				{hoursOK, hours, "Budgeted Hours"},
			} {
				if check.ok && check.value < 0 {
					result.Errors = append(result.Errors,
						fmt.Sprintf("Row %d: %s cannot be negative (got %s)",
							rowNum, check.label, formatNumber(check.value)))
				}
			}
		}

		if rules.WarnOnZeroValues {
			if volumeOK && volume == 0 {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("Row %d: Budgeted Volume is zero", rowNum))
			}
			if rateOK && rate == 0 {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("Row %d: Budgeted Rate is zero", rowNum))
			}
		}

		// A blank budgeted-hours cell counts as 0 here, so the mismatch
		// warning still fires when hours were simply left out.
		if rules.ValidateCalculatedHours && volumeOK && rateOK && volume > 0 && rate > 0 {
			calculated := volume / rate
			if math.Abs(calculated-hours) > rules.CalculatedHoursTolerance {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("Row %d: calculated hours %s (volume/rate) differ from budgeted hours %s",
						rowNum, formatNumber(calculated), formatNumber(hours)))
			}
		}

		if len(result.Errors) > errsBefore {
			invalidRows++
		}
	}

	// Row-count bounds apply to the whole set, not per row.
	if rules.MinimumRows > 0 && len(records) < rules.MinimumRows {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Import requires at least %d data rows, got %d", rules.MinimumRows, len(records)))
	}
	if rules.MaximumRows > 0 && len(records) > rules.MaximumRows {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Import allows at most %d data rows, got %d", rules.MaximumRows, len(records)))
	}

	result.Summary = domain.ValidationSummary{
		TotalRows:   len(records),
		ValidRows:   len(records) - invalidRows,
		InvalidRows: invalidRows,
	}
	result.IsValid = len(result.Errors) == 0
	return result
}

// numericField parses a numeric cell. A blank or absent cell is not an
// error (ok=false); a non-numeric value produces an error message.
func numericField(record domain.Record, field, label string, rowNum int) (value float64, ok bool, errMsg string) {
	raw := strings.TrimSpace(record.Get(field))
	if raw == "" {
		return 0, false, ""
	}
	// Tolerate thousands separators from spreadsheet exports.
	cleaned := strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false, fmt.Sprintf("Row %d: %s %q is not a number", rowNum, label, raw)
	}
	return v, true, ""
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
