// Package matching assigns uploaded spreadsheet headers to schema
// fields by keyword scoring. Matching never fails: a header with no
// plausible field simply comes back unmapped.
package matching

import (
	"strings"

	"github.com/opsboard/import-engine/internal/domain"
)

// Score is the outcome of comparing one header against one field.
type Score struct {
	Confidence domain.Confidence
	Value      int
}

const (
	scoreExact     = 100
	scoreSubstring = 90
	scorePartial   = 60
	scoreWeak      = 30
)

// ScoreMatch computes the confidence tier and numeric score for one
// header against one field definition. Rules are tried in priority
// order and the first match wins:
//
//  1. exact equality with any candidate keyword        → high, 100
//  2. substring containment in either direction        → high, 90
//  3. ≥2 keyword sub-words (len > 2) inside the header → medium, 60
//     exactly 1 such sub-word                          → low, 30
//  4. otherwise                                        → none, 0
//
// Candidate keywords are the field key, display name, match keywords
// and column hint, all lower-cased with empty entries discarded.
func ScoreMatch(userHeader string, field domain.FieldDefinition) Score {
	header := strings.ToLower(strings.TrimSpace(userHeader))
	if header == "" {
		return Score{Confidence: domain.ConfidenceNone}
	}

	candidates := make([]string, 0, len(field.MatchKeywords)+3)
	for _, c := range append([]string{field.Field, field.DisplayName, field.ColumnHint}, field.MatchKeywords...) {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			candidates = append(candidates, c)
		}
	}

	for _, c := range candidates {
		if header == c {
			return Score{Confidence: domain.ConfidenceHigh, Value: scoreExact}
		}
	}

	for _, c := range candidates {
		if strings.Contains(header, c) || strings.Contains(c, header) {
			return Score{Confidence: domain.ConfidenceHigh, Value: scoreSubstring}
		}
	}

	hits := 0
	for _, keyword := range field.MatchKeywords {
		for _, word := range strings.Fields(strings.ToLower(keyword)) {
			if len(word) > 2 && strings.Contains(header, word) {
				hits++
			}
		}
	}
	switch {
	case hits >= 2:
		return Score{Confidence: domain.ConfidenceMedium, Value: scorePartial}
	case hits == 1:
		return Score{Confidence: domain.ConfidenceLow, Value: scoreWeak}
	}

	return Score{Confidence: domain.ConfidenceNone}
}

// MatchAll assigns each header to at most one field. Headers are
// processed in input order; each claims the best-scoring still-unclaimed
// field when that score is high or medium confidence, and the claimed
// field leaves the pool. Assignment is greedy and first-come: an earlier
// header can take a field a later header would have matched better.
// Every header appears in the output; unmapped ones keep confidence
// none. Output is deterministic for a given header and field order.
func MatchAll(userHeaders []string, fields []domain.FieldDefinition) []domain.ColumnMapping {
	available := make([]domain.FieldDefinition, len(fields))
	copy(available, fields)

	out := make([]domain.ColumnMapping, 0, len(userHeaders))
	for _, header := range userHeaders {
		bestIdx := -1
		var best Score
		for i, f := range available {
			s := ScoreMatch(header, f)
			// Strict > keeps the earlier-listed field on ties.
			if s.Value > best.Value {
				best = s
				bestIdx = i
			}
		}

		if bestIdx >= 0 && (best.Confidence == domain.ConfidenceHigh || best.Confidence == domain.ConfidenceMedium) {
			claimed := available[bestIdx]
			available = append(available[:bestIdx], available[bestIdx+1:]...)
			out = append(out, domain.ColumnMapping{
				UserColumn:  header,
				SystemField: claimed.Field,
				Confidence:  best.Confidence,
				Score:       best.Value,
				IsRequired:  claimed.Required,
			})
			continue
		}

		out = append(out, domain.ColumnMapping{
			UserColumn: header,
			Confidence: domain.ConfidenceNone,
		})
	}
	return out
}
