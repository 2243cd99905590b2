package schema

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// DeriveFieldKey turns a user-entered metric name into a stable field
// key: lower-cased, whitespace runs collapsed to a single hyphen, and
// anything outside [a-z0-9-] stripped. The derivation is deterministic
// and is the same key used for duplicate detection, so "Date" collides
// with the core "date" field.
func DeriveFieldKey(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = whitespaceRun.ReplaceAllString(s, "-")

	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
