package schema

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FactorLabel returns the human label of a factor, e.g. "Investment Quality".
// A Caser is stateful, so each call gets its own.
func FactorLabel(f Factor) string {
	return cases.Title(language.English).String(FactorPhrase(f))
}

// FactorPhrase returns the lower-case phrase of a factor, e.g. "investment quality".
func FactorPhrase(f Factor) string {
	return strings.ReplaceAll(string(f), "_", " ")
}

// Float returns a pointer to v. Handy for optional record fields.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
