// Package normalize turns raw extract text into canonical identifiers and
// amounts. Every function here is total: any input yields a value, never an
// error or a panic.
package normalize

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// numericArtifact is what a spreadsheet leaves behind when an integer
// identifier passes through a numeric column ("4500012345.0").
const numericArtifact = ".0"

const byteOrderMark = "\uFEFF"

// Decimal exponents of the leading digit that float64 can represent
const (
	maxMagnitude = 308
	minMagnitude = -324
)

// unassignedUnits are unit identifiers that mean "no unit" rather than a code
var unassignedUnits = map[string]struct{}{
	"nan":  {},
	"None": {},
	"0":    {},
}

// Identifier trims surrounding whitespace and strips a single trailing ".0".
// Nothing else about the identifier is changed.
func Identifier(raw string) string {
	return strings.TrimSuffix(strings.TrimSpace(raw), numericArtifact)
}

// UnitIdentifier normalizes like Identifier and maps the "no unit" sentinels
// to the empty string.
func UnitIdentifier(raw string) string {
	id := Identifier(raw)
	if _, ok := unassignedUnits[id]; ok {
		return ""
	}
	return id
}

// Amount parses locale-formatted money text such as "30,960.00". Thousands
// commas and surrounding whitespace are removed first; anything that still
// does not parse as a decimal number yields 0.
func Amount(raw string) float64 {
	value, ok := ParseAmount(raw)
	if !ok {
		return 0
	}
	return value
}

// ParseAmount is Amount that also reports whether the text was a valid
// number. Blank input and values outside the float64 range are reported as
// not ok. The returned value is always finite.
func ParseAmount(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if cleaned == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	if d.IsZero() {
		return 0, true
	}

	// exponent text like "1e50000000" is checked before conversion, which
	// would otherwise expand every digit
	magnitude := int64(d.Exponent()) + int64(d.NumDigits()) - 1
	if magnitude > maxMagnitude || magnitude < minMagnitude {
		return 0, false
	}

	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Header trims a column header and drops a leading byte-order mark
func Header(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(raw, byteOrderMark))
}

// Headers applies Header to every column
func Headers(raw []string) []string {
	cleaned := make([]string, len(raw))
	for i, h := range raw {
		cleaned[i] = Header(h)
	}
	return cleaned
}
