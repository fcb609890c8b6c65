package common

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// missingMarkers are cell values the public datasets use for "no value".
var missingMarkers = []string{"", "na", "n/a", "nan", "null", "none", "-", "--"}

var thousandsPattern = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// IsMissing reports whether a raw cell carries no value.
func IsMissing(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, m := range missingMarkers {
		if s == m {
			return true
		}
	}
	return false
}

// NormalizeCity title-cases a city name the way the safety tables spell it
// ("LOS ANGELES" -> "Los Angeles").
func NormalizeCity(city string) string {
	fields := strings.Fields(city)
	if len(fields) == 0 {
		return ""
	}
	// cases.Caser is stateful; build one per call.
	return cases.Title(language.English).String(strings.ToLower(strings.Join(fields, " ")))
}

// NormalizeAddress collapses whitespace and trims a free-text address.
func NormalizeAddress(addr string) string {
	return strings.Join(strings.Fields(addr), " ")
}

// ParseNumber parses a numeric cell, accepting thousands separators.
// Missing markers, NaN and infinities are rejected.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if IsMissing(s) {
		return 0, false
	}
	if thousandsPattern.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt parses an integral cell ("90007", "90,007", "90007.0").
func ParseInt(raw string) (int64, bool) {
	f, ok := ParseNumber(raw)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

// PortableScalar converts a raw cell into a plain JSON scalar: int64 for
// integral numbers, float64 for other finite numbers, bool for true/false and
// the trimmed string otherwise. ok is false for missing values.
func PortableScalar(raw string) (value any, ok bool) {
	s := strings.TrimSpace(raw)
	if IsMissing(s) {
		return nil, false
	}
	if f, isNum := ParseNumber(s); isNum {
		if f == math.Trunc(f) && math.Abs(f) <= 1<<53 {
			return int64(f), true
		}
		return f, true
	}
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return s, true
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
