package extract

import (
	"regexp"
	"strconv"
)

// Numeric registry fields are dirty in the wild: "12.5 m", "N/A", "0,0".
// Anything that is not a plain unsigned decimal becomes null. Malformed
// numbers are a data-quality signal, never a fatal error.
var (
	decimalRe   = regexp.MustCompile(`^\d+(\.\d+)?$`)
	buildYearRe = regexp.MustCompile(`^\d{4}$`)
)

// Decimal parses an unsigned decimal token. It returns false for blank,
// signed, partial, or unit-suffixed input ("12.5kg" is null, not 12.5).
func Decimal(s string) (float64, bool) {
	if !decimalRe.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// BuildYear parses a 4-digit year token. Anything else is null.
func BuildYear(s string) (int16, bool) {
	if !buildYearRe.MatchString(s) {
		return 0, false
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return int16(y), true
}
