package adapter

import (
	"regexp"
	"strings"
)

// quoteCommaRe matches the stray quote-before-comma pattern that national
// registry exports embed inside place and vessel names (`Caleta Del Sebo",
// La Graciosa`). The quote is dropped, the comma kept.
var quoteCommaRe = regexp.MustCompile(`(;[^;]*)",([ ][^;]*)`)

// repairQuoteComma fixes all stray quote-comma occurrences in one raw line.
func repairQuoteComma(line string) string {
	return quoteCommaRe.ReplaceAllString(line, `$1,$2`)
}

// padOrTruncate forces a split row to exactly n fields: short rows get
// empty trailing fields, long rows are cut.
func padOrTruncate(fields []string, n int) []string {
	if len(fields) == n {
		return fields
	}
	if len(fields) > n {
		return fields[:n]
	}
	out := make([]string, n)
	copy(out, fields)
	return out
}

// collapseWhitespace trims a value and squeezes internal runs of
// whitespace into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// trimQuotes removes surrounding double quotes from a raw field.
func trimQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// sanitizeUTF8 replaces invalid UTF-8 byte sequences with empty strings so
// Postgres doesn't reject the staged row.
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}

// cleanField applies the standard per-field cleanup chain.
func cleanField(s string) string {
	return collapseWhitespace(sanitizeUTF8(trimQuotes(s)))
}

// setIfPresent adds key→value to doc only when the cleaned value is
// non-empty, keeping canonical documents null-stripped.
func setIfPresent(doc map[string]string, key, value string) {
	v := cleanField(value)
	if v != "" {
		doc[key] = v
	}
}

// field returns row[i] or empty when the row is short.
func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
