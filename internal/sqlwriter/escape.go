package sqlwriter

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NULL is the unquoted SQL null literal.
const NULL = "NULL"

var literalCleaner = strings.NewReplacer("\x00", "", "\r\n", "\n", "\r", "\n")

// Quote renders s as a single-quoted SQL text literal. Single quotes are
// doubled, NUL bytes are dropped and CR/CRLF line breaks become LF.
func Quote(s string) string {
	s = literalCleaner.Replace(s)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// NullableUUID renders id as a quoted literal, or NULL when it is empty.
func NullableUUID(id string) string {
	if strings.TrimSpace(id) == "" {
		return NULL
	}
	return Quote(id)
}

// Amount renders a monetary value with exactly two decimals.
func Amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
