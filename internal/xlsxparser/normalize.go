// =============================================================================
// Ledger SQL Migration - Cell Normalisation
// =============================================================================
//
// Spreadsheet cells arrive as raw text: numbers typed as floats ("134.0"),
// dates as serial numbers ("45292") or display strings, amounts with
// thousands separators. The helpers here convert them to the pipeline's
// canonical forms.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// floatInteger matches codes stored as whole-number floats, e.g. "134.0".
var floatInteger = regexp.MustCompile(`^(-?\d+)\.0+$`)

// NormalizeCode trims a code cell and drops a zero fraction left by numeric
// cells. Leading zeros are kept: "0134" stays "0134".
func NormalizeCode(value string) string {
	value = strings.TrimSpace(value)
	if m := floatInteger.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	return value
}

// ParseEntryNumber converts an entry number cell to an integer. Whole-number
// floats ("12.0") are accepted; anything with a fraction is not.
func ParseEntryNumber(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty entry number")
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n, nil
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", ""))
	if err != nil {
		return 0, fmt.Errorf("entry number %q is not numeric", value)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("entry number %q is not an integer", value)
	}
	return d.IntPart(), nil
}

// dateLayouts are tried in order for text date cells. Every slash, dash and
// dot layout is day-first because the source workbooks are day-first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
}

// xlsDateLayouts extend dateLayouts for legacy .xls sheets, whose date cells
// saved as text carry Excel's built-in mm-dd-yy format.
var xlsDateLayouts = append(append([]string{}, dateLayouts...), "01-02-06")

// compactDate matches an unseparated YYYYMMDD date. No serial in the
// supported year range has eight digits.
var compactDate = regexp.MustCompile(`^\d{8}$`)

// ParseDate converts a date cell to YYYY-MM-DD. Numeric cells are treated as
// Excel serial dates in the workbook's date system.
func ParseDate(value string, date1904 bool) (string, error) {
	return parseDate(value, date1904, dateLayouts)
}

func parseDate(value string, date1904 bool, layouts []string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("empty date")
	}

	if compactDate.MatchString(value) {
		t, err := time.Parse("20060102", value)
		if err != nil {
			return "", fmt.Errorf("unrecognised date %q", value)
		}
		return formatDate(value, t)
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial <= 0 {
			return "", fmt.Errorf("date serial %q out of range", value)
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return "", fmt.Errorf("date serial %q: %w", value, err)
		}
		return formatDate(value, t)
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return formatDate(value, t)
		}
	}
	return "", fmt.Errorf("unrecognised date %q", value)
}

// formatDate renders t as YYYY-MM-DD, refusing years outside 1900..9999.
func formatDate(value string, t time.Time) (string, error) {
	if t.Year() < 1900 || t.Year() > 9999 {
		return "", fmt.Errorf("date %q resolves to year %d", value, t.Year())
	}
	return t.Format("2006-01-02"), nil
}

// decimalComma matches amounts whose only fraction separator is a comma with
// one or two digits after it, e.g. "1000,50" or "(12,5)".
var decimalComma = regexp.MustCompile(`^[^.]*,\d{1,2}\)?$`)

// ParseAmount converts an amount cell to a decimal with scale 2. Empty cells
// and a lone dash are zero; accounting negatives "(12.50)" are negative.
// Commas are thousands separators only.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	value = strings.NewReplacer(" ", "", "\u00a0", "").Replace(value)
	if decimalComma.MatchString(value) {
		return decimal.Zero, fmt.Errorf("amount %q uses a decimal comma", value)
	}
	value = strings.ReplaceAll(value, ",", "")
	if value == "" || value == "-" {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")") {
		negative = true
		value = strings.TrimSuffix(strings.TrimPrefix(value, "("), ")")
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not numeric", value)
	}
	if negative {
		d = d.Neg()
	}
	return d.Round(2), nil
}
