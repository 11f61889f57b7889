package utils

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RUN REPORT
// =============================================================================

// Count pairs a label with a number.
type Count struct {
	Label string
	Count int
}

// FileTotals summarises one emitted line artifact.
type FileTotals struct {
	Name   string
	Rows   int
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// RejectedRow names one dropped sheet row.
type RejectedRow struct {
	Row    int
	Reason string
	Detail string
}

// MaxRejectedRows caps the rows listed under "Rejected Rows:". The remainder
// is reported as a count.
const MaxRejectedRows = 50

// Report is the plain-text summary of a run. It carries no timestamps so that
// identical runs produce identical reports.
type Report struct {
	Workbook string
	Sheet    string

	SourceRows int
	Admitted   int

	// Rejected, Degraded and Unresolved are rendered in the given order;
	// SortCounts puts them in label order.
	Rejected   []Count
	Degraded   []Count
	Unresolved []Count

	// RejectedRows are listed in the given order, up to MaxRejectedRows.
	RejectedRows []RejectedRow

	Headers      int
	HeaderDebit  decimal.Decimal
	HeaderCredit decimal.Decimal

	Files []FileTotals

	Findings []string
	Passed   bool
}

// SortCounts returns counts ordered by label.
func SortCounts(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

const rule = "================================================================================\n"
const thinRule = "--------------------------------------------------------------------------------\n"

// Render formats the report.
func (r *Report) Render() []byte {
	var buf bytes.Buffer
	writer := bufio.NewWriter(&buf)

	rejected := 0
	for _, c := range r.Rejected {
		rejected += c.Count
	}

	fmt.Fprintf(writer, "Ledger SQL Migration - Import Report\n%s\n", rule)
	fmt.Fprintf(writer, "Source:\n"+
		"  Workbook:       %s\n"+
		"  Sheet:          %s\n"+
		"  Data Rows:      %d\n"+
		"  Admitted Lines: %d\n"+
		"  Rejected Rows:  %d\n\n",
		r.Workbook, r.Sheet, r.SourceRows, r.Admitted, rejected)

	writeCounts(writer, "Rejected By Reason:", r.Rejected)
	writeCounts(writer, "Dimensions Set To NULL:", r.Degraded)
	writeCounts(writer, "Unresolved Legacy Account Codes:", r.Unresolved)
	writeRejectedRows(writer, r.RejectedRows)

	fmt.Fprintf(writer, "Transactions:\n"+
		"  Headers:        %d\n"+
		"  Total Debits:   %s\n"+
		"  Total Credits:  %s\n\n",
		r.Headers, r.HeaderDebit.StringFixed(2), r.HeaderCredit.StringFixed(2))

	if len(r.Files) > 0 {
		writer.WriteString("Line Files:\n")
		writer.WriteString(thinRule)
		for _, f := range r.Files {
			fmt.Fprintf(writer, "  %-42s rows %6d  debit %15s  credit %15s\n",
				f.Name, f.Rows, f.Debit.StringFixed(2), f.Credit.StringFixed(2))
		}
		writer.WriteString("\n")
	}

	if len(r.Findings) > 0 {
		writer.WriteString("Verification Findings:\n")
		writer.WriteString(thinRule)
		for _, finding := range r.Findings {
			fmt.Fprintf(writer, "  - %s\n", finding)
		}
		writer.WriteString("\n")
	}

	result := "FAIL"
	if r.Passed {
		result = "PASS"
	}
	writer.WriteString(rule)
	fmt.Fprintf(writer, "RESULT: %s\n", result)

	writer.Flush()
	return buf.Bytes()
}

func writeCounts(writer *bufio.Writer, title string, counts []Count) {
	if len(counts) == 0 {
		return
	}
	writer.WriteString(title + "\n")
	for _, c := range counts {
		fmt.Fprintf(writer, "  %-40s %d\n", c.Label, c.Count)
	}
	writer.WriteString("\n")
}

func writeRejectedRows(writer *bufio.Writer, rows []RejectedRow) {
	if len(rows) == 0 {
		return
	}
	writer.WriteString("Rejected Rows:\n")
	writer.WriteString(thinRule)
	for i, row := range rows {
		if i == MaxRejectedRows {
			fmt.Fprintf(writer, "  ... and %d more\n", len(rows)-MaxRejectedRows)
			break
		}
		fmt.Fprintf(writer, "  row %6d  %s", row.Row, row.Reason)
		if row.Detail != "" {
			fmt.Fprintf(writer, " %q", row.Detail)
		}
		writer.WriteString("\n")
	}
	writer.WriteString("\n")
}
