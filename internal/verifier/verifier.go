// =============================================================================
// Ledger SQL Migration - Verifier
// =============================================================================
//
// The verifier re-reads the emitted artifacts and recomputes what the
// destination would end up holding, without contacting it.
//
// For every line artifact it parses the VALUES tuples, applies the same
// predicates as the statement's JOIN and WHERE clauses, and folds the
// surviving rows into (count, sum of debits, sum of credits).
//
// CHECKS:
//   - header count equals the grouper's transaction count
//   - line count equals the grouper's line count (exact)
//   - line debit and credit sums equal the header artifact's sums (0.01)
//   - line debits equal line credits (0.01)
//   - header artifact sums equal the grouper's sums (0.01)
//   - every line joins a header on (reference_number, org_id)
//   - every surviving line has exactly one positive side
//   - per transaction, the line numbers the SQL would assign are
//     existing+1 .. existing+n with no gaps or repeats
//
// =============================================================================

package verifier

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ginjaninja78/ledger-sql-migration/internal/sqlwriter"
	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/shopspring/decimal"
)

// Tolerance is the largest accepted difference between monetary sums.
var Tolerance = decimal.New(1, -2)

// maxRowFindings caps the per-row findings of one kind.
const maxRowFindings = 10

// Expected is what the grouper computed.
type Expected struct {
	// Headers is the number of transactions.
	Headers int

	// Lines holds the line count and the debit and credit sums.
	Lines types.Totals
}

// =============================================================================
// PARSED ARTIFACTS
// =============================================================================

// LineRow is one tuple of a line artifact.
type LineRow struct {
	RowNum      int
	TxnRef      string
	AccountID   string
	Dimensions  map[types.DimensionKind]string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
	OrgID       string
}

// HeaderRow is one tuple of the header artifact.
type HeaderRow struct {
	OrgID           string
	EntryNumber     string
	ReferenceNumber string
	EntryDate       string
	Description     string
	TotalDebits     decimal.Decimal
	TotalCredits    decimal.Decimal
}

// FileResult summarises one line artifact.
type FileResult struct {
	Name string

	// Rows is the number of tuples in the file.
	Rows int

	// Filtered is the number of tuples the WHERE clause or the JOIN drops.
	Filtered int

	// Totals covers the surviving tuples.
	Totals types.Totals
}

// Result is the outcome of a verification.
type Result struct {
	Headers      int
	HeaderTotals types.Totals
	Files        []FileResult
	Lines        types.Totals

	// LineNumbers holds, per reference number, the line numbers the SQL would
	// assign in execution order.
	LineNumbers map[string][]int

	Findings []string
}

// Passed reports whether verification found nothing.
func (r *Result) Passed() bool {
	return len(r.Findings) == 0
}

// =============================================================================
// VERIFY
// =============================================================================

// Verify checks the artifacts in dir against expected.
//
// PARAMETERS:
//   - dir: Directory holding the header artifact and the line artifacts.
//   - expected: Totals computed by the grouper.
//   - existing: Current MAX(line_no) per reference number in the destination,
//     or nil for an empty destination.
//
// RETURNS:
//   - The verification result, also when checks fail.
//   - An IOFailureError if an artifact cannot be read, or an
//     InvariantViolationError carrying the findings.
func Verify(dir string, expected Expected, existing map[string]int) (*Result, error) {
	result := &Result{LineNumbers: make(map[string][]int)}
	findings := &findingList{}

	headerPath := filepath.Join(dir, sqlwriter.HeaderFileName)
	headers, err := readHeaders(headerPath)
	if err != nil {
		if types.KindOf(err) == types.KindIOFailure {
			return nil, err
		}
		findings.add("%s: %v", sqlwriter.HeaderFileName, err)
	}

	joinable := make(map[string]bool, len(headers))
	for _, h := range headers {
		key := h.ReferenceNumber + "|" + h.OrgID
		if joinable[key] {
			findings.add("%s: duplicate reference number %s", sqlwriter.HeaderFileName, h.ReferenceNumber)
		}
		joinable[key] = true
		result.HeaderTotals.Add(h.TotalDebits, h.TotalCredits)
	}
	result.Headers = len(headers)

	paths, err := filepath.Glob(filepath.Join(dir, sqlwriter.LineFilePattern))
	if err != nil {
		return nil, types.NewIOFailure("list", dir, err)
	}
	sort.Strings(paths)

	maxLineNo := make(map[string]int, len(existing))
	for ref, n := range existing {
		maxLineNo[ref] = n
	}

	for _, path := range paths {
		name := filepath.Base(path)
		rows, err := readLines(path)
		if err != nil {
			if types.KindOf(err) == types.KindIOFailure {
				return nil, err
			}
			findings.add("%s: %v", name, err)
			continue
		}

		file := FileResult{Name: name, Rows: len(rows)}
		base := make(map[string]int)
		fileMax := make(map[string]int)
		for _, row := range rows {
			if !passesWhere(row) {
				file.Filtered++
				continue
			}
			if !joinable[row.TxnRef+"|"+row.OrgID] {
				file.Filtered++
				findings.addRow("unjoined", "%s: row %d references missing transaction %s", name, row.RowNum, row.TxnRef)
				continue
			}
			if row.Debit.IsPositive() == row.Credit.IsPositive() {
				findings.addRow("xor", "%s: row %d for transaction %s does not have exactly one positive side", name, row.RowNum, row.TxnRef)
			}

			file.Totals.Add(row.Debit, row.Credit)

			// MAX(line_no) is read once per statement, so every row of a
			// file numbers from the state before the file ran.
			if _, ok := base[row.TxnRef]; !ok {
				base[row.TxnRef] = maxLineNo[row.TxnRef]
			}
			lineNo := base[row.TxnRef] + row.RowNum
			result.LineNumbers[row.TxnRef] = append(result.LineNumbers[row.TxnRef], lineNo)
			if lineNo > fileMax[row.TxnRef] {
				fileMax[row.TxnRef] = lineNo
			}
		}
		for ref, n := range fileMax {
			if n > maxLineNo[ref] {
				maxLineNo[ref] = n
			}
		}

		result.Lines.Count += file.Totals.Count
		result.Lines.Debit = result.Lines.Debit.Add(file.Totals.Debit)
		result.Lines.Credit = result.Lines.Credit.Add(file.Totals.Credit)
		result.Files = append(result.Files, file)
	}
	findings.flush()

	checkTotals(result, expected, findings)
	checkLineNumbers(result, existing, findings)

	result.Findings = findings.items
	if !result.Passed() {
		return result, &types.InvariantViolationError{Findings: result.Findings}
	}
	return result, nil
}

// passesWhere applies the line statement's WHERE clause.
func passesWhere(row LineRow) bool {
	if row.AccountID == "" || row.AccountID == types.ZeroUUID {
		return false
	}
	return !(row.Debit.IsZero() && row.Credit.IsZero())
}

func checkTotals(result *Result, expected Expected, findings *findingList) {
	if result.Headers != expected.Headers {
		findings.add("header count %d, expected %d", result.Headers, expected.Headers)
	}
	if result.Lines.Count != expected.Lines.Count {
		findings.add("line count %d, expected %d", result.Lines.Count, expected.Lines.Count)
	}
	if !withinTolerance(result.Lines.Debit, result.HeaderTotals.Debit) {
		findings.add("line debits %s differ from header debits %s",
			result.Lines.Debit.StringFixed(2), result.HeaderTotals.Debit.StringFixed(2))
	}
	if !withinTolerance(result.Lines.Credit, result.HeaderTotals.Credit) {
		findings.add("line credits %s differ from header credits %s",
			result.Lines.Credit.StringFixed(2), result.HeaderTotals.Credit.StringFixed(2))
	}
	if !withinTolerance(result.Lines.Debit, result.Lines.Credit) {
		findings.add("line debits %s differ from line credits %s",
			result.Lines.Debit.StringFixed(2), result.Lines.Credit.StringFixed(2))
	}
	if !withinTolerance(result.HeaderTotals.Debit, expected.Lines.Debit) ||
		!withinTolerance(result.HeaderTotals.Credit, expected.Lines.Credit) {
		findings.add("header sums %s/%s differ from computed sums %s/%s",
			result.HeaderTotals.Debit.StringFixed(2), result.HeaderTotals.Credit.StringFixed(2),
			expected.Lines.Debit.StringFixed(2), expected.Lines.Credit.StringFixed(2))
	}
}

// checkLineNumbers requires each transaction's line numbers to fill
// existing+1 .. existing+n exactly once.
func checkLineNumbers(result *Result, existing map[string]int, findings *findingList) {
	refs := make([]string, 0, len(result.LineNumbers))
	for ref := range result.LineNumbers {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	for _, ref := range refs {
		numbers := append([]int(nil), result.LineNumbers[ref]...)
		sort.Ints(numbers)
		start := existing[ref]
		for i, n := range numbers {
			if n != start+i+1 {
				findings.addRow("line_no", "transaction %s: line numbers %v are not %d..%d",
					ref, result.LineNumbers[ref], start+1, start+len(numbers))
				break
			}
		}
	}
	findings.flush()
}

func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// =============================================================================
// READING
// =============================================================================

func readHeaders(path string) ([]HeaderRow, error) {
	tuples, err := readTuples(path)
	if err != nil {
		return nil, err
	}

	headers := make([]HeaderRow, 0, len(tuples))
	for i, t := range tuples {
		if len(t) != len(sqlwriter.HeaderColumns) {
			return nil, fmt.Errorf("tuple %d has %d values, expected %d", i+1, len(t), len(sqlwriter.HeaderColumns))
		}
		debits, err := t[5].Decimal()
		if err != nil {
			return nil, fmt.Errorf("tuple %d total_debits: %w", i+1, err)
		}
		credits, err := t[6].Decimal()
		if err != nil {
			return nil, fmt.Errorf("tuple %d total_credits: %w", i+1, err)
		}
		headers = append(headers, HeaderRow{
			OrgID:           t[0].String(),
			EntryNumber:     t[1].String(),
			ReferenceNumber: t[2].String(),
			EntryDate:       t[3].String(),
			Description:     t[4].String(),
			TotalDebits:     debits,
			TotalCredits:    credits,
		})
	}
	return headers, nil
}

func readLines(path string) ([]LineRow, error) {
	tuples, err := readTuples(path)
	if err != nil {
		return nil, err
	}

	rows := make([]LineRow, 0, len(tuples))
	for i, t := range tuples {
		if len(t) != len(sqlwriter.ValuesColumns) {
			return nil, fmt.Errorf("tuple %d has %d values, expected %d", i+1, len(t), len(sqlwriter.ValuesColumns))
		}
		rowNum, err := t[0].Int()
		if err != nil {
			return nil, fmt.Errorf("tuple %d row_num: %w", i+1, err)
		}
		debit, err := t[7].Decimal()
		if err != nil {
			return nil, fmt.Errorf("tuple %d debit: %w", i+1, err)
		}
		credit, err := t[8].Decimal()
		if err != nil {
			return nil, fmt.Errorf("tuple %d credit: %w", i+1, err)
		}

		dims := make(map[types.DimensionKind]string)
		for j, kind := range types.DimensionKinds {
			if id := t[3+j].String(); id != "" {
				dims[kind] = id
			}
		}

		rows = append(rows, LineRow{
			RowNum:      rowNum,
			TxnRef:      t[1].String(),
			AccountID:   t[2].String(),
			Dimensions:  dims,
			Debit:       debit,
			Credit:      credit,
			Description: t[9].String(),
			OrgID:       t[10].String(),
		})
	}
	return rows, nil
}

func readTuples(path string) ([][]Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewIOFailure("read", path, err)
	}
	return ParseValues(string(data))
}

// =============================================================================
// FINDINGS
// =============================================================================

// findingList collects findings, capping repeated per-row findings.
type findingList struct {
	items    []string
	perKind  map[string]int
	overflow map[string]int
	order    []string
}

func (f *findingList) add(format string, args ...any) {
	f.items = append(f.items, fmt.Sprintf(format, args...))
}

func (f *findingList) addRow(kind, format string, args ...any) {
	if f.perKind == nil {
		f.perKind = make(map[string]int)
		f.overflow = make(map[string]int)
	}
	f.perKind[kind]++
	if f.perKind[kind] <= maxRowFindings {
		f.add(format, args...)
		return
	}
	if f.overflow[kind] == 0 {
		f.order = append(f.order, kind)
	}
	f.overflow[kind]++
}

// flush appends a summary for capped findings.
func (f *findingList) flush() {
	for _, kind := range f.order {
		f.add("%d more %s finding(s)", f.overflow[kind], kind)
		delete(f.overflow, kind)
	}
	f.order = nil
}
