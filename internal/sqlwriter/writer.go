// =============================================================================
// Ledger SQL Migration - SQL Emitter
// =============================================================================
//
// This module renders the import artifacts:
//   1. import_transactions.sql: one INSERT for every transaction header
//   2. import_transaction_lines_part_NN.sql: one self-contained
//      INSERT ... SELECT ... FROM (VALUES ...) per batch of lines
//
// LINE NUMBERING:
//   Line numbers are computed when the SQL runs:
//
//     COALESCE((SELECT MAX(line_no) FROM transaction_lines
//               WHERE transaction_fk = t.id), 0) + v.row_num
//
//   row_num restarts at 1 for each transaction inside each batch, so a batch
//   can be re-run after a partial failure without breaking the uniqueness of
//   (transaction_fk, line_no).
//
// OUTPUT FORMAT:
//   UTF-8 without BOM, LF line endings, one statement per file terminated by
//   ";", followed by a commented verification query. Rendering is
//   deterministic.
//
// =============================================================================

package sqlwriter

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
)

// =============================================================================
// FILE NAMES
// =============================================================================

const (
	// HeaderFileName is the header artifact.
	HeaderFileName = "import_transactions.sql"

	// LineFilePrefix starts every line artifact's name.
	LineFilePrefix = "import_transaction_lines_part_"

	// LineFilePattern globs the line artifacts in a directory.
	LineFilePattern = LineFilePrefix + "*.sql"
)

// LineFileName names batch part of total. Parts are zero-padded to at least
// two digits, wider when total needs it, so names sort in batch order.
func LineFileName(part, total int) string {
	width := len(strconv.Itoa(total))
	if width < 2 {
		width = 2
	}
	return fmt.Sprintf("%s%0*d.sql", LineFilePrefix, width, part)
}

// =============================================================================
// DESTINATION SCHEMA
// =============================================================================

// Column lists of the destination tables and of the VALUES alias.
var (
	HeaderColumns = []string{
		"org_id", "entry_number", "reference_number", "entry_date",
		"description", "total_debits", "total_credits",
	}

	LineColumns = []string{
		"transaction_fk", "line_no", "account_uuid",
		"classification_uuid", "project_uuid", "analysis_work_item_uuid", "sub_tree_uuid",
		"debit", "credit", "description", "org_id",
	}

	ValuesColumns = []string{
		"row_num", "txn_ref", "account_id",
		"classification_id", "project_id", "work_item_id", "sub_tree_id",
		"debit", "credit", "description", "org_id",
	}
)

// dimensionValueColumns maps each dimension kind to its VALUES alias column.
var dimensionValueColumns = map[types.DimensionKind]string{
	types.DimensionClassification: "classification_id",
	types.DimensionProject:        "project_id",
	types.DimensionWorkItem:       "work_item_id",
	types.DimensionSubTree:        "sub_tree_id",
}

// =============================================================================
// HEADER ARTIFACT
// =============================================================================

// RenderHeaders renders the header artifact for orgID.
func RenderHeaders(orgID string, headers []types.Header) []byte {
	totals := types.HeaderTotals(headers)

	var b strings.Builder
	if len(headers) == 0 {
		b.WriteString("-- Transaction headers: no transactions to import\n")
		return []byte(b.String())
	}

	fmt.Fprintf(&b, "-- Transaction headers: %d transactions, %d lines, debits %s, credits %s\n",
		len(headers), totals.Count, Amount(totals.Debit), Amount(totals.Credit))
	fmt.Fprintf(&b, "INSERT INTO transactions (%s)\nVALUES\n", strings.Join(HeaderColumns, ", "))

	for i, h := range headers {
		fmt.Fprintf(&b, "  (%s, %s, %s, %s, %s, %s, %s)",
			Quote(h.OrgID),
			Quote(types.ReferenceNumber(h.EntryNumber)),
			Quote(h.ReferenceNumber),
			Quote(h.EntryDate),
			Quote(h.Description),
			Amount(h.TotalDebits),
			Amount(h.TotalCredits),
		)
		if i < len(headers)-1 {
			b.WriteString(",\n")
		}
	}
	b.WriteString(";\n\n")

	b.WriteString("-- Verification:\n")
	fmt.Fprintf(&b, "-- SELECT COUNT(*) AS transactions, SUM(total_debits) AS debits, SUM(total_credits) AS credits FROM transactions WHERE org_id = %s;\n",
		Quote(orgID))
	fmt.Fprintf(&b, "-- Expected: %d, %s, %s\n", len(headers), Amount(totals.Debit), Amount(totals.Credit))

	return []byte(b.String())
}

// =============================================================================
// LINE ARTIFACTS
// =============================================================================

// RenderBatch renders one line artifact. total is the number of batches in the
// run and only appears in the leading comment.
func RenderBatch(orgID string, batch types.Batch, total int) []byte {
	var sums types.Totals
	var refs []string
	seen := make(map[string]bool)
	for _, l := range batch.Lines {
		sums.Add(l.Source.Debit, l.Source.Credit)
		if !seen[l.ReferenceNumber] {
			seen[l.ReferenceNumber] = true
			refs = append(refs, l.ReferenceNumber)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- Transaction lines part %d of %d: %d lines, debits %s, credits %s\n",
		batch.Part, total, sums.Count, Amount(sums.Debit), Amount(sums.Credit))
	fmt.Fprintf(&b, "INSERT INTO transaction_lines (%s)\n", strings.Join(LineColumns, ", "))
	b.WriteString("SELECT\n")
	b.WriteString("  t.id,\n")
	b.WriteString("  COALESCE((SELECT MAX(line_no) FROM transaction_lines WHERE transaction_fk = t.id), 0) + v.row_num,\n")
	b.WriteString("  v.account_id::uuid,\n")
	for _, kind := range types.DimensionKinds {
		fmt.Fprintf(&b, "  NULLIF(v.%s, '')::uuid,\n", dimensionValueColumns[kind])
	}
	b.WriteString("  v.debit,\n")
	b.WriteString("  v.credit,\n")
	b.WriteString("  v.description,\n")
	b.WriteString("  v.org_id::uuid\n")
	b.WriteString("FROM (\n  VALUES\n")

	for i, l := range batch.Lines {
		b.WriteString("    ")
		writeLineTuple(&b, orgID, l)
		if i < len(batch.Lines)-1 {
			b.WriteString(",\n")
		}
	}

	fmt.Fprintf(&b, "\n) AS v(%s)\n", strings.Join(ValuesColumns, ", "))
	b.WriteString("JOIN transactions t\n")
	b.WriteString("  ON t.reference_number = v.txn_ref\n")
	b.WriteString(" AND t.org_id = v.org_id::uuid\n")
	b.WriteString("WHERE v.account_id IS NOT NULL\n")
	fmt.Fprintf(&b, "  AND v.account_id <> %s\n", Quote(types.ZeroUUID))
	b.WriteString("  AND NOT (v.debit = 0 AND v.credit = 0);\n\n")

	quoted := make([]string, len(refs))
	for i, r := range refs {
		quoted[i] = Quote(r)
	}
	b.WriteString("-- Verification:\n")
	b.WriteString("-- SELECT t.reference_number, COUNT(l.line_no) AS lines, SUM(l.debit) AS debits, SUM(l.credit) AS credits\n")
	b.WriteString("-- FROM transaction_lines l JOIN transactions t ON t.id = l.transaction_fk\n")
	fmt.Fprintf(&b, "-- WHERE t.org_id = %s AND t.reference_number IN (%s)\n", Quote(orgID), strings.Join(quoted, ", "))
	b.WriteString("-- GROUP BY t.reference_number ORDER BY t.reference_number;\n")

	return []byte(b.String())
}

func writeLineTuple(b *strings.Builder, orgID string, l types.NumberedLine) {
	fields := make([]string, 0, len(ValuesColumns))
	fields = append(fields,
		strconv.Itoa(l.RowNum),
		Quote(l.ReferenceNumber),
		Quote(l.AccountUUID),
	)
	for _, kind := range types.DimensionKinds {
		fields = append(fields, NullableUUID(l.DimensionUUIDs[kind]))
	}
	fields = append(fields,
		Amount(l.Source.Debit),
		Amount(l.Source.Credit),
		Quote(l.Source.Description),
		Quote(orgID),
	)
	b.WriteString("(")
	b.WriteString(strings.Join(fields, ", "))
	b.WriteString(")")
}

// =============================================================================
// WRITING
// =============================================================================

// FileSummary describes one written artifact.
type FileSummary struct {
	Name   string
	Totals types.Totals
}

// Writer writes the artifacts of one run into a directory.
type Writer struct {
	dir   string
	orgID string

	// OnBatch, if set, is called after each line artifact is written.
	OnBatch func(summary FileSummary)
}

// NewWriter creates a Writer targeting dir.
func NewWriter(dir, orgID string) *Writer {
	return &Writer{dir: dir, orgID: orgID}
}

// WriteAll writes the header artifact followed by every line artifact and
// returns a summary per line artifact.
//
// PARAMETERS:
//   - headers: Balanced headers in emission order.
//   - batches: Line batches in part order.
//
// RETURNS:
//   - One FileSummary per batch.
//   - An IOFailureError naming the file that could not be written.
func (w *Writer) WriteAll(headers []types.Header, batches []types.Batch) ([]FileSummary, error) {
	if err := writeFile(filepath.Join(w.dir, HeaderFileName), RenderHeaders(w.orgID, headers)); err != nil {
		return nil, err
	}

	summaries := make([]FileSummary, 0, len(batches))
	for _, batch := range batches {
		if err := writeFile(filepath.Join(w.dir, batch.FileName), RenderBatch(w.orgID, batch, len(batches))); err != nil {
			return nil, err
		}

		summary := FileSummary{Name: batch.FileName}
		for _, l := range batch.Lines {
			summary.Totals.Add(l.Source.Debit, l.Source.Credit)
		}
		summaries = append(summaries, summary)
		if w.OnBatch != nil {
			w.OnBatch(summary)
		}
	}
	return summaries, nil
}

// writeFile writes data through a buffered writer and closes the file before
// returning.
func writeFile(path string, data []byte) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return types.NewIOFailure("create", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = types.NewIOFailure("close", path, cerr)
		}
	}()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(data); err != nil {
		return types.NewIOFailure("write", path, err)
	}
	if err := writer.Flush(); err != nil {
		return types.NewIOFailure("write", path, err)
	}
	return nil
}
