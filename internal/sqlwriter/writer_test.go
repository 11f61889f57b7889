package sqlwriter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	org     = "7b0c1d52-2f43-4b8e-9d3a-0d6f1a2b3c4d"
	cash    = "aaaaaaaa-0000-4000-8000-000000000001"
	payable = "aaaaaaaa-0000-4000-8000-000000000002"
	project = "bbbbbbbb-0000-4000-8000-000000000001"
)

func numbered(ref string, rowNum int, account string, debit, credit int64, description string) types.NumberedLine {
	return types.NumberedLine{
		Line: types.Line{
			Source: types.SourceRow{
				Description: description,
				Debit:       decimal.NewFromInt(debit),
				Credit:      decimal.NewFromInt(credit),
			},
			AccountUUID:    account,
			DimensionUUIDs: map[types.DimensionKind]string{},
		},
		ReferenceNumber: ref,
		RowNum:          rowNum,
		LineNo:          rowNum,
	}
}

func TestQuote(t *testing.T) {
	tests := map[string]string{
		"plain":         "'plain'",
		"Owner's":       "'Owner''s'",
		"''":            "''''''",
		"a\r\nb":        "'a\nb'",
		"a\rb":          "'a\nb'",
		"nul\x00byte":   "'nulbyte'",
		"":              "''",
		"مصروفات نثرية": "'مصروفات نثرية'",
	}
	for in, want := range tests {
		assert.Equal(t, want, Quote(in), "input %q", in)
	}
}

func TestNullableUUID(t *testing.T) {
	assert.Equal(t, "NULL", NullableUUID(""))
	assert.Equal(t, "NULL", NullableUUID("  "))
	assert.Equal(t, "'"+project+"'", NullableUUID(project))
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "100.00", Amount(decimal.NewFromInt(100)))
	assert.Equal(t, "0.00", Amount(decimal.Zero))
	assert.Equal(t, "12.50", Amount(decimal.RequireFromString("12.5")))
}

func TestLineFileName(t *testing.T) {
	tests := []struct {
		part, total int
		want        string
	}{
		{part: 1, total: 3, want: "import_transaction_lines_part_01.sql"},
		{part: 10, total: 10, want: "import_transaction_lines_part_10.sql"},
		{part: 7, total: 120, want: "import_transaction_lines_part_007.sql"},
		{part: 120, total: 120, want: "import_transaction_lines_part_120.sql"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LineFileName(tt.part, tt.total))
	}
}

func TestRenderBatch(t *testing.T) {
	first := numbered("1", 1, cash, 100, 0, "Owner's draw")
	first.DimensionUUIDs[types.DimensionProject] = project
	batch := types.Batch{
		Part:     1,
		FileName: LineFileName(1, 1),
		Lines:    []types.NumberedLine{first, numbered("1", 2, payable, 0, 100, "")},
	}

	want := `-- Transaction lines part 1 of 1: 2 lines, debits 100.00, credits 100.00
INSERT INTO transaction_lines (transaction_fk, line_no, account_uuid, classification_uuid, project_uuid, analysis_work_item_uuid, sub_tree_uuid, debit, credit, description, org_id)
SELECT
  t.id,
  COALESCE((SELECT MAX(line_no) FROM transaction_lines WHERE transaction_fk = t.id), 0) + v.row_num,
  v.account_id::uuid,
  NULLIF(v.classification_id, '')::uuid,
  NULLIF(v.project_id, '')::uuid,
  NULLIF(v.work_item_id, '')::uuid,
  NULLIF(v.sub_tree_id, '')::uuid,
  v.debit,
  v.credit,
  v.description,
  v.org_id::uuid
FROM (
  VALUES
    (1, '1', '` + cash + `', NULL, '` + project + `', NULL, NULL, 100.00, 0.00, 'Owner''s draw', '` + org + `'),
    (2, '1', '` + payable + `', NULL, NULL, NULL, NULL, 0.00, 100.00, '', '` + org + `')
) AS v(row_num, txn_ref, account_id, classification_id, project_id, work_item_id, sub_tree_id, debit, credit, description, org_id)
JOIN transactions t
  ON t.reference_number = v.txn_ref
 AND t.org_id = v.org_id::uuid
WHERE v.account_id IS NOT NULL
  AND v.account_id <> '00000000-0000-0000-0000-000000000000'
  AND NOT (v.debit = 0 AND v.credit = 0);

-- Verification:
-- SELECT t.reference_number, COUNT(l.line_no) AS lines, SUM(l.debit) AS debits, SUM(l.credit) AS credits
-- FROM transaction_lines l JOIN transactions t ON t.id = l.transaction_fk
-- WHERE t.org_id = '` + org + `' AND t.reference_number IN ('1')
-- GROUP BY t.reference_number ORDER BY t.reference_number;
`

	assert.Equal(t, want, string(RenderBatch(org, batch, 1)))
}

func TestRenderHeaders(t *testing.T) {
	headers := []types.Header{
		{
			OrgID: org, EntryNumber: 1, ReferenceNumber: "1", EntryDate: "2024-01-01",
			Description: "Opening", TotalDebits: decimal.NewFromInt(100), TotalCredits: decimal.NewFromInt(100),
			LineCount: 2,
		},
		{
			OrgID: org, EntryNumber: 42, ReferenceNumber: "42", EntryDate: "2024-02-29",
			Description: "", TotalDebits: decimal.RequireFromString("5.5"), TotalCredits: decimal.RequireFromString("5.5"),
			LineCount: 3,
		},
	}

	out := string(RenderHeaders(org, headers))

	assert.True(t, strings.HasPrefix(out, "-- Transaction headers: 2 transactions, 5 lines, debits 105.50, credits 105.50\n"))
	assert.Contains(t, out, "INSERT INTO transactions (org_id, entry_number, reference_number, entry_date, description, total_debits, total_credits)\nVALUES\n")
	assert.Contains(t, out, "  ('"+org+"', '1', '1', '2024-01-01', 'Opening', 100.00, 100.00),\n")
	assert.Contains(t, out, "  ('"+org+"', '42', '42', '2024-02-29', '', 5.50, 5.50);\n")
	assert.Equal(t, 1, strings.Count(out, ";\n\n"))
	assert.Contains(t, out, "-- Expected: 2, 105.50, 105.50\n")
}

func TestRenderHeaders_Empty(t *testing.T) {
	out := string(RenderHeaders(org, nil))

	assert.NotContains(t, out, "INSERT")
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	headers := []types.Header{{
		OrgID: org, EntryNumber: 1, ReferenceNumber: "1", EntryDate: "2024-01-01",
		TotalDebits: decimal.NewFromInt(100), TotalCredits: decimal.NewFromInt(100), LineCount: 2,
	}}
	batches := []types.Batch{
		{Part: 1, FileName: LineFileName(1, 2), Lines: []types.NumberedLine{numbered("1", 1, cash, 100, 0, "a\r\nb")}},
		{Part: 2, FileName: LineFileName(2, 2), Lines: []types.NumberedLine{numbered("1", 1, payable, 0, 100, "")}},
	}

	var seen []string
	w := NewWriter(dir, org)
	w.OnBatch = func(s FileSummary) { seen = append(seen, s.Name) }

	summaries, err := w.WriteAll(headers, batches)
	require.NoError(t, err)

	require.Len(t, summaries, 2)
	assert.Equal(t, "import_transaction_lines_part_01.sql", summaries[0].Name)
	assert.Equal(t, 1, summaries[0].Totals.Count)
	assert.True(t, summaries[1].Totals.Credit.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, []string{summaries[0].Name, summaries[1].Name}, seen)

	for _, name := range []string{HeaderFileName, summaries[0].Name, summaries[1].Name} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.False(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}), name)
		assert.NotContains(t, string(data), "\r", name)
		assert.True(t, strings.HasSuffix(string(data), "\n"), name)
	}
}

func TestWriteAll_MissingDirectory(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "absent"), org)

	_, err := w.WriteAll(nil, nil)

	assert.Equal(t, types.KindIOFailure, types.KindOf(err))
}

func TestRender_Deterministic(t *testing.T) {
	batch := types.Batch{Part: 1, Lines: []types.NumberedLine{numbered("3", 1, cash, 1, 0, "x")}}

	assert.Equal(t, RenderBatch(org, batch, 1), RenderBatch(org, batch, 1))
}
