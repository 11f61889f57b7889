package xlsxparser

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ginjaninja78/ledger-sql-migration/internal/config"
	"github.com/ginjaninja78/ledger-sql-migration/internal/testutil"
	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultColumns() config.Columns {
	var cfg config.Config
	config.ApplyDefaults(&cfg)
	return cfg.Columns
}

func TestRead_TypesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	headers := append([]any{}, testutil.TransactionHeaders...)
	headers[1] = "  entry date  "
	testutil.WriteWorkbook(t, path, " Transactions ", [][]any{
		headers,
		{1, "2024-01-01", " Opening ", "134", 100, 0, "C1", "", "", ""},
		{1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "", 211.0, "", "100.00", "", "P9", "W1", "S1"},
		{},
		{"x1", "2024-01-02", "bad entry", "134", 5, 0, "", "", "", ""},
		{2, "not a date", "bad date", "134", 5, 0, "", "", "", ""},
		{3, "2024-01-03", "bad amount", "134", "abc", 0, "", "", "", ""},
		{"4.0", "03/02/2024", "day first", "0134", "1,250.505", "-", "", "", "", ""},
	})

	sheet, err := Read(path, "transactions", defaultColumns())
	require.NoError(t, err)

	assert.Equal(t, " Transactions ", sheet.SheetName)
	assert.Equal(t, "entry date", sheet.Headers[1])
	require.Len(t, sheet.Rows, 3)
	require.Len(t, sheet.Rejected, 3)
	assert.Equal(t, 6, sheet.DataRows())

	first := sheet.Rows[0]
	assert.Equal(t, 2, first.RowNumber)
	assert.Equal(t, int64(1), first.EntryNumber)
	assert.Equal(t, "2024-01-01", first.EntryDate)
	assert.Equal(t, "Opening", first.Description)
	assert.Equal(t, "134", first.LegacyAccountCode)
	assert.True(t, first.Debit.Equal(decimal.NewFromInt(100)))
	assert.True(t, first.Credit.IsZero())
	assert.Equal(t, "C1", first.DimensionCodes[types.DimensionClassification])
	assert.Equal(t, "", first.DimensionCodes[types.DimensionProject])

	second := sheet.Rows[1]
	assert.Equal(t, "2024-01-01", second.EntryDate)
	assert.Equal(t, "211", second.LegacyAccountCode)
	assert.True(t, second.Debit.IsZero())
	assert.True(t, second.Credit.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "S1", second.DimensionCodes[types.DimensionSubTree])

	third := sheet.Rows[2]
	assert.Equal(t, int64(4), third.EntryNumber)
	assert.Equal(t, "2024-02-03", third.EntryDate)
	assert.Equal(t, "0134", third.LegacyAccountCode)
	assert.Equal(t, "1250.51", third.Debit.StringFixed(2))

	reasons := []types.RejectReason{sheet.Rejected[0].Reason, sheet.Rejected[1].Reason, sheet.Rejected[2].Reason}
	assert.Equal(t, []types.RejectReason{
		types.ReasonInvalidEntryNumber,
		types.ReasonInvalidEntryDate,
		types.ReasonInvalidAmount,
	}, reasons)
	assert.Equal(t, 5, sheet.Rejected[0].RowNumber)
}

func TestRead_MissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	testutil.WriteWorkbook(t, path, "transactions", [][]any{
		{"entry no", "entry date", "description", "account code", "Debit"},
	})

	_, err := Read(path, "transactions", defaultColumns())

	var shapeErr *types.SourceShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Contains(t, shapeErr.Missing, "debit")
	assert.Contains(t, shapeErr.Missing, "credit")
	assert.Contains(t, shapeErr.Missing, "sub tree code")
	assert.NotContains(t, shapeErr.Missing, "description")
}

func TestRead_MissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	testutil.WriteWorkbook(t, path, "journal", [][]any{testutil.TransactionHeaders})

	_, err := Read(path, "transactions", defaultColumns())

	assert.Equal(t, types.KindSourceShape, types.KindOf(err))
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.xlsx"), "transactions", defaultColumns())

	assert.Equal(t, types.KindIOFailure, types.KindOf(err))
}

func TestRead_DisabledDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	testutil.WriteWorkbook(t, path, "transactions", [][]any{
		{"entry no", "entry date", "description", "account code", "debit", "credit"},
		{9, "2024-05-01", "", "134", 1, 0},
	})

	cols := defaultColumns()
	cols.Classification, cols.Project, cols.WorkItem, cols.SubTree = "", "", "", ""

	sheet, err := Read(path, "transactions", cols)
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)
	assert.Empty(t, sheet.Rows[0].DimensionCodes)
}

func TestRead_XLS(t *testing.T) {
	// testdata/ledger.xls holds a "Summary" sheet followed by " Transactions ".
	// Row 3 of the transactions sheet has no record, the first entry date is a
	// serial under a custom date format and the second is mm-dd-yy text.
	sheet, err := Read(filepath.Join("testdata", "ledger.xls"), "transactions", defaultColumns())
	require.NoError(t, err)

	assert.Equal(t, " Transactions ", sheet.SheetName)
	assert.Equal(t, "entry no", sheet.Headers[0])
	assert.Equal(t, "sub tree code", sheet.Headers[9])
	require.Len(t, sheet.Rows, 2)
	require.Len(t, sheet.Rejected, 1)

	first := sheet.Rows[0]
	assert.Equal(t, 2, first.RowNumber)
	assert.Equal(t, int64(1), first.EntryNumber)
	assert.Equal(t, "2024-01-15", first.EntryDate)
	assert.Equal(t, "opening", first.Description)
	assert.Equal(t, "134", first.LegacyAccountCode)
	assert.Equal(t, "100.00", first.Debit.StringFixed(2))
	assert.True(t, first.Credit.IsZero())
	assert.Equal(t, "C1", first.DimensionCodes[types.DimensionClassification])

	second := sheet.Rows[1]
	assert.Equal(t, 4, second.RowNumber)
	assert.Equal(t, "2024-01-15", second.EntryDate)
	assert.Equal(t, "211", second.LegacyAccountCode)
	assert.Equal(t, "100.00", second.Credit.StringFixed(2))

	assert.Equal(t, types.RejectedRow{RowNumber: 5, Reason: types.ReasonInvalidAmount, Detail: "1000,50"}, sheet.Rejected[0])
}

func TestRead_XLSMissingSheet(t *testing.T) {
	_, err := Read(filepath.Join("testdata", "ledger.xls"), "journal", defaultColumns())

	var shapeErr *types.SourceShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Contains(t, shapeErr.Message, "Summary")
}
