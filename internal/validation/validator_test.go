package validation

import (
	"testing"

	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	accounts map[string]string
	dims     map[types.DimensionKind]map[string]string
}

func (f fakeLookup) AccountUUID(code string) (string, bool) {
	id, ok := f.accounts[code]
	return id, ok
}

func (f fakeLookup) DimUUID(kind types.DimensionKind, code string) (string, bool) {
	id, ok := f.dims[kind][code]
	return id, ok
}

var lookup = fakeLookup{
	accounts: map[string]string{
		"134": "aaaaaaaa-0000-4000-8000-000000000001",
		"211": "aaaaaaaa-0000-4000-8000-000000000002",
		"000": types.ZeroUUID,
	},
	dims: map[types.DimensionKind]map[string]string{
		types.DimensionProject: {"P1": "bbbbbbbb-0000-4000-8000-000000000001"},
	},
}

func row(n int, entry int64, legacy string, debit, credit int64) types.SourceRow {
	return types.SourceRow{
		RowNumber:         n,
		EntryNumber:       entry,
		EntryDate:         "2024-01-01",
		LegacyAccountCode: legacy,
		Debit:             decimal.NewFromInt(debit),
		Credit:            decimal.NewFromInt(credit),
	}
}

func TestFilter_Rules(t *testing.T) {
	tests := []struct {
		name   string
		row    types.SourceRow
		reason types.RejectReason
	}{
		{name: "admitted debit", row: row(2, 1, "134", 100, 0)},
		{name: "admitted credit", row: row(2, 1, "211", 0, 100)},
		{name: "zero entry", row: row(2, 0, "134", 100, 0), reason: types.ReasonNonPositiveEntry},
		{name: "negative entry", row: row(2, -3, "134", 100, 0), reason: types.ReasonNonPositiveEntry},
		{name: "both zero", row: row(2, 1, "134", 0, 0), reason: types.ReasonBothSidesZero},
		{name: "negative debit", row: row(2, 1, "134", -5, 0), reason: types.ReasonNegativeAmount},
		{name: "both positive", row: row(2, 1, "134", 5, 5), reason: types.ReasonBothSidesPositive},
		{name: "unknown account", row: row(2, 1, "9999", 5, 0), reason: types.ReasonUnresolvedAccount},
		{name: "zero uuid account", row: row(2, 1, "000", 5, 0), reason: types.ReasonZeroAccountUUID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Filter([]types.SourceRow{tt.row}, nil, lookup)

			if tt.reason == "" {
				require.Len(t, result.Lines, 1)
				assert.Empty(t, result.Rejected)
				return
			}
			assert.Empty(t, result.Lines)
			require.Len(t, result.Rejected, 1)
			assert.Equal(t, tt.reason, result.Rejected[0].Reason)
			assert.Equal(t, 2, result.Rejected[0].RowNumber)
		})
	}
}

func TestFilter_KeepsOrderAndCounts(t *testing.T) {
	readerRejects := []types.RejectedRow{{RowNumber: 9, Reason: types.ReasonInvalidEntryDate}}
	rows := []types.SourceRow{
		row(2, 1, "134", 100, 0),
		row(3, 1, "134", 0, 0),
		row(4, 1, "9999", 0, 100),
		row(5, 1, "211", 0, 100),
		row(6, 2, "9999", 0, 1),
		row(7, 2, "42", 0, 1),
	}

	result := Filter(rows, readerRejects, lookup)

	require.Len(t, result.Lines, 2)
	assert.Equal(t, 2, result.Lines[0].Source.RowNumber)
	assert.Equal(t, 5, result.Lines[1].Source.RowNumber)
	assert.Equal(t, "aaaaaaaa-0000-4000-8000-000000000002", result.Lines[1].AccountUUID)

	counts := result.RejectCounts()
	assert.Equal(t, 1, counts[types.ReasonInvalidEntryDate])
	assert.Equal(t, 1, counts[types.ReasonBothSidesZero])
	assert.Equal(t, 3, counts[types.ReasonUnresolvedAccount])
	assert.Equal(t, 3, result.UnresolvedRows())
	assert.Equal(t, []UnresolvedCode{{Code: "42", Count: 1}, {Code: "9999", Count: 2}}, result.UnresolvedCodes())
	assert.Equal(t, 9, result.Rejected[0].RowNumber)
}

func TestFilter_DimensionDegradation(t *testing.T) {
	r := row(2, 1, "134", 10, 0)
	r.DimensionCodes = map[types.DimensionKind]string{
		types.DimensionProject:        "P1",
		types.DimensionClassification: "C404",
		types.DimensionSubTree:        "",
	}
	unknownProject := row(3, 1, "211", 0, 10)
	unknownProject.DimensionCodes = map[types.DimensionKind]string{types.DimensionProject: "P9"}

	result := Filter([]types.SourceRow{r, unknownProject}, nil, lookup)

	require.Len(t, result.Lines, 2)
	assert.Equal(t, map[types.DimensionKind]string{
		types.DimensionProject: "bbbbbbbb-0000-4000-8000-000000000001",
	}, result.Lines[0].DimensionUUIDs)
	assert.Empty(t, result.Lines[1].DimensionUUIDs)
	assert.Equal(t, map[types.DimensionKind]int{
		types.DimensionClassification: 1,
		types.DimensionProject:        1,
	}, result.Degraded)
}

func TestCheckTolerance(t *testing.T) {
	tests := []struct {
		name       string
		unresolved int
		total      int
		tolerance  float64
		wantErr    bool
	}{
		{name: "none unresolved", unresolved: 0, total: 10, tolerance: 0},
		{name: "zero tolerance", unresolved: 1, total: 10, tolerance: 0, wantErr: true},
		{name: "at tolerance", unresolved: 1, total: 10, tolerance: 10},
		{name: "above tolerance", unresolved: 2, total: 10, tolerance: 10, wantErr: true},
		{name: "default tolerance", unresolved: 10, total: 10, tolerance: 100},
		{name: "no rows", unresolved: 0, total: 0, tolerance: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTolerance(tt.unresolved, tt.total, tt.tolerance)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, types.KindUnresolvedAccount, types.KindOf(err))
			assert.Equal(t, types.ExitIntegrity, types.ExitCode(err))
		})
	}
}
