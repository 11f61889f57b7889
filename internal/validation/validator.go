// =============================================================================
// Ledger SQL Migration - Line Filter & Validator
// =============================================================================
//
// This module decides which typed source rows become transaction lines.
//
// ADMISSION RULES (checked in order, first failure wins):
//   1. entry_number is a positive integer
//   2. debit and credit are not both zero
//   3. neither side is negative
//   4. debit and credit are not both positive
//   5. the legacy account code resolves to a destination account
//   6. the resolved account UUID is not the all-zero UUID
//
// Rules 2-4 together guarantee exactly one side is positive, which is what the
// destination's check constraint requires.
//
// DIMENSIONS:
//   A dimension code that does not resolve degrades to NULL. The line is still
//   admitted; the degradation is counted per kind.
//
// ERROR HANDLING:
//   Rejections are collected, never raised. The only error the filter returns
//   is UnresolvedAccountError when unresolved rows exceed the tolerance.
//
// =============================================================================

package validation

import (
	"sort"

	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/google/uuid"
)

// Lookup resolves codes to destination UUIDs. *resolver.Resolver satisfies it.
type Lookup interface {
	AccountUUID(legacyCode string) (string, bool)
	DimUUID(kind types.DimensionKind, code string) (string, bool)
}

// =============================================================================
// FILTER RESULT
// =============================================================================

// Result holds the outcome of filtering a sheet.
type Result struct {
	// Lines are the admitted rows in input order.
	Lines []types.Line

	// Rejected lists every dropped row, reader rejections first.
	Rejected []types.RejectedRow

	// Degraded counts lines admitted with a dimension set to NULL because its
	// code did not resolve.
	Degraded map[types.DimensionKind]int

	// Unresolved counts rejected rows per unresolved legacy code.
	Unresolved map[string]int
}

// RejectCounts returns the number of rejected rows per reason.
func (r *Result) RejectCounts() map[types.RejectReason]int {
	counts := make(map[types.RejectReason]int)
	for _, rej := range r.Rejected {
		counts[rej.Reason]++
	}
	return counts
}

// UnresolvedRows returns the number of rows dropped for an unresolved account.
func (r *Result) UnresolvedRows() int {
	n := 0
	for _, c := range r.Unresolved {
		n += c
	}
	return n
}

// UnresolvedCode is a legacy code that failed to resolve and how often.
type UnresolvedCode struct {
	Code  string
	Count int
}

// UnresolvedCodes returns the unresolved legacy codes sorted by code.
func (r *Result) UnresolvedCodes() []UnresolvedCode {
	codes := make([]UnresolvedCode, 0, len(r.Unresolved))
	for code, n := range r.Unresolved {
		codes = append(codes, UnresolvedCode{Code: code, Count: n})
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i].Code < codes[j].Code })
	return codes
}

// =============================================================================
// FILTER
// =============================================================================

// Filter applies the admission rules to rows. readerRejects are rows the
// workbook reader could not type; they are carried into the result so the
// report sees every dropped row.
//
// PARAMETERS:
//   - rows: Typed source rows in sheet order.
//   - readerRejects: Rows rejected while typing.
//   - lookup: The code resolver.
//
// RETURNS:
//   - The filter result. Admitted lines keep input order.
func Filter(rows []types.SourceRow, readerRejects []types.RejectedRow, lookup Lookup) *Result {
	result := &Result{
		Rejected:   append([]types.RejectedRow{}, readerRejects...),
		Degraded:   make(map[types.DimensionKind]int),
		Unresolved: make(map[string]int),
	}

	for _, row := range rows {
		line, rejected := admit(row, lookup, result.Degraded)
		if rejected != nil {
			result.Rejected = append(result.Rejected, *rejected)
			if rejected.Reason == types.ReasonUnresolvedAccount {
				result.Unresolved[row.LegacyAccountCode]++
			}
			continue
		}
		result.Lines = append(result.Lines, line)
	}

	return result
}

// admit checks one row. Degraded dimensions are only counted for admitted
// lines.
func admit(row types.SourceRow, lookup Lookup, degraded map[types.DimensionKind]int) (types.Line, *types.RejectedRow) {
	reject := func(reason types.RejectReason, detail string) (types.Line, *types.RejectedRow) {
		return types.Line{}, &types.RejectedRow{RowNumber: row.RowNumber, Reason: reason, Detail: detail}
	}

	switch {
	case row.EntryNumber <= 0:
		return reject(types.ReasonNonPositiveEntry, types.ReferenceNumber(row.EntryNumber))
	case row.Debit.IsZero() && row.Credit.IsZero():
		return reject(types.ReasonBothSidesZero, "")
	case row.Debit.IsNegative() || row.Credit.IsNegative():
		return reject(types.ReasonNegativeAmount, row.Debit.StringFixed(2)+"/"+row.Credit.StringFixed(2))
	case row.Debit.IsPositive() && row.Credit.IsPositive():
		return reject(types.ReasonBothSidesPositive, row.Debit.StringFixed(2)+"/"+row.Credit.StringFixed(2))
	}

	accountID, ok := lookup.AccountUUID(row.LegacyAccountCode)
	if !ok || accountID == "" {
		return reject(types.ReasonUnresolvedAccount, row.LegacyAccountCode)
	}
	if isZeroUUID(accountID) {
		return reject(types.ReasonZeroAccountUUID, row.LegacyAccountCode)
	}

	line := types.Line{
		Source:         row,
		AccountUUID:    accountID,
		DimensionUUIDs: make(map[types.DimensionKind]string),
	}
	for _, kind := range types.DimensionKinds {
		code := row.DimensionCodes[kind]
		if code == "" {
			continue
		}
		id, ok := lookup.DimUUID(kind, code)
		if !ok || isZeroUUID(id) {
			degraded[kind]++
			continue
		}
		line.DimensionUUIDs[kind] = id
	}
	return line, nil
}

func isZeroUUID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed == uuid.Nil
}

// =============================================================================
// TOLERANCE
// =============================================================================

// CheckTolerance fails when the share of unresolved rows among all data rows
// exceeds tolerancePercent.
func CheckTolerance(unresolved, dataRows int, tolerancePercent float64) error {
	if unresolved == 0 || dataRows == 0 {
		return nil
	}
	share := float64(unresolved) * 100 / float64(dataRows)
	if share > tolerancePercent {
		return &types.UnresolvedAccountError{
			Unresolved: unresolved,
			Total:      dataRows,
			Tolerance:  tolerancePercent,
		}
	}
	return nil
}
