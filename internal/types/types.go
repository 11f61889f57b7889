// =============================================================================
// Ledger SQL Migration - Shared Types
// =============================================================================
//
// This package contains the domain types passed between the pipeline stages.
// They live here to avoid import cycles. Types defined here are used by:
//   - xlsxparser  (SourceRow, RejectedRow)
//   - resolver    (DimensionKind)
//   - validation  (Line, RejectReason)
//   - converter   (Header, Batch, NumberedLine)
//   - sqlwriter   (Header, Batch)
//   - verifier    (Totals)
//
// =============================================================================

package types

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DIMENSIONS
// =============================================================================

// DimensionKind names one of the optional analytical classifiers a line may
// carry.
type DimensionKind string

const (
	DimensionClassification DimensionKind = "classification"
	DimensionProject        DimensionKind = "project"
	DimensionWorkItem       DimensionKind = "analysis_work_item"
	DimensionSubTree        DimensionKind = "sub_tree"
)

// DimensionKinds lists every dimension kind in the order their columns are
// emitted.
var DimensionKinds = []DimensionKind{
	DimensionClassification,
	DimensionProject,
	DimensionWorkItem,
	DimensionSubTree,
}

// ZeroUUID is the all-zero identifier used as a "missing" sentinel in source
// data.
const ZeroUUID = "00000000-0000-0000-0000-000000000000"

// =============================================================================
// SOURCE ROWS
// =============================================================================

// SourceRow is one typed row of the transactions sheet.
type SourceRow struct {
	// RowNumber is the 1-based row number in the sheet (the header is row 1).
	RowNumber int

	// EntryNumber is the journal entry number the row belongs to.
	EntryNumber int64

	// EntryDate is the ISO calendar date (YYYY-MM-DD).
	EntryDate string

	Description string

	// LegacyAccountCode is the account code from the old chart of accounts.
	LegacyAccountCode string

	// DimensionCodes holds the source codes for the optional dimensions.
	// An empty string means the cell was blank.
	DimensionCodes map[DimensionKind]string

	// Debit and Credit are fixed-point amounts with scale 2.
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// RejectReason names the admission rule a row failed.
type RejectReason string

const (
	// Reader-level rejections.
	ReasonInvalidEntryNumber RejectReason = "invalid entry number"
	ReasonInvalidEntryDate   RejectReason = "invalid entry date"
	ReasonInvalidAmount      RejectReason = "invalid amount"

	// Filter-level rejections.
	ReasonNonPositiveEntry  RejectReason = "entry number not positive"
	ReasonBothSidesZero     RejectReason = "both sides zero"
	ReasonNegativeAmount    RejectReason = "negative amount"
	ReasonBothSidesPositive RejectReason = "both sides positive"
	ReasonUnresolvedAccount RejectReason = "unresolved account"
	ReasonZeroAccountUUID   RejectReason = "all-zero account uuid"
)

// RejectedRow records a source row that was dropped and why.
type RejectedRow struct {
	RowNumber int
	Reason    RejectReason

	// Detail carries the offending value, e.g. the legacy code that did not
	// resolve.
	Detail string
}

// =============================================================================
// ADMITTED LINES
// =============================================================================

// Line is an admitted source row with its destination identifiers resolved.
type Line struct {
	Source SourceRow

	// AccountUUID is never empty and never ZeroUUID for an admitted line.
	AccountUUID string

	// DimensionUUIDs holds the resolved dimension identifiers. A missing key
	// or an empty value is written as NULL.
	DimensionUUIDs map[DimensionKind]string
}

// Key returns the grouping key of the line's transaction.
func (l Line) Key() TransactionKey {
	return TransactionKey{EntryNumber: l.Source.EntryNumber, EntryDate: l.Source.EntryDate}
}

// TransactionKey identifies a transaction by entry number and date.
type TransactionKey struct {
	EntryNumber int64
	EntryDate   string
}

// ReferenceNumber renders the entry number as the destination's
// reference_number: decimal, no leading zeros.
func ReferenceNumber(entryNumber int64) string {
	return strconv.FormatInt(entryNumber, 10)
}

// =============================================================================
// HEADERS AND BATCHES
// =============================================================================

// Header is one balanced transaction header.
type Header struct {
	OrgID           string
	EntryNumber     int64
	ReferenceNumber string
	EntryDate       string
	Description     string
	TotalDebits     decimal.Decimal
	TotalCredits    decimal.Decimal
	LineCount       int
}

// NumberedLine is a line placed in a batch.
type NumberedLine struct {
	Line

	// ReferenceNumber joins the line to its header.
	ReferenceNumber string

	// RowNum is the 1-based position of this line among the lines of the same
	// transaction inside its batch. The executed SQL adds it to the current
	// MAX(line_no) of the transaction.
	RowNum int

	// LineNo is the line number the SQL produces when the destination holds
	// no lines for the transaction yet.
	LineNo int
}

// Batch is one line artifact.
type Batch struct {
	// Part is the 1-based batch index.
	Part int

	FileName string
	Lines    []NumberedLine
}

// Totals aggregates a set of lines.
type Totals struct {
	Count  int
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Add folds one line's amounts into the totals.
func (t *Totals) Add(debit, credit decimal.Decimal) {
	t.Count++
	t.Debit = t.Debit.Add(debit)
	t.Credit = t.Credit.Add(credit)
}

// HeaderTotals sums the header totals and line counts.
func HeaderTotals(headers []Header) Totals {
	var t Totals
	for _, h := range headers {
		t.Count += h.LineCount
		t.Debit = t.Debit.Add(h.TotalDebits)
		t.Credit = t.Credit.Add(h.TotalCredits)
	}
	return t
}
