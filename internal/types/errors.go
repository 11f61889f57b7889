package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrorKind classifies a pipeline failure for reporting and exit codes.
type ErrorKind string

const (
	KindSourceShape           ErrorKind = "SourceShapeError"
	KindUnresolvedAccount     ErrorKind = "UnresolvedAccount"
	KindUnbalancedTransaction ErrorKind = "UnbalancedTransaction"
	KindReferenceCollision    ErrorKind = "ReferenceCollision"
	KindInvariantViolation    ErrorKind = "InvariantViolation"
	KindIOFailure             ErrorKind = "IOFailure"
	KindConfig                ErrorKind = "ConfigError"
)

// Exit codes returned by the CLI.
const (
	ExitOK        = 0
	ExitIntegrity = 1
	ExitIO        = 2
)

// kinded is implemented by every error in the taxonomy.
type kinded interface {
	error
	Kind() ErrorKind
}

// KindOf returns the taxonomy kind of err, or "" for unclassified errors.
func KindOf(err error) ErrorKind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindUnresolvedAccount, KindUnbalancedTransaction, KindReferenceCollision, KindInvariantViolation:
		return ExitIntegrity
	default:
		return ExitIO
	}
}

// =============================================================================
// SOURCE SHAPE
// =============================================================================

// SourceShapeError reports a workbook or mapping file whose structure cannot
// be used: a missing sheet or a missing required column.
type SourceShapeError struct {
	Path    string
	Missing []string
	Message string
}

func (e *SourceShapeError) Kind() ErrorKind { return KindSourceShape }

func (e *SourceShapeError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: missing required column(s): %s", e.Path, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// =============================================================================
// UNRESOLVED ACCOUNTS
// =============================================================================

// UnresolvedAccountError is raised when the share of rows whose legacy account
// code did not resolve exceeds the configured tolerance.
type UnresolvedAccountError struct {
	Unresolved int
	Total      int
	Tolerance  float64
}

func (e *UnresolvedAccountError) Kind() ErrorKind { return KindUnresolvedAccount }

func (e *UnresolvedAccountError) Error() string {
	return fmt.Sprintf("%d of %d rows have unresolved accounts, above the %.2f%% tolerance",
		e.Unresolved, e.Total, e.Tolerance)
}

// =============================================================================
// UNBALANCED TRANSACTIONS
// =============================================================================

// Imbalance describes one transaction whose debits and credits differ.
type Imbalance struct {
	Key     TransactionKey
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// UnbalancedTransactionError lists every transaction that failed the balance
// check after filtering.
type UnbalancedTransactionError struct {
	Transactions []Imbalance
}

func (e *UnbalancedTransactionError) Kind() ErrorKind { return KindUnbalancedTransaction }

func (e *UnbalancedTransactionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d unbalanced transaction(s)", len(e.Transactions))
	for i, t := range e.Transactions {
		if i == 10 {
			fmt.Fprintf(&b, "; and %d more", len(e.Transactions)-i)
			break
		}
		fmt.Fprintf(&b, "; entry %d on %s: debits %s, credits %s",
			t.Key.EntryNumber, t.Key.EntryDate, t.Debits.StringFixed(2), t.Credits.StringFixed(2))
	}
	return b.String()
}

// =============================================================================
// REFERENCE COLLISIONS
// =============================================================================

// ReferenceCollisionError reports entry numbers that appear on more than one
// date. Lines join their header by reference number, so such groups cannot be
// emitted unambiguously.
type ReferenceCollisionError struct {
	EntryNumbers []int64
}

func (e *ReferenceCollisionError) Kind() ErrorKind { return KindReferenceCollision }

func (e *ReferenceCollisionError) Error() string {
	refs := make([]string, len(e.EntryNumbers))
	for i, n := range e.EntryNumbers {
		refs[i] = ReferenceNumber(n)
	}
	return fmt.Sprintf("entry numbers used on more than one date: %s", strings.Join(refs, ", "))
}

// =============================================================================
// INVARIANT VIOLATIONS
// =============================================================================

// InvariantViolationError is raised by the verifier when the emitted files
// disagree with the computed totals.
type InvariantViolationError struct {
	Findings []string
}

func (e *InvariantViolationError) Kind() ErrorKind { return KindInvariantViolation }

func (e *InvariantViolationError) Error() string {
	return "emitted files failed verification: " + strings.Join(e.Findings, "; ")
}

// =============================================================================
// I/O AND CONFIGURATION
// =============================================================================

// IOFailureError wraps a failed read or write and names the path.
type IOFailureError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOFailureError) Kind() ErrorKind { return KindIOFailure }

func (e *IOFailureError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOFailureError) Unwrap() error { return e.Err }

// NewIOFailure builds an IOFailureError.
func NewIOFailure(op, path string, err error) error {
	return &IOFailureError{Op: op, Path: path, Err: err}
}

// ConfigError reports an invalid or missing configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Kind() ErrorKind { return KindConfig }

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}
