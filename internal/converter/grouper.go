package converter

import (
	"sort"

	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/shopspring/decimal"
)

// =============================================================================
// TRANSACTION GROUPER
// =============================================================================

// Group aggregates admitted lines by (entry number, entry date) into headers.
//
// PARAMETERS:
//   - orgID: The destination organisation.
//   - lines: Admitted lines in input order.
//
// RETURNS:
//   - Headers in ascending entry number order (ties broken by date).
//   - UnbalancedTransactionError listing every group whose debits and credits
//     differ, or ReferenceCollisionError when an entry number appears on
//     more than one date.
//
// GROUPING LOGIC:
//   The header description is the first non-empty line description of the
//   group in input order.
func Group(orgID string, lines []types.Line) ([]types.Header, error) {
	index := make(map[types.TransactionKey]int)
	headers := make([]types.Header, 0)

	for _, line := range lines {
		key := line.Key()
		i, exists := index[key]
		if !exists {
			i = len(headers)
			index[key] = i
			headers = append(headers, types.Header{
				OrgID:           orgID,
				EntryNumber:     key.EntryNumber,
				ReferenceNumber: types.ReferenceNumber(key.EntryNumber),
				EntryDate:       key.EntryDate,
				TotalDebits:     decimal.Zero,
				TotalCredits:    decimal.Zero,
			})
		}

		h := &headers[i]
		h.TotalDebits = h.TotalDebits.Add(line.Source.Debit)
		h.TotalCredits = h.TotalCredits.Add(line.Source.Credit)
		h.LineCount++
		if h.Description == "" && line.Source.Description != "" {
			h.Description = line.Source.Description
		}
	}

	sort.SliceStable(headers, func(i, j int) bool {
		if headers[i].EntryNumber != headers[j].EntryNumber {
			return headers[i].EntryNumber < headers[j].EntryNumber
		}
		return headers[i].EntryDate < headers[j].EntryDate
	})

	var unbalanced []types.Imbalance
	for _, h := range headers {
		if !h.TotalDebits.Equal(h.TotalCredits) {
			unbalanced = append(unbalanced, types.Imbalance{
				Key:     types.TransactionKey{EntryNumber: h.EntryNumber, EntryDate: h.EntryDate},
				Debits:  h.TotalDebits,
				Credits: h.TotalCredits,
			})
		}
	}
	if len(unbalanced) > 0 {
		return nil, &types.UnbalancedTransactionError{Transactions: unbalanced}
	}

	// Headers are sorted, so a reused entry number sits next to itself.
	var collisions []int64
	for i := 1; i < len(headers); i++ {
		if headers[i].EntryNumber != headers[i-1].EntryNumber {
			continue
		}
		if n := len(collisions); n == 0 || collisions[n-1] != headers[i].EntryNumber {
			collisions = append(collisions, headers[i].EntryNumber)
		}
	}
	if len(collisions) > 0 {
		return nil, &types.ReferenceCollisionError{EntryNumbers: collisions}
	}

	return headers, nil
}
