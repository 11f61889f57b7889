package converter

import (
	"github.com/ginjaninja78/ledger-sql-migration/internal/config"
	"github.com/ginjaninja78/ledger-sql-migration/internal/sqlwriter"
	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
)

// =============================================================================
// LINE NUMBERER
// =============================================================================

// Partition splits admitted lines into batches of at most batchSize, in input
// order, and numbers them.
//
// NUMBERING:
//   - RowNum counts a transaction's lines inside one batch, starting at 1.
//     The emitted SQL adds it to the transaction's current MAX(line_no).
//   - LineNo is the number that produces against an empty destination: the
//     transaction's lines in earlier batches plus RowNum.
func Partition(lines []types.Line, batchSize int) []types.Batch {
	if batchSize < 1 {
		batchSize = config.DefaultBatchSize
	}
	total := (len(lines) + batchSize - 1) / batchSize
	batches := make([]types.Batch, 0, total)
	emitted := make(map[string]int)

	for start := 0; start < len(lines); start += batchSize {
		end := start + batchSize
		if end > len(lines) {
			end = len(lines)
		}

		part := len(batches) + 1
		batch := types.Batch{
			Part:     part,
			FileName: sqlwriter.LineFileName(part, total),
			Lines:    make([]types.NumberedLine, 0, end-start),
		}

		rowNums := make(map[string]int)
		for _, line := range lines[start:end] {
			ref := types.ReferenceNumber(line.Source.EntryNumber)
			rowNums[ref]++
			batch.Lines = append(batch.Lines, types.NumberedLine{
				Line:            line,
				ReferenceNumber: ref,
				RowNum:          rowNums[ref],
				LineNo:          emitted[ref] + rowNums[ref],
			})
		}
		for ref, n := range rowNums {
			emitted[ref] += n
		}

		batches = append(batches, batch)
	}

	return batches
}
