// =============================================================================
// Ledger SQL Migration - Mapping Table Parser
// =============================================================================
//
// This module reads the CSV mapping tables the resolver is built from:
//   1. The chart of accounts, pairing legacy codes with new codes
//   2. The destination snapshot exports (accounts and one file per dimension),
//      each with the columns id, code, org_id
//
// Header names are matched case-insensitively after trimming; a UTF-8 BOM
// written by spreadsheet exports is ignored. Every value is trimmed.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
)

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents a parsed CSV file.
type CSVData struct {
	// Headers contains the normalised column headers.
	Headers []string

	// Rows contains the data rows as maps of header -> value.
	Rows []map[string]string

	// SourceFile is the path to the source CSV file.
	SourceFile string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file and checks that every required column is present.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - required: Column names that must appear in the header row (lowercase).
//
// RETURNS:
//   - A pointer to the CSVData struct.
//   - An IOFailureError if the file cannot be read, or a SourceShapeError if
//     it is empty or lacks a required column.
func Parse(filePath string, required []string) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, types.NewIOFailure("open", filePath, err)
	}
	defer file.Close()

	data, err := ParseReader(bufio.NewReader(file), required)
	if err != nil {
		if shape, ok := err.(*types.SourceShapeError); ok {
			shape.Path = filePath
			return nil, shape
		}
		return nil, types.NewIOFailure("read", filePath, err)
	}
	data.SourceFile = filePath
	return data, nil
}

// ParseReader parses CSV content from r. See Parse.
func ParseReader(r io.Reader, required []string) (*CSVData, error) {
	csvReader := csv.NewReader(r)
	configureReader(csvReader)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(allRows) == 0 {
		return nil, &types.SourceShapeError{Message: "CSV file is empty"}
	}

	headers := cleanHeaders(allRows[0])

	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &types.SourceShapeError{Missing: missing}
	}

	return &CSVData{
		Headers: headers,
		Rows:    extractDataRows(allRows[1:], headers),
	}, nil
}

// configureReader sets the permissive options mapping exports need.
func configureReader(reader *csv.Reader) {
	// Allow a variable number of fields per row.
	reader.FieldsPerRecord = -1

	// Allow quotes that don't follow strict CSV rules.
	reader.LazyQuotes = true

	reader.TrimLeadingSpace = true
}

// cleanHeaders trims and lowercases header values and strips a leading BOM.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, "\ufeff")
		}
		cleaned[i] = strings.ToLower(strings.TrimSpace(header))
	}
	return cleaned
}

// extractDataRows converts data rows to maps, skipping empty rows. A column
// missing from a short row reads as "". The first column with a given header
// wins.
func extractDataRows(rows [][]string, headers []string) []map[string]string {
	dataRows := make([]map[string]string, 0, len(rows))

	for _, row := range rows {
		if isRowEmpty(row) {
			continue
		}

		rowMap := make(map[string]string, len(headers))
		for colIndex, header := range headers {
			if _, seen := rowMap[header]; seen || header == "" {
				continue
			}
			value := ""
			if colIndex < len(row) {
				value = strings.TrimSpace(row[colIndex])
			}
			rowMap[header] = value
		}
		dataRows = append(dataRows, rowMap)
	}

	return dataRows
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
