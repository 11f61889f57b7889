// Package testutil builds workbook and CSV fixtures for package tests.
package testutil

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// TransactionHeaders is the header row of a workbook using the default
// column configuration.
var TransactionHeaders = []any{
	"entry no", "entry date", "description", "account code", "debit", "credit",
	"classification code", "project code", "work item code", "sub tree code",
}

// WriteWorkbook saves an .xlsx file with a single sheet holding rows.
func WriteWorkbook(t *testing.T, path, sheet string, rows [][]any) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rows[i]))
	}
	require.NoError(t, f.SaveAs(path))
}

// WriteCSV writes rows to path, creating parent directories.
func WriteCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()

	w := csv.NewWriter(file)
	require.NoError(t, w.WriteAll(rows))
}
