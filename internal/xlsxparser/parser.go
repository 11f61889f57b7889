// =============================================================================
// Ledger SQL Migration - Workbook Reader
// =============================================================================
//
// This module opens the source accounting workbook and turns the transactions
// sheet into typed SourceRows.
//
// SHEET SELECTION:
//   The sheet is matched by trimmed, lowercased name, so " Transactions " in
//   the workbook matches "transactions" in the configuration.
//
// TYPING RULES:
//   | Field          | Type                     | Failure                    |
//   |----------------|--------------------------|----------------------------|
//   | entry number   | int64                    | row rejected               |
//   | entry date     | YYYY-MM-DD               | row rejected               |
//   | debit / credit | decimal, scale 2, null=0 | row rejected               |
//   | everything else| trimmed string           | never                      |
//
// A required header that is missing fails the whole read with a
// SourceShapeError before any row is typed.
//
// FORMATS:
//   .xlsx / .xlsm / .xltx are read with excelize using raw cell values.
//   .xls is read with extrame/xls. Text dates there may also use Excel's
//   mm-dd-yy display format.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/ginjaninja78/ledger-sql-migration/internal/config"
	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Sheet is the typed content of the transactions sheet.
type Sheet struct {
	// Path is the workbook path.
	Path string

	// SheetName is the sheet's name as stored in the workbook.
	SheetName string

	// Headers are the trimmed header cells in column order.
	Headers []string

	// Rows are the successfully typed rows in sheet order.
	Rows []types.SourceRow

	// Rejected are rows whose entry number, date or amounts could not be typed.
	Rejected []types.RejectedRow
}

// DataRows returns the number of non-empty data rows read from the sheet.
func (s *Sheet) DataRows() int {
	return len(s.Rows) + len(s.Rejected)
}

// grid is a sheet as raw cell text plus the date system and text date
// layouts its format uses.
type grid struct {
	sheetName   string
	rows        [][]string
	date1904    bool
	dateLayouts []string
}

// =============================================================================
// READER
// =============================================================================

// Read opens the workbook, locates the transactions sheet and types its rows.
//
// PARAMETERS:
//   - path: The workbook path.
//   - sheet: The configured sheet name.
//   - columns: The configured header names.
//
// RETURNS:
//   - The typed sheet.
//   - A SourceShapeError if the sheet or a required column is missing, or an
//     IOFailureError if the file cannot be read.
func Read(path, sheet string, columns config.Columns) (*Sheet, error) {
	var (
		g   *grid
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xls":
		g, err = readXLS(path, sheet)
	default:
		g, err = readXLSX(path, sheet)
	}
	if err != nil {
		return nil, err
	}

	return typeRows(path, g, columns)
}

// readXLSX loads a sheet with excelize. Raw cell values are requested so that
// amounts and date serials are not passed through display formats.
func readXLSX(path, sheet string) (*grid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, types.NewIOFailure("open workbook", path, err)
	}
	defer f.Close()

	name, ok := matchSheet(f.GetSheetList(), sheet)
	if !ok {
		return nil, &types.SourceShapeError{
			Path:    path,
			Message: fmt.Sprintf("no sheet named %q (found %s)", sheet, strings.Join(f.GetSheetList(), ", ")),
		}
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, types.NewIOFailure("read sheet "+name+" of", path, err)
	}

	g := &grid{sheetName: name, rows: rows, dateLayouts: dateLayouts}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		g.date1904 = *props.Date1904
	}
	return g, nil
}

// readXLS loads a sheet from a legacy BIFF workbook.
func readXLS(path, sheet string) (*grid, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, types.NewIOFailure("open workbook", path, err)
	}

	var names []string
	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		names = append(names, ws.Name)
		if normalizeSheetName(ws.Name) != normalizeSheetName(sheet) {
			continue
		}

		g := &grid{sheetName: ws.Name, dateLayouts: xlsDateLayouts}
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := xlsRow(ws, r)
			if row == nil {
				g.rows = append(g.rows, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol()+1)
			for c := 0; c <= row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			g.rows = append(g.rows, cells)
		}
		return g, nil
	}

	return nil, &types.SourceShapeError{
		Path:    path,
		Message: fmt.Sprintf("no sheet named %q (found %s)", sheet, strings.Join(names, ", ")),
	}
}

// xlsRow returns nil for a row the sheet holds no record of. WorkSheet.Row
// panics on such rows instead of reporting them.
func xlsRow(ws *xls.WorkSheet, r int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(r)
}

// matchSheet finds the sheet whose trimmed lowercase name equals the wanted
// one. The first match in workbook order wins.
func matchSheet(names []string, want string) (string, bool) {
	for _, name := range names {
		if normalizeSheetName(name) == normalizeSheetName(want) {
			return name, true
		}
	}
	return "", false
}

func normalizeSheetName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// =============================================================================
// ROW TYPING
// =============================================================================

// columnIndex maps each logical field to its position in the header row.
type columnIndex struct {
	entryNumber, entryDate, description, account, debit, credit int
	dimensions                                                  map[types.DimensionKind]int
}

// typeRows locates the header row, checks required columns and types every
// data row.
func typeRows(path string, g *grid, columns config.Columns) (*Sheet, error) {
	sheet := &Sheet{Path: path, SheetName: g.sheetName}

	headerAt := -1
	for i, row := range g.rows {
		if !isRowEmpty(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, &types.SourceShapeError{Path: path, Message: fmt.Sprintf("sheet %q is empty", g.sheetName)}
	}

	sheet.Headers = cleanHeaders(g.rows[headerAt])
	idx, err := indexColumns(path, sheet.Headers, columns)
	if err != nil {
		return nil, err
	}

	for i := headerAt + 1; i < len(g.rows); i++ {
		row := g.rows[i]
		if isRowEmpty(row) {
			continue
		}

		src, rejected := typeRow(row, idx, i+1, g)
		if rejected != nil {
			sheet.Rejected = append(sheet.Rejected, *rejected)
			continue
		}
		sheet.Rows = append(sheet.Rows, src)
	}

	return sheet, nil
}

// indexColumns resolves the configured header names. Matching is exact after
// trimming; every missing required header is listed in the error.
func indexColumns(path string, headers []string, columns config.Columns) (columnIndex, error) {
	positions := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, seen := positions[h]; !seen && h != "" {
			positions[h] = i
		}
	}

	var missing []string
	find := func(name string) int {
		name = strings.TrimSpace(name)
		pos, ok := positions[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return pos
	}

	idx := columnIndex{
		entryNumber: find(columns.EntryNumber),
		entryDate:   find(columns.EntryDate),
		description: find(columns.Description),
		account:     find(columns.AccountCode),
		debit:       find(columns.Debit),
		credit:      find(columns.Credit),
		dimensions:  make(map[types.DimensionKind]int),
	}
	for _, kind := range types.DimensionKinds {
		if name := columns.Dimension(kind); name != "" {
			idx.dimensions[kind] = find(name)
		}
	}

	if len(missing) > 0 {
		return idx, &types.SourceShapeError{Path: path, Missing: missing}
	}
	return idx, nil
}

// typeRow converts one raw row. It returns either a SourceRow or the reason
// the row was rejected.
func typeRow(row []string, idx columnIndex, rowNumber int, g *grid) (types.SourceRow, *types.RejectedRow) {
	cell := func(i int) string {
		if i >= 0 && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	reject := func(reason types.RejectReason, value string) (types.SourceRow, *types.RejectedRow) {
		return types.SourceRow{}, &types.RejectedRow{RowNumber: rowNumber, Reason: reason, Detail: value}
	}

	entryNumber, err := ParseEntryNumber(cell(idx.entryNumber))
	if err != nil {
		return reject(types.ReasonInvalidEntryNumber, cell(idx.entryNumber))
	}

	entryDate, err := parseDate(cell(idx.entryDate), g.date1904, g.dateLayouts)
	if err != nil {
		return reject(types.ReasonInvalidEntryDate, cell(idx.entryDate))
	}

	debit, err := ParseAmount(cell(idx.debit))
	if err != nil {
		return reject(types.ReasonInvalidAmount, cell(idx.debit))
	}
	credit, err := ParseAmount(cell(idx.credit))
	if err != nil {
		return reject(types.ReasonInvalidAmount, cell(idx.credit))
	}

	src := types.SourceRow{
		RowNumber:         rowNumber,
		EntryNumber:       entryNumber,
		EntryDate:         entryDate,
		Description:       cell(idx.description),
		LegacyAccountCode: NormalizeCode(cell(idx.account)),
		DimensionCodes:    make(map[types.DimensionKind]string, len(idx.dimensions)),
		Debit:             debit,
		Credit:            credit,
	}
	for kind, pos := range idx.dimensions {
		src.DimensionCodes[kind] = NormalizeCode(cell(pos))
	}
	return src, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cleanHeaders strips surrounding whitespace (including non-breaking spaces
// and a UTF-8 BOM on the first cell) from header names.
func cleanHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, h := range row {
		h = strings.TrimPrefix(h, "\ufeff")
		headers[i] = strings.TrimSpace(strings.ReplaceAll(h, "\u00a0", " "))
	}
	return headers
}
