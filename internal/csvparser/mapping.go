package csvparser

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
)

// Chart of accounts columns. Only code and legacy_code are required;
// legacy_name breaks ties between rows sharing a legacy code. Other columns
// are ignored.
const (
	ChartCode       = "code"
	ChartLegacyCode = "legacy_code"
	ChartLegacyName = "legacy_name"
)

// Snapshot columns.
const (
	SnapshotID    = "id"
	SnapshotCode  = "code"
	SnapshotOrgID = "org_id"
)

// ChartRow is one row of the chart of accounts mapping.
type ChartRow struct {
	Code       string
	LegacyCode string
	LegacyName string
}

// SnapshotRow is one destination record: its UUID, code and organisation.
type SnapshotRow struct {
	ID    string
	Code  string
	OrgID string
}

// ReadChart reads the chart of accounts CSV. Rows are returned in file order.
func ReadChart(path string) ([]ChartRow, error) {
	data, err := Parse(path, []string{ChartCode, ChartLegacyCode})
	if err != nil {
		return nil, err
	}

	rows := make([]ChartRow, 0, len(data.Rows))
	for _, r := range data.Rows {
		rows = append(rows, ChartRow{
			Code:       r[ChartCode],
			LegacyCode: r[ChartLegacyCode],
			LegacyName: r[ChartLegacyName],
		})
	}
	return rows, nil
}

// ReadSnapshot reads a snapshot export with the columns id, code, org_id. A
// "uuid" column is accepted in place of "id".
func ReadSnapshot(path string) ([]SnapshotRow, error) {
	data, err := Parse(path, []string{SnapshotCode, SnapshotOrgID})
	if err != nil {
		return nil, err
	}

	idColumn := SnapshotID
	if !hasHeader(data.Headers, SnapshotID) {
		if !hasHeader(data.Headers, "uuid") {
			return nil, &types.SourceShapeError{Path: path, Missing: []string{SnapshotID}}
		}
		idColumn = "uuid"
	}

	rows := make([]SnapshotRow, 0, len(data.Rows))
	for _, r := range data.Rows {
		rows = append(rows, SnapshotRow{
			ID:    r[idColumn],
			Code:  r[SnapshotCode],
			OrgID: r[SnapshotOrgID],
		})
	}
	return rows, nil
}

// WriteSnapshot writes rows to path in the format ReadSnapshot accepts,
// creating the parent directory.
func WriteSnapshot(path string, rows []SnapshotRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return types.NewIOFailure("create directory", filepath.Dir(path), err)
	}

	file, err := os.Create(path)
	if err != nil {
		return types.NewIOFailure("create", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{SnapshotID, SnapshotCode, SnapshotOrgID}); err != nil {
		return types.NewIOFailure("write", path, err)
	}
	for _, r := range rows {
		if err := w.Write([]string{r.ID, r.Code, r.OrgID}); err != nil {
			return types.NewIOFailure("write", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return types.NewIOFailure("write", path, err)
	}
	return nil
}

func hasHeader(headers []string, name string) bool {
	for _, h := range headers {
		if h == name {
			return true
		}
	}
	return false
}
