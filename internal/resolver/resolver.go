// =============================================================================
// Ledger SQL Migration - Dimension Resolver
// =============================================================================
//
// The resolver turns source codes into destination UUIDs. It is built once
// from the cached mapping tables and never contacts the destination.
//
// ACCOUNT RESOLUTION:
//   legacy code --(chart of accounts)--> new code --(accounts snapshot)--> UUID
//
// DIMENSION RESOLUTION:
//   code --(dimension snapshot)--> UUID
//
// RULES:
//   - Codes are compared as strings after trimming; leading zeros count.
//   - A legacy code listed more than once in the chart keeps one target: the
//     first row carrying a legacy name, otherwise the first row.
//   - Snapshot rows from another organisation are ignored. Within the
//     organisation the first row for a code wins.
//
// =============================================================================

package resolver

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/ledger-sql-migration/internal/config"
	"github.com/ginjaninja78/ledger-sql-migration/internal/csvparser"
	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/ginjaninja78/ledger-sql-migration/internal/xlsxparser"
	"github.com/google/uuid"
)

// =============================================================================
// TABLES
// =============================================================================

// Tables holds the raw mapping tables a Resolver is built from.
type Tables struct {
	Chart      []csvparser.ChartRow
	Accounts   []csvparser.SnapshotRow
	Dimensions map[types.DimensionKind][]csvparser.SnapshotRow
}

// LoadTables reads the chart of accounts and every configured snapshot file.
// A dimension whose column is disabled is not read.
func LoadTables(cfg *config.Config) (*Tables, error) {
	chart, err := csvparser.ReadChart(cfg.ChartOfAccounts)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart of accounts: %w", err)
	}

	accounts, err := csvparser.ReadSnapshot(cfg.Snapshot.Accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts snapshot: %w", err)
	}

	tables := &Tables{
		Chart:      chart,
		Accounts:   accounts,
		Dimensions: make(map[types.DimensionKind][]csvparser.SnapshotRow),
	}

	for _, kind := range types.DimensionKinds {
		if cfg.Columns.Dimension(kind) == "" {
			continue
		}
		rows, err := csvparser.ReadSnapshot(cfg.Snapshot.Dimension(kind))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s snapshot: %w", kind, err)
		}
		tables.Dimensions[kind] = rows
	}

	return tables, nil
}

// =============================================================================
// RESOLVER
// =============================================================================

// Stats describes what the resolver loaded.
type Stats struct {
	// LegacyCodes is the number of distinct legacy codes in the chart.
	LegacyCodes int

	// DuplicateLegacyRows counts chart rows dropped because their legacy code
	// was already mapped.
	DuplicateLegacyRows int

	// ConflictingLegacyCodes lists legacy codes whose duplicate rows named
	// different new codes, in chart order.
	ConflictingLegacyCodes []string

	// Accounts is the number of account codes in the organisation's snapshot.
	Accounts int

	// Dimensions is the number of codes loaded per dimension kind.
	Dimensions map[types.DimensionKind]int

	// SkippedSnapshotRows counts snapshot rows ignored for a foreign or
	// malformed org_id or an unparsable id.
	SkippedSnapshotRows int
}

// Resolver maps source codes to destination UUIDs.
type Resolver struct {
	legacy   *codeTable
	accounts *codeTable
	dims     map[types.DimensionKind]*codeTable
	stats    Stats
}

// New builds a Resolver for orgID from tables.
func New(orgID string, tables *Tables) (*Resolver, error) {
	org, err := uuid.Parse(orgID)
	if err != nil {
		return nil, &types.ConfigError{Field: "org_id", Message: err.Error()}
	}

	r := &Resolver{
		legacy:   newCodeTable(),
		accounts: newCodeTable(),
		dims:     make(map[types.DimensionKind]*codeTable),
		stats:    Stats{Dimensions: make(map[types.DimensionKind]int)},
	}

	r.loadChart(tables.Chart)
	r.stats.SkippedSnapshotRows += loadSnapshot(r.accounts, org, tables.Accounts)
	r.stats.Accounts = r.accounts.Len()

	for _, kind := range types.DimensionKinds {
		rows, ok := tables.Dimensions[kind]
		if !ok {
			continue
		}
		table := newCodeTable()
		r.stats.SkippedSnapshotRows += loadSnapshot(table, org, rows)
		r.dims[kind] = table
		r.stats.Dimensions[kind] = table.Len()
	}

	return r, nil
}

// loadChart de-duplicates the chart by legacy code.
func (r *Resolver) loadChart(chart []csvparser.ChartRow) {
	type choice struct {
		code     string
		named    bool
		conflict bool
	}
	chosen := make(map[string]*choice)
	var order []string

	for _, row := range chart {
		legacy := xlsxparser.NormalizeCode(row.LegacyCode)
		code := xlsxparser.NormalizeCode(row.Code)
		if legacy == "" || code == "" {
			continue
		}
		named := strings.TrimSpace(row.LegacyName) != ""

		current, seen := chosen[legacy]
		if !seen {
			chosen[legacy] = &choice{code: code, named: named}
			order = append(order, legacy)
			continue
		}

		r.stats.DuplicateLegacyRows++
		if current.code != code {
			current.conflict = true
		}
		if named && !current.named {
			current.code = code
			current.named = true
		}
	}

	for _, legacy := range order {
		c := chosen[legacy]
		r.legacy.Put(legacy, c.code)
		if c.conflict {
			r.stats.ConflictingLegacyCodes = append(r.stats.ConflictingLegacyCodes, legacy)
		}
	}
	r.stats.LegacyCodes = r.legacy.Len()
}

// loadSnapshot copies the organisation's rows into table and returns the
// number of rows skipped.
func loadSnapshot(table *codeTable, org uuid.UUID, rows []csvparser.SnapshotRow) int {
	skipped := 0
	for _, row := range rows {
		rowOrg, err := uuid.Parse(row.OrgID)
		if err != nil || rowOrg != org {
			skipped++
			continue
		}
		id, err := uuid.Parse(row.ID)
		code := xlsxparser.NormalizeCode(row.Code)
		if err != nil || code == "" {
			skipped++
			continue
		}
		if _, exists := table.Get(code); exists {
			continue
		}
		table.Put(code, id.String())
	}
	return skipped
}

// =============================================================================
// LOOKUPS
// =============================================================================

// NewCode returns the canonical account code for a legacy code.
func (r *Resolver) NewCode(legacyCode string) (string, bool) {
	return r.legacy.Get(xlsxparser.NormalizeCode(legacyCode))
}

// AccountUUID resolves a legacy account code to the destination account UUID.
// The result may be the all-zero UUID if the snapshot holds one; callers
// decide whether that is admissible.
func (r *Resolver) AccountUUID(legacyCode string) (string, bool) {
	code, ok := r.NewCode(legacyCode)
	if !ok {
		return "", false
	}
	return r.accounts.Get(code)
}

// DimUUID resolves a dimension code. It reports false for an empty code, an
// unknown code, or a kind with no loaded table.
func (r *Resolver) DimUUID(kind types.DimensionKind, code string) (string, bool) {
	table, ok := r.dims[kind]
	if !ok {
		return "", false
	}
	return table.Get(xlsxparser.NormalizeCode(code))
}

// Stats returns what the resolver loaded.
func (r *Resolver) Stats() Stats {
	return r.stats
}
