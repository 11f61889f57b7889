// =============================================================================
// Ledger SQL Migration - Destination Diagnostics
// =============================================================================
//
// This module holds the only code that talks to the destination database. It
// is used by two commands and never during emission:
//   - snapshot:       exports the accounts and dimension tables to CSV
//   - verify --remote: reports what the destination already holds for the org
//
// Every session is opened with default_transaction_read_only so nothing here
// can modify the destination.
//
// =============================================================================

package diagnostics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ginjaninja78/ledger-sql-migration/internal/config"
	"github.com/ginjaninja78/ledger-sql-migration/internal/csvparser"
	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SNAPSHOT TABLES
// =============================================================================

// AccountsTable is the destination's chart of accounts.
const AccountsTable = "accounts"

// DimensionTables maps each dimension kind to its destination table.
var DimensionTables = map[types.DimensionKind]string{
	types.DimensionClassification: "classifications",
	types.DimensionProject:        "projects",
	types.DimensionWorkItem:       "analysis_work_items",
	types.DimensionSubTree:        "sub_tree",
}

// exportable is the whitelist of tables ExportTable will read.
func exportable(table string) bool {
	if table == AccountsTable {
		return true
	}
	for _, t := range DimensionTables {
		if t == table {
			return true
		}
	}
	return false
}

// =============================================================================
// CONNECTION
// =============================================================================

const connectTimeout = 10 * time.Second

// Client runs read-only queries against the destination.
type Client struct {
	pool *pgxpool.Pool
}

// PoolConfig builds the pool configuration for dest. The API key becomes the
// password when the connection string has none.
func PoolConfig(dest *config.Destination) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dest.DatabaseURL)
	if err != nil {
		return nil, &types.ConfigError{Field: config.EnvDatabaseURL, Message: err.Error()}
	}
	if cfg.ConnConfig.Password == "" && dest.APIKey != "" {
		cfg.ConnConfig.Password = dest.APIKey
	}
	if cfg.ConnConfig.ConnectTimeout == 0 {
		cfg.ConnConfig.ConnectTimeout = connectTimeout
	}
	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	cfg.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"
	cfg.ConnConfig.RuntimeParams["application_name"] = "ledger-migrate"
	cfg.MaxConns = 2
	return cfg, nil
}

// Connect opens a pool and checks the destination is reachable.
func Connect(ctx context.Context, dest *config.Destination) (*Client, error) {
	cfg, err := PoolConfig(dest)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach destination %s: %w", cfg.ConnConfig.Host, err)
	}
	return &Client{pool: pool}, nil
}

// Close releases the pool.
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// =============================================================================
// SNAPSHOT EXPORT
// =============================================================================

// ExportTable reads every row of table belonging to orgID, ordered by code.
func (c *Client) ExportTable(ctx context.Context, table, orgID string) ([]csvparser.SnapshotRow, error) {
	if !exportable(table) {
		return nil, &types.ConfigError{Field: "table", Message: fmt.Sprintf("%q is not a snapshot table", table)}
	}

	query := fmt.Sprintf(
		`SELECT id::text, code, org_id::text FROM %s WHERE org_id = $1 ORDER BY code, id`,
		pgx.Identifier{table}.Sanitize())
	rows, err := c.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (csvparser.SnapshotRow, error) {
		var r csvparser.SnapshotRow
		var code *string
		if err := row.Scan(&r.ID, &code, &r.OrgID); err != nil {
			return r, err
		}
		if code != nil {
			r.Code = *code
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return out, nil
}

// =============================================================================
// REMOTE SUMMARY
// =============================================================================

// Summary is what the destination already holds for one organisation.
type Summary struct {
	Headers      int
	HeaderDebit  decimal.Decimal
	HeaderCredit decimal.Decimal

	Lines      int
	LineDebit  decimal.Decimal
	LineCredit decimal.Decimal

	// MaxLineNo holds MAX(line_no) for each emitted reference number that is
	// already present, 0 when the header has no lines yet.
	MaxLineNo map[string]int
}

// ExistingRefs returns the emitted reference numbers already present, sorted.
func (s *Summary) ExistingRefs() []string {
	refs := make([]string, 0, len(s.MaxLineNo))
	for ref := range s.MaxLineNo {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Describe formats the summary as report lines.
func (s *Summary) Describe() []string {
	out := []string{
		fmt.Sprintf("destination headers: %d (debits %s, credits %s)",
			s.Headers, s.HeaderDebit.StringFixed(2), s.HeaderCredit.StringFixed(2)),
		fmt.Sprintf("destination lines: %d (debits %s, credits %s)",
			s.Lines, s.LineDebit.StringFixed(2), s.LineCredit.StringFixed(2)),
	}
	if refs := s.ExistingRefs(); len(refs) > 0 {
		out = append(out, fmt.Sprintf("reference numbers already present: %d; new lines will be numbered after the existing MAX(line_no)", len(refs)))
	}
	return out
}

const (
	headerSummarySQL = `
SELECT COUNT(*), COALESCE(SUM(total_debits), 0)::text, COALESCE(SUM(total_credits), 0)::text
FROM transactions
WHERE org_id = $1`

	lineSummarySQL = `
SELECT COUNT(*), COALESCE(SUM(debit), 0)::text, COALESCE(SUM(credit), 0)::text
FROM transaction_lines
WHERE org_id = $1`

	existingRefsSQL = `
SELECT t.reference_number, COALESCE(MAX(l.line_no), 0)::int
FROM transactions t
LEFT JOIN transaction_lines l ON l.transaction_fk = t.id
WHERE t.org_id = $1 AND t.reference_number = ANY($2)
GROUP BY t.reference_number`
)

// Summarize counts the org's headers and lines and finds which of refs are
// already present.
func (c *Client) Summarize(ctx context.Context, orgID string, refs []string) (*Summary, error) {
	s := &Summary{MaxLineNo: make(map[string]int)}

	var err error
	s.Headers, s.HeaderDebit, s.HeaderCredit, err = c.totals(ctx, headerSummarySQL, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise transactions: %w", err)
	}
	s.Lines, s.LineDebit, s.LineCredit, err = c.totals(ctx, lineSummarySQL, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise transaction lines: %w", err)
	}

	if len(refs) == 0 {
		return s, nil
	}
	rows, err := c.pool.Query(ctx, existingRefsSQL, orgID, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing references: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ref string
		var maxLine int
		if err := rows.Scan(&ref, &maxLine); err != nil {
			return nil, fmt.Errorf("failed to read existing references: %w", err)
		}
		s.MaxLineNo[ref] = maxLine
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read existing references: %w", err)
	}
	return s, nil
}

func (c *Client) totals(ctx context.Context, query, orgID string) (int, decimal.Decimal, decimal.Decimal, error) {
	var count int
	var debit, credit string
	if err := c.pool.QueryRow(ctx, query, orgID).Scan(&count, &debit, &credit); err != nil {
		return 0, decimal.Zero, decimal.Zero, err
	}
	d, err := decimal.NewFromString(debit)
	if err != nil {
		return 0, decimal.Zero, decimal.Zero, err
	}
	cr, err := decimal.NewFromString(credit)
	if err != nil {
		return 0, decimal.Zero, decimal.Zero, err
	}
	return count, d, cr, nil
}
