// =============================================================================
// Ledger SQL Migration - Converter Module
// =============================================================================
//
// This module contains the core conversion logic. It orchestrates the whole
// pipeline for one workbook, from reading rows to promoting SQL artifacts.
//
// CONVERSION PIPELINE:
//   1. Read the transactions sheet
//   2. Load the mapping tables and build the resolver
//   3. Filter rows into admitted lines
//   4. Check the unresolved-account tolerance
//   5. Group lines into balanced transaction headers
//   6. Partition and number the lines
//   7. Write the artifacts into a staging directory
//   8. Verify the staged artifacts
//   9. Write the report and promote everything into the output directory
//
// Steps 1-6 are pure and make up Prepare; nothing touches the output
// directory before step 7.
//
// FAILURE POLICY:
//   - Errors in steps 1-6: nothing staged
//   - Verification failure: staging purged
//   - I/O failure while staging or promoting: staging left for inspection
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/ginjaninja78/ledger-sql-migration/internal/config"
	"github.com/ginjaninja78/ledger-sql-migration/internal/resolver"
	"github.com/ginjaninja78/ledger-sql-migration/internal/sqlwriter"
	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/ginjaninja78/ledger-sql-migration/internal/validation"
	"github.com/ginjaninja78/ledger-sql-migration/internal/verifier"
	"github.com/ginjaninja78/ledger-sql-migration/internal/xlsxparser"
	"github.com/ginjaninja78/ledger-sql-migration/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Plan is everything computed before any file is written.
type Plan struct {
	Sheet    *xlsxparser.Sheet
	Resolver resolver.Stats
	Filter   *validation.Result
	Headers  []types.Header
	Batches  []types.Batch
}

// Expected returns the totals the verifier checks the artifacts against.
func (p *Plan) Expected() verifier.Expected {
	return verifier.Expected{
		Headers: len(p.Headers),
		Lines:   types.HeaderTotals(p.Headers),
	}
}

// Result represents the outcome of a full run.
type Result struct {
	Plan *Plan

	// Files summarises the line artifacts as written.
	Files []sqlwriter.FileSummary

	// Verification is the verifier's view of the staged artifacts.
	Verification *verifier.Result

	// Report is rendered into ReportPath on success and returned on
	// verification failure too.
	Report *utils.Report

	// Promoted lists the file names moved into the output directory.
	Promoted []string

	ReportPath string

	// ProcessingTime is the time taken to write, verify and promote.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Logger is the logging interface the pipeline writes to.
// *log.Logger from charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
	Error(msg interface{}, keyvals ...interface{})
}

// Converter runs the pipeline for one configuration.
type Converter struct {
	cfg    *config.Config
	logger Logger

	// OnBatch, if set, is called after each line artifact is written.
	OnBatch func(summary sqlwriter.FileSummary)
}

// New creates a new Converter. cfg must already be validated.
func New(cfg *config.Config, logger Logger) *Converter {
	return &Converter{cfg: cfg, logger: logger}
}

// =============================================================================
// PREPARE
// =============================================================================

// Prepare reads the inputs and computes headers and batches.
//
// RETURNS:
//   - The plan.
//   - SourceShapeError, IOFailureError, UnresolvedAccountError,
//     UnbalancedTransactionError or ReferenceCollisionError.
func (c *Converter) Prepare() (*Plan, error) {
	cfg := c.cfg

	// =========================================================================
	// STEP 1: READ WORKBOOK
	// =========================================================================

	c.logger.Info("reading workbook", "path", cfg.Workbook, "sheet", cfg.Sheet)
	sheet, err := xlsxparser.Read(cfg.Workbook, cfg.Sheet, cfg.Columns)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	c.logger.Debug("read workbook", "rows", len(sheet.Rows), "rejected", len(sheet.Rejected))

	// =========================================================================
	// STEP 2: BUILD RESOLVER
	// =========================================================================

	tables, err := resolver.LoadTables(cfg)
	if err != nil {
		return nil, err
	}
	res, err := resolver.New(cfg.OrgID, tables)
	if err != nil {
		return nil, err
	}
	stats := res.Stats()
	c.logger.Debug("loaded mappings",
		"legacy_codes", stats.LegacyCodes,
		"accounts", stats.Accounts,
		"duplicates", stats.DuplicateLegacyRows,
		"skipped_snapshot_rows", stats.SkippedSnapshotRows)
	if len(stats.ConflictingLegacyCodes) > 0 {
		c.logger.Warn("legacy codes listed with different new codes",
			"codes", stats.ConflictingLegacyCodes)
	}

	// =========================================================================
	// STEP 3: FILTER
	// =========================================================================

	filtered := validation.Filter(sheet.Rows, sheet.Rejected, res)
	for reason, n := range filtered.RejectCounts() {
		c.logger.Debug("rejected rows", "reason", reason, "count", n)
	}
	for kind, n := range filtered.Degraded {
		c.logger.Warn("dimension codes not found, set to NULL", "dimension", kind, "count", n)
	}

	// =========================================================================
	// STEP 4: UNRESOLVED TOLERANCE
	// =========================================================================

	if unresolved := filtered.UnresolvedRows(); unresolved > 0 {
		c.logger.Warn("rows with unresolved accounts dropped", "count", unresolved,
			"codes", len(filtered.Unresolved))
	}
	if err := validation.CheckTolerance(filtered.UnresolvedRows(), sheet.DataRows(), cfg.UnresolvedTolerance()); err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 5: GROUP
	// =========================================================================

	headers, err := Group(cfg.OrgID, filtered.Lines)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 6: PARTITION
	// =========================================================================

	batches := Partition(filtered.Lines, cfg.BatchSize)
	c.logger.Info("prepared import",
		"admitted", len(filtered.Lines),
		"rejected", len(filtered.Rejected),
		"transactions", len(headers),
		"batches", len(batches))

	return &Plan{
		Sheet:    sheet,
		Resolver: stats,
		Filter:   filtered,
		Headers:  headers,
		Batches:  batches,
	}, nil
}

// =============================================================================
// RUN
// =============================================================================

// Run executes the full pipeline.
//
// RETURNS:
//   - The run result. On a verification failure it is returned together with
//     the InvariantViolationError so the caller can print the report.
//   - The first error encountered.
func (c *Converter) Run() (*Result, error) {
	plan, err := c.Prepare()
	if err != nil {
		return nil, err
	}
	return c.Emit(plan)
}

// Emit runs steps 7-9 for a prepared plan. It returns what Run returns.
func (c *Converter) Emit(plan *Plan) (*Result, error) {
	startTime := time.Now()
	result := &Result{Plan: plan}

	// =========================================================================
	// STEP 7: WRITE STAGED ARTIFACTS
	// =========================================================================

	fm := utils.NewFileManager(c.cfg.OutputDir, sqlwriter.LineFilePattern)
	staging, err := fm.Stage()
	if err != nil {
		return nil, err
	}
	c.logger.Debug("staging artifacts", "dir", staging)

	writer := sqlwriter.NewWriter(staging, c.cfg.OrgID)
	writer.OnBatch = func(summary sqlwriter.FileSummary) {
		c.logger.Debug("wrote batch", "file", summary.Name, "rows", summary.Totals.Count)
		if c.OnBatch != nil {
			c.OnBatch(summary)
		}
	}
	files, err := writer.WriteAll(plan.Headers, plan.Batches)
	if err != nil {
		c.logger.Error("failed to write artifacts, staging left in place", "dir", staging)
		return nil, err
	}
	result.Files = files

	// =========================================================================
	// STEP 8: VERIFY
	// =========================================================================

	verification, err := verifier.Verify(staging, plan.Expected(), nil)
	var violation *types.InvariantViolationError
	if errors.As(err, &violation) {
		result.Verification = verification
		result.Report = BuildReport(c.cfg, plan, verification)
		if purgeErr := fm.Purge(); purgeErr != nil {
			c.logger.Error("failed to purge staging", "dir", staging, "err", purgeErr)
		}
		return result, err
	}
	if err != nil {
		return nil, err
	}
	result.Verification = verification

	// =========================================================================
	// STEP 9: REPORT AND PROMOTE
	// =========================================================================

	result.Report = BuildReport(c.cfg, plan, verification)
	if _, err := utils.WriteFile(staging, c.cfg.ReportFile, result.Report.Render()); err != nil {
		return nil, err
	}

	promoted, err := fm.Promote()
	if err != nil {
		c.logger.Error("failed to promote artifacts", "staging", staging, "output", c.cfg.OutputDir, "err", err)
		return nil, err
	}
	result.Promoted = promoted
	result.ReportPath = filepath.Join(c.cfg.OutputDir, c.cfg.ReportFile)
	result.ProcessingTime = time.Since(startTime)

	c.logger.Info("import artifacts ready",
		"dir", c.cfg.OutputDir,
		"files", len(promoted),
		"lines", verification.Lines.Count,
		"duration", result.ProcessingTime.Round(time.Millisecond))
	return result, nil
}

// =============================================================================
// REPORT
// =============================================================================

// BuildReport assembles the run report from the plan and, when available,
// the verification result.
func BuildReport(cfg *config.Config, plan *Plan, verification *verifier.Result) *utils.Report {
	totals := types.HeaderTotals(plan.Headers)

	rejected := make(map[string]int)
	for reason, n := range plan.Filter.RejectCounts() {
		rejected[string(reason)] = n
	}
	degraded := make(map[string]int)
	for kind, n := range plan.Filter.Degraded {
		degraded[string(kind)] = n
	}
	var unresolved []utils.Count
	for _, u := range plan.Filter.UnresolvedCodes() {
		unresolved = append(unresolved, utils.Count{Label: u.Code, Count: u.Count})
	}
	rows := make([]utils.RejectedRow, 0, len(plan.Filter.Rejected))
	for _, rej := range plan.Filter.Rejected {
		rows = append(rows, utils.RejectedRow{Row: rej.RowNumber, Reason: string(rej.Reason), Detail: rej.Detail})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Row < rows[j].Row })

	report := &utils.Report{
		Workbook:     cfg.Workbook,
		Sheet:        plan.Sheet.SheetName,
		SourceRows:   plan.Sheet.DataRows(),
		Admitted:     len(plan.Filter.Lines),
		Rejected:     utils.SortCounts(rejected),
		Degraded:     utils.SortCounts(degraded),
		Unresolved:   unresolved,
		RejectedRows: rows,
		Headers:      len(plan.Headers),
		HeaderDebit:  totals.Debit,
		HeaderCredit: totals.Credit,
	}

	if verification != nil {
		for _, f := range verification.Files {
			report.Files = append(report.Files, utils.FileTotals{
				Name:   f.Name,
				Rows:   f.Totals.Count,
				Debit:  f.Totals.Debit,
				Credit: f.Totals.Credit,
			})
		}
		report.Findings = verification.Findings
		report.Passed = verification.Passed()
	}
	return report
}
