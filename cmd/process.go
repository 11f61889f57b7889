// =============================================================================
// Ledger SQL Migration - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command. It runs the full
// pipeline for the configured workbook.
//
// COMMAND USAGE:
//   ledger-migrate process [flags]
//
// FLAGS:
//   --batch-size     : Maximum lines per line file
//   --max-unresolved : Share of rows (0-100) allowed an unresolved account
//   --progress       : Show a progress bar while line files are written
//
// On success the artifacts and the report are in the output directory and the
// report is printed to stdout. On failure nothing in the output directory is
// changed.
//
// =============================================================================

package cmd

import (
	"os"

	"github.com/ginjaninja78/ledger-sql-migration/internal/converter"
	"github.com/ginjaninja78/ledger-sql-migration/internal/sqlwriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	batchSize     int
	maxUnresolved float64
	showProgress  bool
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Generate the SQL import files",
	Long: `The process command reads the transactions sheet, remaps legacy account
codes, drops rows that cannot be imported and groups the rest into balanced
transactions. It writes one header file and numbered line files to a staging
directory, verifies them, and moves them into the output directory.

Exit codes:
  0  artifacts written and verified
  1  the data failed an integrity check (unbalanced or colliding
     transactions, too many unresolved accounts, verification failure)
  2  configuration, input or file system problem`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Maximum lines per line file (overrides batch_size)")
	processCmd.Flags().Float64Var(&maxUnresolved, "max-unresolved", 100, "Percent of rows allowed an unresolved account (overrides max_unresolved_percent)")
	processCmd.Flags().BoolVar(&showProgress, "progress", true, "Show a progress bar while writing line files")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = batchSize
	}
	if cmd.Flags().Changed("max-unresolved") {
		cfg.MaxUnresolvedPercent = &maxUnresolved
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	conv := converter.New(cfg, logger)
	plan, err := conv.Prepare()
	if err != nil {
		return err
	}

	if showProgress && len(plan.Batches) > 0 {
		bar := progressbar.NewOptions(len(plan.Batches),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Writing line files"),
			progressbar.OptionClearOnFinish(),
		)
		conv.OnBatch = func(sqlwriter.FileSummary) {
			if err := bar.Add(1); err != nil {
				logger.Warn("failed to update progress bar", "err", err)
			}
		}
		defer bar.Finish()
	}

	result, err := conv.Emit(plan)
	if result != nil && result.Report != nil {
		os.Stdout.Write(result.Report.Render())
	}
	if err != nil {
		return err
	}

	logger.Info("report written", "path", result.ReportPath)
	return nil
}
