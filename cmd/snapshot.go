// =============================================================================
// Ledger SQL Migration - Snapshot Command
// =============================================================================
//
// This file defines the 'snapshot' command. It exports the destination's
// accounts and dimension tables for the configured organisation into the
// snapshot CSV files the resolver reads. It only reads from the destination
// and can be re-run at any time.
//
// COMMAND USAGE:
//   ledger-migrate snapshot
//
// =============================================================================

package cmd

import (
	"github.com/ginjaninja78/ledger-sql-migration/internal/config"
	"github.com/ginjaninja78/ledger-sql-migration/internal/csvparser"
	"github.com/ginjaninja78/ledger-sql-migration/internal/diagnostics"
	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export the destination's accounts and dimension tables to CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSnapshot(cmd)
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dest, err := config.LoadDestination(cfg.EnvFile)
	if err != nil {
		return err
	}

	client, err := diagnostics.Connect(cmd.Context(), dest)
	if err != nil {
		return err
	}
	defer client.Close()

	export := func(table, path string) error {
		rows, err := client.ExportTable(cmd.Context(), table, cfg.OrgID)
		if err != nil {
			return err
		}
		if err := csvparser.WriteSnapshot(path, rows); err != nil {
			return err
		}
		logger.Info("exported table", "table", table, "rows", len(rows), "path", path)
		return nil
	}

	if err := export(diagnostics.AccountsTable, cfg.Snapshot.Accounts); err != nil {
		return err
	}
	for _, kind := range types.DimensionKinds {
		path := cfg.Snapshot.Dimension(kind)
		if path == "" {
			logger.Debug("no snapshot file configured, skipping", "dimension", kind)
			continue
		}
		if err := export(diagnostics.DimensionTables[kind], path); err != nil {
			return err
		}
	}
	return nil
}
