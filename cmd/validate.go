// =============================================================================
// Ledger SQL Migration - Validate Command
// =============================================================================
//
// This file defines the 'validate' command. It runs the read, resolve, filter
// and group steps and prints what an import would contain, without writing
// anything.
//
// COMMAND USAGE:
//   ledger-migrate validate
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/ginjaninja78/ledger-sql-migration/internal/converter"
	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the workbook and mapping tables without writing files",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		plan, err := converter.New(cfg, logger).Prepare()
		if err != nil {
			return err
		}

		totals := types.HeaderTotals(plan.Headers)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Data rows:        %d\n", plan.Sheet.DataRows())
		fmt.Fprintf(out, "Admitted lines:   %d\n", len(plan.Filter.Lines))
		fmt.Fprintf(out, "Rejected rows:    %d\n", len(plan.Filter.Rejected))
		fmt.Fprintf(out, "Unresolved codes: %d\n", len(plan.Filter.Unresolved))
		fmt.Fprintf(out, "Transactions:     %d\n", len(plan.Headers))
		fmt.Fprintf(out, "Line files:       %d\n", len(plan.Batches))
		fmt.Fprintf(out, "Total debits:     %s\n", totals.Debit.StringFixed(2))
		fmt.Fprintf(out, "Total credits:    %s\n", totals.Credit.StringFixed(2))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
