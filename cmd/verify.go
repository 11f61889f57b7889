// =============================================================================
// Ledger SQL Migration - Verify Command
// =============================================================================
//
// This file defines the 'verify' command. It recomputes the expected totals
// from the inputs and re-checks the artifacts already in the output directory,
// for example after they were copied or edited by hand.
//
// COMMAND USAGE:
//   ledger-migrate verify [--remote]
//
// FLAGS:
//   --remote : Also query the destination (read-only). Transactions that
//              already have lines are simulated from their current
//              MAX(line_no) instead of from zero.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/ledger-sql-migration/internal/config"
	"github.com/ginjaninja78/ledger-sql-migration/internal/converter"
	"github.com/ginjaninja78/ledger-sql-migration/internal/diagnostics"
	"github.com/ginjaninja78/ledger-sql-migration/internal/verifier"
	"github.com/spf13/cobra"
)

var remote bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-verify the SQL files in the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().BoolVar(&remote, "remote", false, "Query the destination for existing lines (read-only)")
}

func runVerify(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	plan, err := converter.New(cfg, logger).Prepare()
	if err != nil {
		return err
	}

	var existing map[string]int
	if remote {
		dest, err := config.LoadDestination(cfg.EnvFile)
		if err != nil {
			return err
		}
		client, err := diagnostics.Connect(cmd.Context(), dest)
		if err != nil {
			return err
		}
		defer client.Close()

		refs := make([]string, 0, len(plan.Headers))
		for _, h := range plan.Headers {
			refs = append(refs, h.ReferenceNumber)
		}
		summary, err := client.Summarize(cmd.Context(), cfg.OrgID, refs)
		if err != nil {
			return err
		}
		for _, line := range summary.Describe() {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		existing = summary.MaxLineNo
	}

	logger.Info("verifying artifacts", "dir", cfg.OutputDir)
	result, err := verifier.Verify(cfg.OutputDir, plan.Expected(), existing)
	if result != nil {
		os.Stdout.Write(converter.BuildReport(cfg, plan, result).Render())
	}
	return err
}
