// =============================================================================
// Ledger SQL Migration - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (ledger-migrate)
//   ├── processCmd  (ledger-migrate process)
//   ├── validateCmd (ledger-migrate validate)
//   ├── verifyCmd   (ledger-migrate verify)
//   ├── snapshotCmd (ledger-migrate snapshot)
//   └── versionCmd  (ledger-migrate version)
//
// The root command is responsible for:
//   1. Setting up global flags (--config, --verbose, input overrides)
//   2. Loading the run configuration and applying flag overrides
//   3. Setting up logging
//   4. Mapping the returned error to the process exit code
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/ginjaninja78/ledger-sql-migration/internal/config"
	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the run configuration file.
var cfgFile string

// verbose enables debug logging.
var verbose bool

// Overrides applied on top of the configuration file.
var (
	orgID     string
	workbook  string
	outputDir string
	envFile   string
)

// logger is shared by every command. It writes to stderr so stdout carries
// only the report.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "ledger-migrate",
})

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "ledger-migrate",
	Short: "Ledger SQL Migration - Turn an accounting workbook into balanced SQL import files",
	Long: `Ledger SQL Migration reads the transactions sheet of a legacy accounting
workbook and produces SQL files that load it into the destination ledger.

Key Features:
  - Legacy account codes remapped through the chart of accounts
  - Only balanced transactions are emitted
  - Line numbers continue after lines already in the destination
  - Every artifact is re-read and verified before it is promoted

Example Usage:
  ledger-migrate process                     # Emit the SQL artifacts
  ledger-migrate process --batch-size 1000   # Larger line files
  ledger-migrate validate                    # Read and check without writing
  ledger-migrate verify --remote             # Re-verify the output directory
  ledger-migrate snapshot                    # Refresh the cached destination tables`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI and returns the process exit code:
// 0 on success, 1 when the data fails an integrity check, 2 otherwise.
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		logger.Error("run failed", "kind", types.KindOf(err), "exit", types.ExitCode(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return types.ExitCode(err)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// loadConfig reads the configuration file, applies the flag overrides and
// validates the result. The log level from the file applies unless --verbose
// was given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("org-id") {
		cfg.OrgID = orgID
	}
	if flags.Changed("workbook") {
		cfg.Workbook = workbook
	}
	if flags.Changed("output") {
		cfg.OutputDir = outputDir
	}
	if flags.Changed("env-file") {
		cfg.EnvFile = envFile
	}

	if !verbose {
		level, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, &types.ConfigError{Field: "log_level", Message: err.Error()}
		}
		logger.SetLevel(level)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("loaded configuration", "file", cfgFile, "org", cfg.OrgID, "workbook", cfg.Workbook)
	return cfg, nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "config.yaml", "Path to the run configuration file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	flags.StringVar(&orgID, "org-id", "", "Destination organisation UUID (overrides org_id)")
	flags.StringVar(&workbook, "workbook", "", "Source workbook path (overrides workbook)")
	flags.StringVarP(&outputDir, "output", "o", "", "Output directory (overrides output_dir)")
	flags.StringVar(&envFile, "env-file", "", "Dot-env file with destination credentials (overrides env_file)")
}
