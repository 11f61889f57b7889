// =============================================================================
// Ledger SQL Migration - Main Entry Point
// =============================================================================
//
// This is the main entry point for the ledger-migrate CLI. It delegates to
// the cmd package and exits with the code it returns.
//
// USAGE:
//   ledger-migrate process   - Generate and verify the SQL import files
//   ledger-migrate validate  - Check the inputs without writing files
//   ledger-migrate verify    - Re-verify an existing output directory
//   ledger-migrate snapshot  - Refresh the cached destination tables
//   ledger-migrate version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Pipeline stages (not for external import)
//   - pkg/       : Staging, promotion and the run report
//
// =============================================================================

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/ginjaninja78/ledger-sql-migration/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cmd.Execute(ctx)
	stop()
	os.Exit(code)
}
