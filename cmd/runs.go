package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/iocache"
	"github.com/huangsam/footfall/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runsSetup loads the run history settings into cfg. It does not open the store,
// because opening migrates the schema to the latest version.
func runsSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := storeSetup("run-backend", "run-db-connect", schema.ValidRunBackends)
	if err != nil {
		return err
	}
	cfg.RunBackend = backend
	cfg.RunDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// openRunStore initializes the run store of the global manager.
func openRunStore() contract.RunStore {
	if err := iocache.InitStores(rootCtx, schema.NoneBackend, "", cfg.RunBackend, cfg.RunDBConnect); err != nil {
		contract.LogFatal("Failed to initialize run history", err)
	}
	return iocache.Manager.GetRunStore()
}

// runsCmd groups the run history commands.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage the run history",
	Long: `Manage the history of pipeline runs.

When --run-backend is set, every aggregate, anomalies, daynight and typical
run is recorded with its options, row counts and duration. Typical runs also
keep their three summaries.

Supported backends: SQLite, MySQL, PostgreSQL, or None (default)

Subcommands:
  status  - Show run counts and connection info
  export  - Export runs and typical rows to Parquet
  clear   - Remove the run history
  migrate - Run schema migrations`,
}

// runsClearCmd clears the run history.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the run history",
	Long: `Delete all recorded runs from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the run tables and the migration version table

Examples:
  footfall runs clear --run-backend sqlite`,
	PreRunE: runsSetup,
	Run: func(_ *cobra.Command, _ []string) {
		path := sqlitePath(cfg.RunDBConnect, contract.GetRunDBFilePath())
		if err := iocache.ClearRuns(rootCtx, cfg.RunBackend, path, cfg.RunDBConnect); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// runsStatusCmd shows run history status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run counts and connection details",
	Long: `Show the backend, connection state, run count, run times and table sizes of the run history.

Examples:
  footfall runs status --run-backend sqlite`,
	PreRunE: runsSetup,
	Run: func(_ *cobra.Command, _ []string) {
		store := openRunStore()
		if store == nil {
			iocache.PrintRunStatus(os.Stdout, schema.RunStatus{Backend: string(cfg.RunBackend)})
			return
		}
		status, err := store.GetStatus(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to get run status", err)
		}
		iocache.PrintRunStatus(os.Stdout, status)
	},
}

// runsExportCmd exports the run history to Parquet.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export runs and typical rows to Parquet",
	Long: `Export the run history to two Parquet files:

  <output-file>.runs.parquet     one row per run with its options as JSON
  <output-file>.typical.parquet  every stored typical row with its run_id

Requires: --output-file parameter

Examples:
  footfall runs export --run-backend sqlite --output-file history
  duckdb -c "SELECT * FROM read_parquet('history.runs.parquet')"`,
	PreRunE: runsSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExportRuns(rootCtx, openRunStore(), cfg.OutputFile, os.Stdout); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// runsMigrateCmd runs database migrations for the run store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage schema versions of the run history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  footfall runs migrate --run-backend postgresql --run-db-connect "$DSN"

  # Rollback everything
  footfall runs migrate --run-backend sqlite --target-version 0`,
	PreRunE: runsSetup,
	Run: func(cmd *cobra.Command, _ []string) {
		targetVersion, err := cmd.Flags().GetInt("target-version")
		if err != nil {
			contract.LogFatal("Invalid --target-version", err)
		}
		msg, err := iocache.MigrateRuns(rootCtx, cfg.RunBackend, cfg.RunDBConnect, targetVersion)
		if err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		fmt.Println(msg)
	},
}
