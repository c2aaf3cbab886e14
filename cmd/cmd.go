// Package cmd defines the command-line interface for footfall.
package cmd

import (
	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/logging"
	"github.com/huangsam/footfall/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(anomaliesCmd)
	rootCmd.AddCommand(daynightCmd)
	rootCmd.AddCommand(typicalCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(runsCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to config file")
	flags.String("profile", "", "Enable profiling and write profiles to files with this prefix")
	flags.String("format", "", "Source format: csv or xlsx or sql (inferred from the input path when empty)")
	flags.String("sheet", "", "Sheet to read from an xlsx source (defaults to the first sheet)")
	flags.String("source-backend", "", "SQL source backend: sqlite or mysql or postgresql")
	flags.String("source-db-connect", "", "Connection string of the SQL source (defaults to the input path for sqlite)")
	flags.String("source-table", "", "Table of the SQL source")
	flags.String("date-column", contract.DefaultDateColumn, "Name of the date column")
	flags.String("time-indicator", contract.DefaultTimeIndicator, "Name of the 3-hour time slice column")
	flags.StringP("primary-key", "k", "", "Spatial key column to group by, such as hex_id")
	flags.String("resident-column", schema.RawColumns[schema.Residents], "Name of the resident count column")
	flags.String("worker-column", schema.RawColumns[schema.Workers], "Name of the worker count column")
	flags.String("visitor-column", schema.RawColumns[schema.Visitors], "Name of the visitor count column")
	flags.Bool("day-night", false, "Group rows by daytime (6am-6pm) and nighttime (6pm-6am)")
	flags.String("agg", string(schema.SumAgg), "Aggregation operator: sum or mean or median or min or max or count")
	flags.Float64("std", contract.DefaultStd, "Z-score threshold beyond which a value is anomalous")
	flags.StringP("footfall-type", "t", "residents,workers,visitors", "Comma-separated footfall types to process")
	flags.Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	flags.Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	flags.StringP("output", "o", string(schema.TextOut), "Output format: text or csv or json or parquet or xlsx")
	flags.String("output-file", "", "Optional path to write output to")
	flags.String("name", "", "Export name used for <name>.parquet or <name>.xlsx (defaults to the command name)")
	flags.Int("width", 0, "Terminal width override (0 = auto-detect)")
	flags.String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	flags.String("log-level", "warn", "Log level: debug or info or warn or error")
	flags.String("log-format", logging.ConsoleFormat, "Log format: console or json")
	flags.String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or redis or none")
	flags.String("cache-db-connect", "", "Connection string of the cache (a redis:// URL for redis)")
	flags.String("run-backend", string(schema.NoneBackend), "Run history backend: sqlite or mysql or postgresql or none")
	flags.String("run-db-connect", "", "Connection string of the run history")
	if err := viper.BindPFlags(flags); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of anomaliesCmd to Viper
	anomaliesCmd.Flags().StringP("metric", "m", string(schema.Residents), "Footfall type to score: residents or workers or visitors")
	if err := viper.BindPFlags(anomaliesCmd.Flags()); err != nil {
		contract.LogFatal("Error binding anomalies flags", err)
	}

	// Bind all flags of typicalCmd to Viper
	typicalCmd.Flags().String("start", "", "Inclusive start date in YYYY-MM-DD or time ago")
	typicalCmd.Flags().String("end", "", "Inclusive end date in YYYY-MM-DD or time ago")
	if err := viper.BindPFlags(typicalCmd.Flags()); err != nil {
		contract.LogFatal("Error binding typical flags", err)
	}

	// Not bound to Viper: UnmarshalExact rejects keys outside ConfigRawInput
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
}
