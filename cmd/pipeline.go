package cmd

import (
	"github.com/huangsam/footfall/core"
	"github.com/huangsam/footfall/internal/contract"
	"github.com/spf13/cobra"
)

// aggregateCmd produces the corrected daily series.
var aggregateCmd = &cobra.Command{
	Use:   "aggregate [input-path]",
	Short: "Aggregate footfall per date and correct anomalous counts.",
	Long: `Aggregate raw footfall counts per date and replace anomalous values.

For every footfall type, counts are aggregated per date (and per key or
day/night class when requested), scored with a population z-score inside each
year, and anomalous values are replaced by a trailing 7-row moving average.
The output carries the corrected value per type, their total and the weekly
and monthly moving averages of the total.

Examples:
  # Corrected totals per date
  footfall aggregate footfall.csv

  # Per hex cell with day/night split, averaged instead of summed
  footfall aggregate footfall.csv -k hex_id --day-night --agg mean

  # Export to Parquet as corrected.parquet
  footfall aggregate footfall.csv -o parquet --name corrected`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAggregate(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run aggregation", err)
		}
	},
}

// anomaliesCmd shows the scored table of a single footfall type.
var anomaliesCmd = &cobra.Command{
	Use:   "anomalies [input-path]",
	Short: "Show z-scores and anomaly flags for one footfall type.",
	Long: `Score one footfall type and show which dates are anomalous.

Each row carries the aggregated value, its z-score, the anomaly flag, the
trailing moving average and the corrected series.

Examples:
  # Residents beyond 3 standard deviations
  footfall anomalies footfall.csv

  # Workers with a tighter threshold
  footfall anomalies footfall.csv --metric workers --std 2`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAnomalies(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run anomaly detection", err)
		}
	},
}

// daynightCmd pivots corrected totals into daytime and nighttime columns.
var daynightCmd = &cobra.Command{
	Use:   "daynight [input-path]",
	Short: "Split corrected totals into daytime and nighttime columns.",
	Long: `Aggregate with day/night classes and pivot the corrected totals.

Daytime covers the 06-09, 09-12, 12-15 and 15-18 slices; nighttime covers
18-21, 21-24, 00-03 and 03-06.

Examples:
  footfall daynight footfall.csv -k hex_id`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteDaynight(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run day/night pivot", err)
		}
	},
}

// typicalCmd summarizes typical footfall per key and year.
var typicalCmd = &cobra.Command{
	Use:   "typical [input-path]",
	Short: "Summarize typical footfall per key and year.",
	Long: `Compute typical footfall: the mean corrected total per key and year,
overall and split by weekday and weekend.

The key defaults to hex_id. With --day-night the summaries report daytime and
nighttime means instead of a single average. Runs are recorded in the run
history when --run-backend is set.

Examples:
  # Typical footfall for 2023
  footfall typical footfall.csv --start 2023-01-01 --end 2023-12-31

  # Day/night means, one sheet per summary
  footfall typical footfall.csv --day-night -o xlsx --name typical`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTypical(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run typical summary", err)
		}
	},
}

// validateCmd reports the quality of a raw dataset.
var validateCmd = &cobra.Command{
	Use:   "validate [input-path]",
	Short: "Report duplicates and column statistics of a footfall export.",
	Long: `Inspect a raw footfall export before running the pipeline.

Reports the row count, duplicate rows, distinct values per column and
count, mean, std, min, max and negative values for each count column.

Examples:
  footfall validate footfall.csv -k hex_id`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteValidate(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot run validation", err)
		}
	},
}
