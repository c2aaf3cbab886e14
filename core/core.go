// Package core has core logic for loading, correcting and summarizing footfall data.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/footfall/core/agg"
	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/outwriter"
	"github.com/huangsam/footfall/internal/source"
	"github.com/huangsam/footfall/schema"
)

// ExecutorFunc defines the function signature for executing the pipeline commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// ExecuteAggregate runs the full correction pipeline and prints the corrected series.
// It serves as the main entry point for the 'aggregate' command.
func ExecuteAggregate(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	rows, err := GetAggregateResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintCorrectedResults(rows, cfg, time.Since(start))
}

// ExecuteAnomalies prints the anomaly table of a single footfall type.
func ExecuteAnomalies(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	rows, err := GetAnomalyResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintAnomalyResults(rows, cfg, time.Since(start))
}

// ExecuteDaynight prints the corrected totals pivoted into day and night columns.
func ExecuteDaynight(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	rows, err := GetDaynightResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintDaynightResults(rows, cfg, time.Since(start))
}

// ExecuteTypical prints the typical footfall summaries for the configured window.
func ExecuteTypical(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	result, err := GetTypicalResults(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintTypicalResults(result, cfg, time.Since(start))
}

// ExecuteValidate prints a data quality report of the raw source.
func ExecuteValidate(ctx context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	start := time.Now()
	report, err := GetValidationResults(ctx, cfg)
	if err != nil {
		return err
	}
	return outwriter.PrintValidationReport(report, cfg, time.Since(start))
}

// GetAggregateResults loads the source and returns the corrected series.
func GetAggregateResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) ([]schema.CorrectedRow, error) {
	records, err := loadRecords(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ctx, run := beginRun(ctx, mgr, "aggregate", cfg, len(records))
	rows, err := agg.Aggregate(ctx, records, cfg.Pipeline, cacheStore(mgr))
	if err != nil {
		run.end(ctx, 0)
		return nil, err
	}
	run.end(ctx, len(rows))
	return rows, nil
}

// GetAnomalyResults loads the source and returns the anomaly table for cfg.Metric.
func GetAnomalyResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) ([]schema.AnomalyRow, error) {
	records, err := loadRecords(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ctx, run := beginRun(ctx, mgr, "anomalies", cfg, len(records))
	rows, err := agg.DetectMetric(ctx, records, cfg.Metric, cfg.Pipeline, cacheStore(mgr))
	if err != nil {
		run.end(ctx, 0)
		return nil, err
	}
	run.end(ctx, len(rows))
	return rows, nil
}

// GetDaynightResults aggregates with day/night classes and pivots the corrected totals.
func GetDaynightResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) ([]schema.DaynightRow, error) {
	cfg = cfg.Clone()
	cfg.Pipeline.DayNight = true
	records, err := loadRecords(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ctx, run := beginRun(ctx, mgr, "daynight", cfg, len(records))
	rows, err := agg.Aggregate(ctx, records, cfg.Pipeline, cacheStore(mgr))
	if err != nil {
		run.end(ctx, 0)
		return nil, err
	}
	pivoted := agg.PivotDaynight(rows, cfg.Pipeline.PrimaryKey != "")
	run.end(ctx, len(pivoted))
	return pivoted, nil
}

// GetTypicalResults loads the source and returns the typical summaries.
// The spatial key column defaults to hex_id when none is configured.
func GetTypicalResults(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) (schema.TypicalResult, error) {
	cfg = cfg.Clone()
	if cfg.Pipeline.PrimaryKey == "" {
		cfg.Pipeline.PrimaryKey = contract.DefaultTypicalKey
	}
	if cfg.Columns.Key == "" {
		cfg.Columns.Key = cfg.Pipeline.PrimaryKey
	}
	records, err := loadRecords(ctx, cfg)
	if err != nil {
		return schema.TypicalResult{}, err
	}
	ctx, run := beginRun(ctx, mgr, "typical", cfg, len(records))
	result, err := SummarizeTypical(ctx, records, cfg.TypicalOptions(), cacheStore(mgr))
	if err != nil {
		run.end(ctx, 0)
		return schema.TypicalResult{}, err
	}
	run.recordTypical(ctx, result)
	run.end(ctx, len(result.Typical)+len(result.Weekday)+len(result.Weekend))
	return result, nil
}

// GetValidationResults loads the source and returns its quality report.
func GetValidationResults(ctx context.Context, cfg *contract.Config) (schema.ValidationReport, error) {
	records, err := loadRecords(ctx, cfg)
	if err != nil {
		return schema.ValidationReport{}, err
	}
	return ValidateRecords(records, cfg.Columns), nil
}

// loadRecords reads the configured source into memory.
func loadRecords(ctx context.Context, cfg *contract.Config) ([]schema.FootfallRecord, error) {
	src, err := source.New(cfg)
	if err != nil {
		return nil, err
	}
	records, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", src.Describe(), err)
	}
	if !shouldSuppressHeader(ctx) {
		outwriter.LogRunHeader(cfg, src.Describe(), len(records))
	}
	return records, nil
}

// cacheStore returns the anomaly cache of the manager, or nil when caching is off.
func cacheStore(mgr contract.CacheManager) contract.CacheStore {
	if mgr == nil {
		return nil
	}
	return mgr.GetCacheStore()
}
