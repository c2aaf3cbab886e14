// Package agg has aggregation logic for footfall counts.
package agg

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/huangsam/footfall/core/algo"
	"github.com/huangsam/footfall/core/feature"
	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/logging"
	"github.com/huangsam/footfall/schema"
)

// Aggregate derives calendar features, aggregates each raw metric per group, corrects
// anomalies per requested footfall type and merges the corrected values into one series.
// The store may be nil, in which case nothing is cached.
func Aggregate(ctx context.Context, records []schema.FootfallRecord, opts contract.Options, store contract.CacheStore) ([]schema.CorrectedRow, error) {
	metrics, opts, err := prepare(records, opts)
	if err != nil || len(metrics) == 0 {
		return nil, err
	}
	return CorrectMetrics(ctx, metrics, opts, store)
}

// DetectMetric runs the same preparation as Aggregate and returns the annotated table
// for a single footfall type.
func DetectMetric(ctx context.Context, records []schema.FootfallRecord, metric schema.FootfallType, opts contract.Options, store contract.CacheStore) ([]schema.AnomalyRow, error) {
	opts.FootfallTypes = []schema.FootfallType{metric}
	metrics, opts, err := prepare(records, opts)
	if err != nil || len(metrics) == 0 {
		return nil, err
	}
	return cachedDetect(ctx, store, metrics, metric, detectOptions(opts))
}

// prepare validates the options up front, then derives features and aggregates raw counts.
func prepare(records []schema.FootfallRecord, opts contract.Options) ([]schema.AggregatedMetric, contract.Options, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, opts, err
	}
	features, err := feature.Derive(records, feature.Options{TimeSlice: opts.DayNight})
	if err != nil {
		return nil, opts, fmt.Errorf("deriving features: %w", err)
	}
	return GroupMetrics(features, opts), opts, nil
}

// GroupMetrics aggregates every raw metric per grouping tuple with the configured operator.
// The grouping is [key?, daynight?, count_date, weekday_name, week_class] plus year and month.
// Rows lacking an enabled grouping value are excluded. Output is ordered by date.
func GroupMetrics(features []schema.FeatureRecord, opts contract.Options) []schema.AggregatedMetric {
	type bucket struct {
		tuple  schema.GroupTuple
		values map[schema.FootfallType][]float64
	}

	index := map[schema.GroupTuple]*bucket{}
	var order []*bucket
	skipped := 0
	for _, f := range features {
		tuple := schema.GroupTuple{
			CountDate:   f.CountDate,
			WeekdayName: f.WeekdayName,
			WeekClass:   f.WeekClass,
			Year:        f.Year,
			Month:       f.Month,
		}
		if opts.PrimaryKey != "" {
			if f.Key == "" {
				skipped++
				continue
			}
			tuple.Key = f.Key
		}
		if opts.DayNight {
			if f.Daynight == "" {
				skipped++
				continue
			}
			tuple.Daynight = f.Daynight
		}

		b, ok := index[tuple]
		if !ok {
			b = &bucket{tuple: tuple, values: map[schema.FootfallType][]float64{}}
			index[tuple] = b
			order = append(order, b)
		}
		for _, ft := range schema.DefaultFootfallTypes {
			b.values[ft] = append(b.values[ft], f.Count(ft))
		}
	}
	if skipped > 0 {
		logging.Warn("rows excluded from aggregation", "reason", "missing group value", "rows", skipped)
	}

	out := make([]schema.AggregatedMetric, len(order))
	for i, b := range order {
		values := make(map[schema.FootfallType]float64, len(b.values))
		for ft, vs := range b.values {
			values[ft] = Apply(opts.Agg, vs)
		}
		out[i] = schema.AggregatedMetric{GroupTuple: b.tuple, Values: values}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].GroupTuple, out[j].GroupTuple
		if a.CountDate != b.CountDate {
			return a.CountDate < b.CountDate
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Daynight < b.Daynight
	})
	return out
}

// Apply reduces values with an aggregation operator, skipping NaN. Unknown operators fall back to sum.
func Apply(op schema.AggOperator, values []float64) float64 {
	values = dropNaN(values)
	switch op {
	case schema.MeanAgg:
		return algo.Mean(values)
	case schema.MedianAgg:
		return algo.Median(values)
	case schema.MinAgg:
		if len(values) == 0 {
			return math.NaN()
		}
		m := values[0]
		for _, v := range values[1:] {
			m = math.Min(m, v)
		}
		return m
	case schema.MaxAgg:
		if len(values) == 0 {
			return math.NaN()
		}
		m := values[0]
		for _, v := range values[1:] {
			m = math.Max(m, v)
		}
		return m
	case schema.CountAgg:
		return float64(len(values))
	default:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum
	}
}

// CorrectMetrics runs anomaly detection for every requested type and merges the results.
func CorrectMetrics(ctx context.Context, metrics []schema.AggregatedMetric, opts contract.Options, store contract.CacheStore) ([]schema.CorrectedRow, error) {
	if len(metrics) == 0 {
		return nil, nil
	}
	detect := detectOptions(opts)
	perType := make(map[schema.FootfallType][]schema.AnomalyRow, len(opts.FootfallTypes))
	for _, ft := range opts.FootfallTypes {
		rows, err := cachedDetect(ctx, store, metrics, ft, detect)
		if err != nil {
			return nil, fmt.Errorf("detecting %s anomalies: %w", ft, err)
		}
		logging.Info("anomalies detected", "type", ft, "anomalies", algo.CountAnomalies(rows), "rows", len(rows))
		perType[ft] = rows
	}
	return MergeCorrected(perType, opts.FootfallTypes), nil
}

// MergeCorrected left-joins the per-type corrected values onto the first type's rows.
// Rows are matched on the grouping tuple without year and month; those come from the
// first type's rows once all types are merged. Totals treat a missing type as 0, and a
// NaN value counts as missing.
func MergeCorrected(perType map[schema.FootfallType][]schema.AnomalyRow, types []schema.FootfallType) []schema.CorrectedRow {
	if len(types) == 0 || len(perType[types[0]]) == 0 {
		return nil
	}

	lookup := make(map[schema.FootfallType]map[string]schema.AnomalyRow, len(types))
	for _, ft := range types[1:] {
		m := make(map[string]schema.AnomalyRow, len(perType[ft]))
		for _, r := range perType[ft] {
			m[r.MergeKey()] = r
		}
		lookup[ft] = m
	}

	base := perType[types[0]]
	out := make([]schema.CorrectedRow, len(base))
	for i, b := range base {
		row := schema.CorrectedRow{
			GroupTuple: b.GroupTuple,
			Corrected:  make(map[schema.FootfallType]float64, len(types)),
		}
		add := func(ft schema.FootfallType, r schema.AnomalyRow) {
			if !math.IsNaN(r.CorrectedValue) {
				row.Corrected[ft] = r.CorrectedValue
				row.CorrectedTotal += r.CorrectedValue
			}
			row.CorrectedMAWeeklyTotal += zeroIfNaN(r.CorrectedMAWeekly)
			row.CorrectedMAMonthlyTotal += zeroIfNaN(r.CorrectedMAMonthly)
		}
		add(types[0], b)
		for _, ft := range types[1:] {
			if r, ok := lookup[ft][b.MergeKey()]; ok {
				add(ft, r)
			}
		}
		out[i] = row
	}
	return out
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func dropNaN(values []float64) []float64 {
	for _, v := range values {
		if math.IsNaN(v) {
			kept := make([]float64, 0, len(values))
			for _, w := range values {
				if !math.IsNaN(w) {
					kept = append(kept, w)
				}
			}
			return kept
		}
	}
	return values
}

func detectOptions(opts contract.Options) algo.DetectOptions {
	return algo.DetectOptions{
		Std:     opts.Std,
		GroupBy: algo.GroupKeysFor(opts),
		Workers: opts.Workers,
	}
}
