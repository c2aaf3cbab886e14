// Package algo holds the statistical routines behind anomaly detection.
package algo

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/schema"
	"golang.org/x/sync/errgroup"
)

// Rolling windows used for correction and smoothing.
const (
	MovingAverageWindow = 7
	WeeklyWindow        = 7
	MonthlyWindow       = 30
)

// DetectOptions configures grouped anomaly detection.
type DetectOptions struct {
	Std     float64           // Threshold on the absolute z-score
	GroupBy []schema.GroupKey // Dimensions that partition rows into groups
	Workers int               // Maximum groups processed concurrently
}

// Validate checks the options.
func (o DetectOptions) Validate() error {
	if o.Std <= 0 || math.IsNaN(o.Std) {
		return fmt.Errorf("%w: std must be greater than 0 (received %v)", contract.ErrInvalidOptions, o.Std)
	}
	if len(o.GroupBy) == 0 {
		return fmt.Errorf("%w: at least one group key is required", contract.ErrInvalidOptions)
	}
	seen := map[schema.GroupKey]struct{}{}
	for _, k := range o.GroupBy {
		if _, ok := schema.ValidGroupKeys[k]; !ok {
			return fmt.Errorf("%w: unknown group key '%s'", contract.ErrInvalidOptions, k)
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: duplicate group key '%s'", contract.ErrInvalidOptions, k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// GroupKeysFor returns the anomaly grouping for a pipeline configuration:
// the spatial key and day/night class when enabled, then year.
func GroupKeysFor(opts contract.Options) []schema.GroupKey {
	var keys []schema.GroupKey
	if opts.PrimaryKey != "" {
		keys = append(keys, schema.GroupBySpatialKey)
	}
	if opts.DayNight {
		keys = append(keys, schema.GroupByDaynight)
	}
	return append(keys, schema.GroupByYear)
}

// DetectAnomalies scores one metric of the aggregated rows within each group and corrects outliers.
// Rows must already be in ascending date order; output rows keep the input order.
func DetectAnomalies(ctx context.Context, rows []schema.AggregatedMetric, metric schema.FootfallType, opts DetectOptions) ([]schema.AnomalyRow, error) {
	if _, ok := schema.ValidFootfallTypes[metric]; !ok {
		return nil, fmt.Errorf("%w: [%s]", contract.ErrInvalidFootfallType, metric)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	out := make([]schema.AnomalyRow, len(rows))
	for i, row := range rows {
		out[i] = schema.AnomalyRow{
			GroupTuple: row.GroupTuple,
			Metric:     metric,
			Value:      row.Values[metric],
		}
	}

	groups := partition(rows, opts.GroupBy)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Workers))
	for _, idx := range groups {
		// Each group writes only to its own indices of out
		g.Go(func() error {
			scoreGroup(out, idx, opts.Std)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountAnomalies returns the number of flagged rows.
func CountAnomalies(rows []schema.AnomalyRow) int {
	n := 0
	for _, r := range rows {
		if r.IsAnomaly {
			n++
		}
	}
	return n
}

// scoreGroup annotates the rows at idx, which form one group in time order.
func scoreGroup(out []schema.AnomalyRow, idx []int, std float64) {
	values := make([]float64, len(idx))
	for i, j := range idx {
		values[i] = out[j].Value
	}

	scores := ZScores(values)
	moving := TrailingMean(values, MovingAverageWindow)

	corrected := make([]float64, len(idx))
	for i, j := range idx {
		row := &out[j]
		row.ZScore = scores[i]
		row.IsAnomaly = math.Abs(scores[i]) > std
		row.MovingAverage = math.RoundToEven(moving[i])
		if row.IsAnomaly {
			row.CorrectedValue = row.MovingAverage
		} else {
			row.CorrectedValue = row.Value
		}
		corrected[i] = row.CorrectedValue
	}

	weekly := TrailingMean(corrected, WeeklyWindow)
	monthly := TrailingMean(corrected, MonthlyWindow)
	for i, j := range idx {
		out[j].CorrectedMAWeekly = weekly[i]
		out[j].CorrectedMAMonthly = monthly[i]
	}
}

// partition returns row indices per group, in first-seen group order and input row order.
func partition(rows []schema.AggregatedMetric, groupBy []schema.GroupKey) [][]int {
	index := map[string]int{}
	var groups [][]int
	for i, row := range rows {
		key := groupKey(row.GroupTuple, groupBy)
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], i)
	}
	return groups
}

func groupKey(t schema.GroupTuple, groupBy []schema.GroupKey) string {
	var b strings.Builder
	for _, k := range groupBy {
		switch k {
		case schema.GroupBySpatialKey:
			b.WriteString(t.Key)
		case schema.GroupByDaynight:
			b.WriteString(string(t.Daynight))
		case schema.GroupByYear:
			b.WriteString(strconv.Itoa(t.Year))
		}
		b.WriteByte(0)
	}
	return b.String()
}
