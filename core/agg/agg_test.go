package agg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// daily builds one record per (day, slice) for a key starting on Monday 2023-01-02.
func daily(key string, days int, slices []string, counts func(day int, slice string) (float64, float64, float64)) []schema.FootfallRecord {
	var records []schema.FootfallRecord
	for d := range days {
		for _, s := range slices {
			r, w, v := counts(d, s)
			records = append(records, schema.FootfallRecord{
				Key:       key,
				CountDate: fmt.Sprintf("2023-01-%02d", d+2),
				TimeSlice: s,
				Resident:  r,
				Worker:    w,
				Visitor:   v,
			})
		}
	}
	return records
}

func constant(r, w, v float64) func(int, string) (float64, float64, float64) {
	return func(int, string) (float64, float64, float64) { return r, w, v }
}

func TestAggregateSumsAcrossSlices(t *testing.T) {
	records := daily("h1", 3, []string{"06-09", "18-21"}, constant(1, 2, 3))
	opts := contract.Options{PrimaryKey: "hex_id", Workers: 2}

	got, err := Aggregate(context.Background(), records, opts, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, row := range got {
		assert.Equal(t, fmt.Sprintf("2023-01-%02d", i+2), row.CountDate)
		assert.Equal(t, "h1", row.Key)
		assert.Empty(t, row.Daynight)
		assert.Equal(t, 2023, row.Year)
		assert.Equal(t, 1, row.Month)
		assert.Equal(t, 2.0, row.Corrected[schema.Residents])
		assert.Equal(t, 4.0, row.Corrected[schema.Workers])
		assert.Equal(t, 6.0, row.Corrected[schema.Visitors])
		assert.Equal(t, 12.0, row.CorrectedTotal)
	}
	assert.Equal(t, "Monday", got[0].WeekdayName)
	assert.Equal(t, schema.Weekday, got[0].WeekClass)
}

func TestAggregateGroupsByDaynight(t *testing.T) {
	records := daily("h1", 2, []string{"06-09", "09-12", "21-24"}, constant(1, 0, 0))
	opts := contract.Options{PrimaryKey: "hex_id", DayNight: true, Workers: 1}

	got, err := Aggregate(context.Background(), records, opts, nil)
	require.NoError(t, err)
	require.Len(t, got, 4)

	byClass := map[schema.DaynightClass]float64{}
	for _, row := range got {
		byClass[row.Daynight] += row.CorrectedTotal
	}
	assert.Equal(t, 4.0, byClass[schema.Daytime])
	assert.Equal(t, 2.0, byClass[schema.Nighttime])
}

func TestAggregateWithoutKeyPoolsLocations(t *testing.T) {
	records := append(daily("h1", 1, []string{"06-09"}, constant(1, 1, 1)), daily("h2", 1, []string{"06-09"}, constant(2, 2, 2))...)
	got, err := Aggregate(context.Background(), records, contract.Options{}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Key)
	assert.Equal(t, 9.0, got[0].CorrectedTotal)
}

func TestAggregateMeanOperator(t *testing.T) {
	records := daily("h1", 1, []string{"06-09", "09-12"}, func(_ int, s string) (float64, float64, float64) {
		if s == "06-09" {
			return 2, 0, 0
		}
		return 4, 0, 0
	})
	got, err := Aggregate(context.Background(), records, contract.Options{PrimaryKey: "hex_id", Agg: schema.MeanAgg}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3.0, got[0].Corrected[schema.Residents])
}

func TestAggregateCorrectsSpike(t *testing.T) {
	records := daily("h1", 21, []string{"06-09"}, func(d int, _ string) (float64, float64, float64) {
		if d == 10 {
			return 1000, 5, 0
		}
		return 10, 5, 0
	})
	got, err := Aggregate(context.Background(), records, contract.Options{PrimaryKey: "hex_id"}, nil)
	require.NoError(t, err)
	require.Len(t, got, 21)
	assert.Equal(t, 151.0, got[10].Corrected[schema.Residents])
	assert.Equal(t, 156.0, got[10].CorrectedTotal)
}

func TestAggregateTotalInvariant(t *testing.T) {
	records := daily("h1", 5, []string{"06-09", "12-15"}, func(d int, _ string) (float64, float64, float64) {
		return float64(d), float64(d * 2), float64(d * 3)
	})
	subsets := [][]schema.FootfallType{
		{schema.Residents},
		{schema.Workers, schema.Visitors},
		{schema.Visitors, schema.Residents},
		{schema.Residents, schema.Workers, schema.Visitors},
	}
	for _, types := range subsets {
		t.Run(fmt.Sprint(types), func(t *testing.T) {
			got, err := Aggregate(context.Background(), records, contract.Options{PrimaryKey: "hex_id", FootfallTypes: types}, nil)
			require.NoError(t, err)
			require.NotEmpty(t, got)
			for _, row := range got {
				var sum float64
				for _, ft := range types {
					sum += row.Corrected[ft]
				}
				assert.Equal(t, sum, row.CorrectedTotal)
				assert.Len(t, row.Corrected, len(types))
			}
		})
	}
}

func TestAggregateRejectsInvalidType(t *testing.T) {
	records := daily("h1", 2, []string{"06-09"}, constant(1, 1, 1))
	got, err := Aggregate(context.Background(), records, contract.Options{FootfallTypes: []schema.FootfallType{"aliens"}}, nil)
	assert.ErrorIs(t, err, contract.ErrInvalidFootfallType)
	assert.Nil(t, got)
}

func TestAggregateDateErrorYieldsEmpty(t *testing.T) {
	records := []schema.FootfallRecord{{CountDate: "2023-01-02"}, {CountDate: "soon"}}
	got, err := Aggregate(context.Background(), records, contract.Options{}, nil)
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestAggregateEmpty(t *testing.T) {
	got, err := Aggregate(context.Background(), nil, contract.Options{}, nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestAggregateExcludesUnmappableSlices(t *testing.T) {
	records := []schema.FootfallRecord{
		{Key: "h1", CountDate: "2023-01-02", TimeSlice: "06-09", Resident: 1},
		{Key: "h1", CountDate: "2023-01-02", TimeSlice: "??", Resident: 50},
	}
	got, err := Aggregate(context.Background(), records, contract.Options{PrimaryKey: "hex_id", DayNight: true}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].CorrectedTotal)
}

func TestGroupMetricsOrdersByDate(t *testing.T) {
	records := []schema.FootfallRecord{
		{Key: "b", CountDate: "2023-01-03", Resident: 1},
		{Key: "a", CountDate: "2023-01-03", Resident: 2},
		{Key: "a", CountDate: "2023-01-02", Resident: 3},
	}
	metrics, _, err := prepare(records, contract.Options{PrimaryKey: "hex_id"})
	require.NoError(t, err)
	require.Len(t, metrics, 3)
	assert.Equal(t, "2023-01-02", metrics[0].CountDate)
	assert.Equal(t, "a", metrics[1].Key)
	assert.Equal(t, "b", metrics[2].Key)
}

func TestApply(t *testing.T) {
	values := []float64{4, 1, 3}
	tests := []struct {
		op   schema.AggOperator
		want float64
	}{
		{schema.SumAgg, 8},
		{schema.MeanAgg, 8.0 / 3},
		{schema.MedianAgg, 3},
		{schema.MinAgg, 1},
		{schema.MaxAgg, 4},
		{schema.CountAgg, 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			assert.InDelta(t, tt.want, Apply(tt.op, values), 1e-9)
		})
	}
}

func TestMergeCorrectedMissingTypeCountsAsZero(t *testing.T) {
	tuple := func(date string) schema.GroupTuple {
		return schema.GroupTuple{Key: "h1", CountDate: date, WeekdayName: "Monday", WeekClass: schema.Weekday, Year: 2023, Month: 1}
	}
	perType := map[schema.FootfallType][]schema.AnomalyRow{
		schema.Residents: {
			{GroupTuple: tuple("2023-01-02"), CorrectedValue: 5},
			{GroupTuple: tuple("2023-01-09"), CorrectedValue: 7},
		},
		schema.Visitors: {
			{GroupTuple: tuple("2023-01-02"), CorrectedValue: 1},
		},
	}
	got := MergeCorrected(perType, []schema.FootfallType{schema.Residents, schema.Visitors})
	require.Len(t, got, 2)
	assert.Equal(t, 6.0, got[0].CorrectedTotal)
	assert.Equal(t, 7.0, got[1].CorrectedTotal)
	_, ok := got[1].Corrected[schema.Visitors]
	assert.False(t, ok)
	assert.Equal(t, 2023, got[1].Year)

	assert.Nil(t, MergeCorrected(perType, nil))
}

func TestMergeCorrectedSkipsMissingValues(t *testing.T) {
	tuple := schema.GroupTuple{Key: "h1", CountDate: "2023-01-04", WeekdayName: "Wednesday", WeekClass: schema.Weekday, Year: 2023, Month: 1}
	perType := map[schema.FootfallType][]schema.AnomalyRow{
		schema.Residents: {{GroupTuple: tuple, CorrectedValue: math.NaN(), CorrectedMAWeekly: 2, CorrectedMAMonthly: math.NaN()}},
		schema.Workers:   {{GroupTuple: tuple, CorrectedValue: 3, CorrectedMAWeekly: 3, CorrectedMAMonthly: 3}},
	}
	got := MergeCorrected(perType, []schema.FootfallType{schema.Residents, schema.Workers})
	require.Len(t, got, 1)
	assert.NotContains(t, got[0].Corrected, schema.Residents)
	assert.Equal(t, 3.0, got[0].Corrected[schema.Workers])
	assert.Equal(t, 3.0, got[0].CorrectedTotal)
	assert.Equal(t, 5.0, got[0].CorrectedMAWeeklyTotal)
	assert.Equal(t, 3.0, got[0].CorrectedMAMonthlyTotal)
}

func TestAggregateMissingCountsStayFinite(t *testing.T) {
	records := daily("a", 10, []string{"06-09"}, func(d int, _ string) (float64, float64, float64) {
		if d == 2 {
			return math.NaN(), 2, 3
		}
		return 1, 2, 3
	})
	tests := []struct {
		name string
		agg  schema.AggOperator
	}{
		{"mean", schema.MeanAgg},
		{"median", schema.MedianAgg},
		{"min", schema.MinAgg},
		{"max", schema.MaxAgg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(context.Background(), records, contract.Options{PrimaryKey: "hex_id", Agg: tt.agg}, nil)
			require.NoError(t, err)
			require.Len(t, got, 10)
			for _, row := range got {
				assert.False(t, math.IsNaN(row.CorrectedTotal), row.CountDate)
				assert.False(t, math.IsNaN(row.CorrectedMAWeeklyTotal), row.CountDate)
				assert.False(t, math.IsNaN(row.CorrectedMAMonthlyTotal), row.CountDate)
				for ft, v := range row.Corrected {
					assert.False(t, math.IsNaN(v), "%s %s", row.CountDate, ft)
				}
			}
			assert.Equal(t, "2023-01-04", got[2].CountDate)
			assert.NotContains(t, got[2].Corrected, schema.Residents)
			assert.Equal(t, 5.0, got[2].CorrectedTotal)
			assert.InDelta(t, 6.0, got[2].CorrectedMAWeeklyTotal, 1e-9)
			assert.Equal(t, 6.0, got[3].CorrectedTotal)
			assert.InDelta(t, 6.0, got[3].CorrectedMAWeeklyTotal, 1e-9)

			rows, err := DetectMetric(context.Background(), records, schema.Residents, contract.Options{PrimaryKey: "hex_id", Agg: tt.agg}, nil)
			require.NoError(t, err)
			_, err = json.Marshal(rows)
			assert.NoError(t, err)
			for _, r := range rows {
				assert.False(t, r.IsAnomaly, r.CountDate)
			}
		})
	}
}

func TestDetectMetric(t *testing.T) {
	records := daily("h1", 4, []string{"06-09"}, constant(1, 2, 3))
	got, err := DetectMetric(context.Background(), records, schema.Workers, contract.Options{PrimaryKey: "hex_id"}, nil)
	require.NoError(t, err)
	require.Len(t, got, 4)
	for _, r := range got {
		assert.Equal(t, schema.Workers, r.Metric)
		assert.Equal(t, 2.0, r.Value)
		assert.False(t, r.IsAnomaly)
	}

	_, err = DetectMetric(context.Background(), records, "aliens", contract.Options{}, nil)
	assert.ErrorIs(t, err, contract.ErrInvalidFootfallType)
}
