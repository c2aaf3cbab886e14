package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(date, slice string, r, w, v float64) schema.FootfallRecord {
	return schema.FootfallRecord{Key: "a", CountDate: date, TimeSlice: slice, Resident: r, Worker: w, Visitor: v}
}

// Monday 2023-01-02 totals 6 and Saturday 2023-01-07 totals 2 once the negative worker count is zeroed.
func typicalRecords() []schema.FootfallRecord {
	return []schema.FootfallRecord{
		rec("2023-01-07", "06-09", 2, -3, 0),
		rec("2023-01-02", "09-12", 1, 1, 1),
		rec("2023-01-02", "06-09", 1, 1, 1),
		rec("2023-01-08", "06-09", 100, 0, 0),
	}
}

func typicalOptions() contract.TypicalOptions {
	return contract.TypicalOptions{
		Options: contract.Options{Workers: 1},
		End:     time.Date(2023, 1, 7, 0, 0, 0, 0, time.UTC),
	}
}

func TestSummarizeTypical(t *testing.T) {
	result, err := SummarizeTypical(context.Background(), typicalRecords(), typicalOptions(), nil)
	require.NoError(t, err)
	assert.False(t, result.Daynight)

	require.Len(t, result.Typical, 1)
	assert.Equal(t, 2023, result.Typical[0].Year)
	assert.Equal(t, "a", result.Typical[0].Key)
	require.NotNil(t, result.Typical[0].Average)
	assert.InDelta(t, 4.0, *result.Typical[0].Average, 1e-9)

	require.Len(t, result.Weekday, 1)
	assert.Equal(t, schema.Weekday, result.Weekday[0].WeekClass)
	assert.InDelta(t, 6.0, *result.Weekday[0].Average, 1e-9)

	require.Len(t, result.Weekend, 1)
	assert.Equal(t, schema.Weekend, result.Weekend[0].WeekClass)
	assert.InDelta(t, 2.0, *result.Weekend[0].Average, 1e-9)
}

func TestSummarizeTypicalDaynight(t *testing.T) {
	records := []schema.FootfallRecord{
		rec("2023-01-02", "06-09", 1, 1, 1),
		rec("2023-01-02", "21-24", 1, 0, 0),
		rec("2023-01-07", "06-09", 2, 0, 0),
	}
	opts := typicalOptions()
	opts.DayNight = true

	result, err := SummarizeTypical(context.Background(), records, opts, nil)
	require.NoError(t, err)
	assert.True(t, result.Daynight)

	require.Len(t, result.Typical, 1)
	typical := result.Typical[0]
	assert.Nil(t, typical.Average)
	require.NotNil(t, typical.DaytimeMean)
	require.NotNil(t, typical.NighttimeMean)
	assert.InDelta(t, 2.5, *typical.DaytimeMean, 1e-9)
	assert.InDelta(t, 1.0, *typical.NighttimeMean, 1e-9)

	require.Len(t, result.Weekend, 1)
	assert.InDelta(t, 2.0, *result.Weekend[0].DaytimeMean, 1e-9)
	assert.Nil(t, result.Weekend[0].NighttimeMean)
}

func TestSummarizeTypicalErrors(t *testing.T) {
	tests := []struct {
		name    string
		records []schema.FootfallRecord
		opts    contract.TypicalOptions
		target  error
		msg     string
	}{
		{
			name:    "inverted window",
			records: typicalRecords(),
			opts: contract.TypicalOptions{
				Start: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			target: contract.ErrInvalidOptions,
		},
		{
			name:    "bad date",
			records: []schema.FootfallRecord{rec("not a date", "06-09", 1, 1, 1)},
			opts:    typicalOptions(),
			msg:     "row 0",
		},
		{
			name:    "bad type",
			records: typicalRecords(),
			opts:    contract.TypicalOptions{Options: contract.Options{FootfallTypes: []schema.FootfallType{"aliens"}}},
			target:  contract.ErrInvalidFootfallType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := SummarizeTypical(context.Background(), tt.records, tt.opts, nil)
			require.Error(t, err)
			assert.True(t, result.Empty())
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target), "got %v", err)
			}
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestSummarizeTypicalEmptyWindow(t *testing.T) {
	opts := typicalOptions()
	opts.DayNight = true
	opts.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opts.End = time.Time{}

	result, err := SummarizeTypical(context.Background(), typicalRecords(), opts, nil)
	require.NoError(t, err)
	assert.True(t, result.Empty())
	assert.True(t, result.Daynight)
}

func TestPrepareTypicalRecords(t *testing.T) {
	records := typicalRecords()
	records[1].Extra = map[string]string{"OID_": "1", "Centroid_X": "151.2", "region": "north"}

	out, err := prepareTypicalRecords(records, typicalOptions().WithDefaults())
	require.NoError(t, err)
	require.Len(t, out, 3)

	// Ordered by date, then time slice
	assert.Equal(t, "06-09", out[0].TimeSlice)
	assert.Equal(t, "09-12", out[1].TimeSlice)
	assert.Equal(t, "2023-01-07", out[2].CountDate)

	assert.Equal(t, map[string]string{"region": "north"}, out[1].Extra)
	assert.Equal(t, 0.0, out[2].Worker)
	assert.Equal(t, -3.0, records[0].Worker, "input must not be mutated")
}

func TestSummarizeEntries(t *testing.T) {
	entries := []typicalEntry{
		{year: 2024, class: schema.Weekday, key: "b", total: schema.FloatPtr(4)},
		{year: 2023, class: schema.Weekend, key: "a", total: schema.FloatPtr(1)},
		{year: 2023, class: schema.Weekday, key: "a", total: schema.FloatPtr(3)},
		{year: 2023, class: schema.Weekday, key: "a"},
	}

	overall := summarizeEntries(entries, false, false)
	require.Len(t, overall, 2)
	assert.Equal(t, 2023, overall[0].Year)
	assert.InDelta(t, 2.0, *overall[0].Average, 1e-9)
	assert.Equal(t, "b", overall[1].Key)

	byClass := summarizeEntries(entries, true, false)
	require.Len(t, byClass, 3)
	assert.Equal(t, schema.Weekday, byClass[0].WeekClass)
	assert.InDelta(t, 3.0, *byClass[0].Average, 1e-9)
	assert.Equal(t, schema.Weekend, byClass[1].WeekClass)

	nights := summarizeEntries([]typicalEntry{{year: 2023, key: "a", day: schema.FloatPtr(1)}}, false, true)
	require.Len(t, nights, 1)
	assert.Nil(t, nights[0].NighttimeMean)
	assert.Nil(t, nights[0].Average)
}
