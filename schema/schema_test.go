package schema

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFootfallRecordCounts(t *testing.T) {
	r := FootfallRecord{Resident: 1, Worker: 2, Visitor: 3}
	assert.Equal(t, 1.0, r.Count(Residents))
	assert.Equal(t, 2.0, r.Count(Workers))
	assert.Equal(t, 3.0, r.Count(Visitors))
	assert.Equal(t, 0.0, r.Count(FootfallType("aliens")))

	r.SetCount(Workers, 9)
	assert.Equal(t, 9.0, r.Worker)

	for _, ft := range DefaultFootfallTypes {
		_, ok := RawColumns[ft]
		assert.True(t, ok, "missing raw column for %s", ft)
	}
}

func TestGroupTupleMergeKeyIgnoresYearMonth(t *testing.T) {
	a := GroupTuple{Key: "h1", Daynight: Daytime, CountDate: "2023-01-02", WeekdayName: "Monday", WeekClass: Weekday, Year: 2023, Month: 1}
	b := a
	b.Year, b.Month = 0, 0
	assert.Equal(t, a.MergeKey(), b.MergeKey())

	c := a
	c.Daynight = Nighttime
	assert.NotEqual(t, a.MergeKey(), c.MergeKey())
}

func TestTypicalResultTable(t *testing.T) {
	r := TypicalResult{
		Typical: []TypicalRow{{Year: 2023}},
		Weekday: []TypicalRow{{Year: 2023, WeekClass: Weekday}},
		Weekend: []TypicalRow{{Year: 2023, WeekClass: Weekend}},
	}
	assert.Equal(t, r.Typical, r.Table(0))
	assert.Equal(t, r.Weekday, r.Table(1))
	assert.Equal(t, r.Weekend, r.Table(2))
	assert.Nil(t, r.Table(3))
	assert.False(t, r.Empty())
	assert.True(t, TypicalResult{}.Empty())
}

func TestAnomalyRowJSONMissingValues(t *testing.T) {
	tests := []struct {
		name    string
		row     AnomalyRow
		wantNil []string
	}{
		{
			name:    "complete row",
			row:     AnomalyRow{Metric: Residents, Value: 4, MovingAverage: 3, CorrectedValue: 4, CorrectedMAWeekly: 3.5, CorrectedMAMonthly: 3.5},
			wantNil: nil,
		},
		{
			name: "missing count",
			row: AnomalyRow{
				Metric: Residents, Value: math.NaN(), MovingAverage: math.NaN(),
				CorrectedValue: math.NaN(), CorrectedMAWeekly: 2, CorrectedMAMonthly: 2,
			},
			wantNil: []string{"value", "moving_average", "corrected_value"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.row.GroupTuple = GroupTuple{Key: "h1", CountDate: "2023-01-04", WeekdayName: "Wednesday", WeekClass: Weekday, Year: 2023, Month: 1}
			data, err := json.Marshal(tt.row)
			require.NoError(t, err)

			var fields map[string]any
			require.NoError(t, json.Unmarshal(data, &fields))
			assert.Equal(t, "h1", fields["key"])
			assert.Equal(t, "residents", fields["metric"])
			for _, name := range tt.wantNil {
				assert.Contains(t, fields, name)
				assert.Nil(t, fields[name], name)
			}

			var back AnomalyRow
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.row.GroupTuple, back.GroupTuple)
			assert.Equal(t, tt.row.Metric, back.Metric)
			assertSameFloat(t, tt.row.Value, back.Value)
			assertSameFloat(t, tt.row.MovingAverage, back.MovingAverage)
			assertSameFloat(t, tt.row.CorrectedValue, back.CorrectedValue)
			assertSameFloat(t, tt.row.CorrectedMAWeekly, back.CorrectedMAWeekly)
		})
	}
}

func assertSameFloat(t *testing.T, want, got float64) {
	t.Helper()
	if math.IsNaN(want) {
		assert.True(t, math.IsNaN(got))
		return
	}
	assert.Equal(t, want, got)
}
