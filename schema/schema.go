// Package schema has models and constants for all parts of footfall.
package schema

import (
	"encoding/json"
	"math"
	"time"
)

// FootfallRecord represents one raw footfall row as read from a data source.
// Counts are expected to be non-negative; negative values are sensor errors.
type FootfallRecord struct {
	Key       string            `json:"key,omitempty"`        // Spatial key value (e.g. a hex cell id)
	CountDate string            `json:"count_date"`           // Raw date value
	TimeSlice string            `json:"time_slice,omitempty"` // Raw 3-hour bucket such as "06-09"
	Resident  float64           `json:"resident"`
	Worker    float64           `json:"worker"`
	Visitor   float64           `json:"visitor"`
	Extra     map[string]string `json:"extra,omitempty"` // Columns the pipeline carries but ignores
}

// Count returns the raw count for a footfall type.
func (r FootfallRecord) Count(t FootfallType) float64 {
	switch t {
	case Residents:
		return r.Resident
	case Workers:
		return r.Worker
	case Visitors:
		return r.Visitor
	}
	return 0
}

// SetCount sets the raw count for a footfall type.
func (r *FootfallRecord) SetCount(t FootfallType, v float64) {
	switch t {
	case Residents:
		r.Resident = v
	case Workers:
		r.Worker = v
	case Visitors:
		r.Visitor = v
	}
}

// FeatureRecord is a FootfallRecord with calendar attributes derived from its date.
type FeatureRecord struct {
	FootfallRecord
	Date         time.Time     `json:"date"`
	Year         int           `json:"year"`
	Month        int           `json:"month"`
	WeekdayIndex int           `json:"weekday_index"` // 0=Monday..6=Sunday
	WeekdayName  string        `json:"weekday_name"`
	WeekClass    WeekClass     `json:"week_class"`
	Daynight     DaynightClass `json:"daynight,omitempty"` // empty when the time slice is unset or unmappable
}

// GroupTuple identifies a row of the aggregated series.
type GroupTuple struct {
	Key         string        `json:"key,omitempty"`
	Daynight    DaynightClass `json:"daynight,omitempty"`
	CountDate   string        `json:"count_date"`
	WeekdayName string        `json:"weekday_name"`
	WeekClass   WeekClass     `json:"week_class"`
	Year        int           `json:"year"`
	Month       int           `json:"month"`
}

// MergeKey returns the join key for the per-type merge, which excludes year and month.
func (g GroupTuple) MergeKey() string {
	return g.Key + "\x00" + string(g.Daynight) + "\x00" + g.CountDate + "\x00" + g.WeekdayName + "\x00" + string(g.WeekClass)
}

// AggregatedMetric holds the aggregated raw metrics for one group tuple.
type AggregatedMetric struct {
	GroupTuple
	Values map[FootfallType]float64 `json:"values"`
}

// AnomalyRow is an aggregated metric value annotated with its anomaly status.
type AnomalyRow struct {
	GroupTuple
	Metric             FootfallType `json:"metric"`
	Value              float64      `json:"value"`
	ZScore             float64      `json:"zscore"`
	IsAnomaly          bool         `json:"is_anomaly"`
	MovingAverage      float64      `json:"moving_average"`
	CorrectedValue     float64      `json:"corrected_value"`
	CorrectedMAWeekly  float64      `json:"corrected_ma_weekly"`
	CorrectedMAMonthly float64      `json:"corrected_ma_monthly"`
}

type anomalyRowFields AnomalyRow

// MarshalJSON writes missing (NaN) values as null.
func (r AnomalyRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		anomalyRowFields
		Value              *float64 `json:"value"`
		ZScore             *float64 `json:"zscore"`
		MovingAverage      *float64 `json:"moving_average"`
		CorrectedValue     *float64 `json:"corrected_value"`
		CorrectedMAWeekly  *float64 `json:"corrected_ma_weekly"`
		CorrectedMAMonthly *float64 `json:"corrected_ma_monthly"`
	}{
		anomalyRowFields:   anomalyRowFields(r),
		Value:              nullable(r.Value),
		ZScore:             nullable(r.ZScore),
		MovingAverage:      nullable(r.MovingAverage),
		CorrectedValue:     nullable(r.CorrectedValue),
		CorrectedMAWeekly:  nullable(r.CorrectedMAWeekly),
		CorrectedMAMonthly: nullable(r.CorrectedMAMonthly),
	})
}

// UnmarshalJSON reads null values back as NaN.
func (r *AnomalyRow) UnmarshalJSON(data []byte) error {
	var aux struct {
		anomalyRowFields
		Value              *float64 `json:"value"`
		ZScore             *float64 `json:"zscore"`
		MovingAverage      *float64 `json:"moving_average"`
		CorrectedValue     *float64 `json:"corrected_value"`
		CorrectedMAWeekly  *float64 `json:"corrected_ma_weekly"`
		CorrectedMAMonthly *float64 `json:"corrected_ma_monthly"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = AnomalyRow(aux.anomalyRowFields)
	r.Value = orNaN(aux.Value)
	r.ZScore = orNaN(aux.ZScore)
	r.MovingAverage = orNaN(aux.MovingAverage)
	r.CorrectedValue = orNaN(aux.CorrectedValue)
	r.CorrectedMAWeekly = orNaN(aux.CorrectedMAWeekly)
	r.CorrectedMAMonthly = orNaN(aux.CorrectedMAMonthly)
	return nil
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// CorrectedRow carries the corrected value of every requested footfall type for one group tuple.
// A type missing from Corrected did not contribute to the row.
type CorrectedRow struct {
	GroupTuple
	Corrected               map[FootfallType]float64 `json:"corrected"`
	CorrectedTotal          float64                  `json:"corrected_value_total"`
	CorrectedMAWeeklyTotal  float64                  `json:"corrected_ma_weekly_total"`
	CorrectedMAMonthlyTotal float64                  `json:"corrected_ma_monthly_total"`
}

// DaynightRow is a corrected total pivoted into day and night columns.
// A nil value means the class had no rows for that date and key.
type DaynightRow struct {
	CountDate   string    `json:"count_date"`
	Year        int       `json:"year"`
	WeekdayName string    `json:"weekday_name"`
	WeekClass   WeekClass `json:"week_class"`
	Key         string    `json:"key,omitempty"`
	Day         *float64  `json:"day"`
	Night       *float64  `json:"night"`
}

// TypicalRow is a mean footfall value for one year and key, optionally per week class.
// Average is set for plain summaries; DaytimeMean and NighttimeMean for day/night summaries.
type TypicalRow struct {
	Year          int       `json:"year"`
	WeekClass     WeekClass `json:"week_class,omitempty"`
	Key           string    `json:"key,omitempty"`
	Average       *float64  `json:"averages,omitempty"`
	DaytimeMean   *float64  `json:"daytime_mean,omitempty"`
	NighttimeMean *float64  `json:"nighttime_mean,omitempty"`
}

// TypicalResult holds the three typical summaries.
type TypicalResult struct {
	Typical  []TypicalRow `json:"typical"`
	Weekday  []TypicalRow `json:"weekday"`
	Weekend  []TypicalRow `json:"weekend"`
	Daynight bool         `json:"daynight"`
}

// Table returns a summary by position: 0 is overall, 1 is weekday, 2 is weekend.
func (r TypicalResult) Table(i int) []TypicalRow {
	switch i {
	case 0:
		return r.Typical
	case 1:
		return r.Weekday
	case 2:
		return r.Weekend
	}
	return nil
}

// Empty reports whether all three summaries are empty.
func (r TypicalResult) Empty() bool {
	return len(r.Typical) == 0 && len(r.Weekday) == 0 && len(r.Weekend) == 0
}

// ColumnSummary describes a single numeric count column.
type ColumnSummary struct {
	Column    string  `json:"column"`
	Count     int     `json:"count"`
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Negatives int     `json:"negatives"`
}

// ValidationReport summarizes the quality of a raw footfall dataset.
type ValidationReport struct {
	Rows           int             `json:"rows"`
	DuplicateRows  int             `json:"duplicate_rows"`
	DistinctCounts map[string]int  `json:"distinct_counts"`
	Columns        []ColumnSummary `json:"columns"`
}
