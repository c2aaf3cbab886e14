// Package parquet provides data structures and functions for exporting footfall
// tables and run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"encoding/json"
	"errors"
	"io"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/footfall/schema"
	"github.com/parquet-go/parquet-go"
)

// CorrectedRecord is one row of the corrected series.
// Per-type values are nullable because a type may be absent from a row.
type CorrectedRecord struct {
	Key         *string `parquet:"key,optional,snappy"`
	Daynight    *string `parquet:"daynight,optional,snappy"`
	CountDate   string  `parquet:"count_date,snappy"`
	WeekdayName string  `parquet:"weekday_name,snappy"`
	WeekClass   string  `parquet:"week_class,snappy"`
	Year        int32   `parquet:"year,snappy"`
	Month       int32   `parquet:"month,snappy"`

	Residents *float64 `parquet:"corrected_value_residents,optional,snappy"`
	Workers   *float64 `parquet:"corrected_value_workers,optional,snappy"`
	Visitors  *float64 `parquet:"corrected_value_visitors,optional,snappy"`

	CorrectedTotal          float64 `parquet:"corrected_value_total,snappy"`
	CorrectedMAWeeklyTotal  float64 `parquet:"corrected_ma_weekly_total,snappy"`
	CorrectedMAMonthlyTotal float64 `parquet:"corrected_ma_monthly_total,snappy"`
}

// AnomalyRecord is one row of a per-type anomaly table.
type AnomalyRecord struct {
	Key                *string `parquet:"key,optional,snappy"`
	Daynight           *string `parquet:"daynight,optional,snappy"`
	CountDate          string  `parquet:"count_date,snappy"`
	WeekdayName        string  `parquet:"weekday_name,snappy"`
	WeekClass          string  `parquet:"week_class,snappy"`
	Year               int32   `parquet:"year,snappy"`
	Month              int32   `parquet:"month,snappy"`
	Metric             string  `parquet:"metric,snappy"`
	Value              float64 `parquet:"value,snappy"`
	ZScore             float64 `parquet:"zscore,snappy"`
	IsAnomaly          bool    `parquet:"is_anomaly,snappy"`
	MovingAverage      float64 `parquet:"moving_average,snappy"`
	CorrectedValue     float64 `parquet:"corrected_value,snappy"`
	CorrectedMAWeekly  float64 `parquet:"corrected_ma_weekly,snappy"`
	CorrectedMAMonthly float64 `parquet:"corrected_ma_monthly,snappy"`
}

// DaynightRecord is one row of the day/night pivot.
type DaynightRecord struct {
	CountDate   string   `parquet:"count_date,snappy"`
	Year        int32    `parquet:"year,snappy"`
	WeekdayName string   `parquet:"weekday_name,snappy"`
	WeekClass   string   `parquet:"week_class,snappy"`
	Key         *string  `parquet:"key,optional,snappy"`
	Day         *float64 `parquet:"daytime,optional,snappy"`
	Night       *float64 `parquet:"nighttime,optional,snappy"`
}

// TypicalRecord is one row of a typical summary. Summary names the table it belongs to.
// RunID is set only for rows exported from the run store.
type TypicalRecord struct {
	RunID         *int64   `parquet:"run_id,optional,snappy"`
	Summary       string   `parquet:"summary,snappy"`
	Year          int32    `parquet:"year,snappy"`
	WeekClass     *string  `parquet:"week_class,optional,snappy"`
	Key           *string  `parquet:"key,optional,snappy"`
	Average       *float64 `parquet:"averages,optional,snappy"`
	DaytimeMean   *float64 `parquet:"daytime_mean,optional,snappy"`
	NighttimeMean *float64 `parquet:"nighttime_mean,optional,snappy"`
}

// RunRecord represents a single tracked pipeline run.
// This struct maps to the footfall_runs database table.
type RunRecord struct {
	// RunID is the numeric identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// RunKey is the globally unique key of the run
	RunKey string `parquet:"run_key,snappy"`

	// Command is the pipeline command that was executed
	Command string `parquet:"command,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int64 `parquet:"run_duration_ms,optional,snappy"`

	InputRows  int32 `parquet:"input_rows,snappy"`
	OutputRows int32 `parquet:"output_rows,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// Write writes rows of any record type in this package to a Parquet file.
// The schema is derived from the struct tags of T.
func Write[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// Read loads every row of a Parquet file written with Write.
func Read[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read parquet file: %w", err)
	}
	return rows[:n], nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalValue(m map[schema.FootfallType]float64, t schema.FootfallType) *float64 {
	if v, ok := m[t]; ok {
		return &v
	}
	return nil
}

// ConvertCorrectedRows converts the corrected series into Parquet records.
func ConvertCorrectedRows(rows []schema.CorrectedRow) []CorrectedRecord {
	out := make([]CorrectedRecord, len(rows))
	for i, r := range rows {
		out[i] = CorrectedRecord{
			Key:                     optionalString(r.Key),
			Daynight:                optionalString(string(r.Daynight)),
			CountDate:               r.CountDate,
			WeekdayName:             r.WeekdayName,
			WeekClass:               string(r.WeekClass),
			Year:                    int32(r.Year),
			Month:                   int32(r.Month),
			Residents:               optionalValue(r.Corrected, schema.Residents),
			Workers:                 optionalValue(r.Corrected, schema.Workers),
			Visitors:                optionalValue(r.Corrected, schema.Visitors),
			CorrectedTotal:          r.CorrectedTotal,
			CorrectedMAWeeklyTotal:  r.CorrectedMAWeeklyTotal,
			CorrectedMAMonthlyTotal: r.CorrectedMAMonthlyTotal,
		}
	}
	return out
}

// ConvertAnomalyRows converts an anomaly table into Parquet records.
func ConvertAnomalyRows(rows []schema.AnomalyRow) []AnomalyRecord {
	out := make([]AnomalyRecord, len(rows))
	for i, r := range rows {
		out[i] = AnomalyRecord{
			Key:                optionalString(r.Key),
			Daynight:           optionalString(string(r.Daynight)),
			CountDate:          r.CountDate,
			WeekdayName:        r.WeekdayName,
			WeekClass:          string(r.WeekClass),
			Year:               int32(r.Year),
			Month:              int32(r.Month),
			Metric:             string(r.Metric),
			Value:              r.Value,
			ZScore:             r.ZScore,
			IsAnomaly:          r.IsAnomaly,
			MovingAverage:      r.MovingAverage,
			CorrectedValue:     r.CorrectedValue,
			CorrectedMAWeekly:  r.CorrectedMAWeekly,
			CorrectedMAMonthly: r.CorrectedMAMonthly,
		}
	}
	return out
}

// ConvertDaynightRows converts the day/night pivot into Parquet records.
func ConvertDaynightRows(rows []schema.DaynightRow) []DaynightRecord {
	out := make([]DaynightRecord, len(rows))
	for i, r := range rows {
		out[i] = DaynightRecord{
			CountDate:   r.CountDate,
			Year:        int32(r.Year),
			WeekdayName: r.WeekdayName,
			WeekClass:   string(r.WeekClass),
			Key:         optionalString(r.Key),
			Day:         r.Day,
			Night:       r.Night,
		}
	}
	return out
}

// ConvertTypicalResult flattens the three typical tables into one set of records.
func ConvertTypicalResult(result schema.TypicalResult) []TypicalRecord {
	var out []TypicalRecord
	for i, name := range schema.TypicalSummaries {
		for _, r := range result.Table(i) {
			out = append(out, TypicalRecord{
				Summary:       name,
				Year:          int32(r.Year),
				WeekClass:     optionalString(string(r.WeekClass)),
				Key:           optionalString(r.Key),
				Average:       r.Average,
				DaytimeMean:   r.DaytimeMean,
				NighttimeMean: r.NighttimeMean,
			})
		}
	}
	return out
}

// ConvertStoredTypicalRecords converts typical rows read back from the run store.
func ConvertStoredTypicalRecords(rows []schema.TypicalRecord) []TypicalRecord {
	out := make([]TypicalRecord, len(rows))
	for i, r := range rows {
		runID := r.RunID
		out[i] = TypicalRecord{
			RunID:         &runID,
			Summary:       r.Summary,
			Year:          r.Year,
			WeekClass:     optionalString(r.WeekClass),
			Key:           optionalString(r.Key),
			Average:       r.Average,
			DaytimeMean:   r.DaytimeMean,
			NighttimeMean: r.NighttimeMean,
		}
	}
	return out
}

// ConvertRunRecords converts stored run records into Parquet records.
func ConvertRunRecords(runs []schema.RunRecord) []RunRecord {
	out := make([]RunRecord, len(runs))
	for i, r := range runs {
		rec := RunRecord{
			RunID:        r.RunID,
			RunKey:       r.RunKey,
			Command:      r.Command,
			StartTime:    r.StartTime,
			EndTime:      r.EndTime,
			InputRows:    int32(r.InputRows),
			OutputRows:   int32(r.OutputRows),
			ConfigParams: optionalString(r.ConfigParams),
		}
		if r.EndTime != nil {
			ms := r.RunDurationMs
			rec.RunDurationMs = &ms
		}
		out[i] = rec
	}
	return out
}

// DecodeConfigParams parses the JSON-encoded parameters of a run record.
func DecodeConfigParams(rec RunRecord) (map[string]any, error) {
	if rec.ConfigParams == nil {
		return nil, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(*rec.ConfigParams), &params); err != nil {
		return nil, err
	}
	return params, nil
}

// ColumnSummaryRecord is one count column of a validation report.
type ColumnSummaryRecord struct {
	Column    string  `parquet:"column,snappy"`
	Count     int32   `parquet:"count,snappy"`
	Mean      float64 `parquet:"mean,snappy"`
	Std       float64 `parquet:"std,snappy"`
	Min       float64 `parquet:"min,snappy"`
	Max       float64 `parquet:"max,snappy"`
	Negatives int32   `parquet:"negatives,snappy"`
}

// ConvertColumnSummaries converts validation column summaries into Parquet records.
func ConvertColumnSummaries(cols []schema.ColumnSummary) []ColumnSummaryRecord {
	out := make([]ColumnSummaryRecord, len(cols))
	for i, c := range cols {
		out[i] = ColumnSummaryRecord{
			Column:    c.Column,
			Count:     int32(c.Count),
			Mean:      c.Mean,
			Std:       c.Std,
			Min:       c.Min,
			Max:       c.Max,
			Negatives: int32(c.Negatives),
		}
	}
	return out
}
