package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/parquet"
	"github.com/huangsam/footfall/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testConfig() *contract.Config {
	opts := contract.DefaultOptions()
	opts.PrimaryKey = "hex_id"
	opts.Workers = 2
	return &contract.Config{
		Pipeline:     opts,
		Metric:       schema.Residents,
		Precision:    1,
		Output:       schema.TextOut,
		Width:        160,
		CacheBackend: schema.NoneBackend,
	}
}

func withOutput(cfg *contract.Config, t *testing.T, mode schema.OutputMode) string {
	cfg.Output = mode
	cfg.OutputFile = filepath.Join(t.TempDir(), contract.ExportFileName("out", mode))
	return cfg.OutputFile
}

func readCSV(t *testing.T, path string) [][]string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func readText(t *testing.T, path string) string {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

var tuple = schema.GroupTuple{
	Key:         "8a2a1072b59ffff",
	CountDate:   "2023-01-02",
	WeekdayName: "Monday",
	WeekClass:   schema.Weekday,
	Year:        2023,
	Month:       1,
}

func sampleCorrected() []schema.CorrectedRow {
	return []schema.CorrectedRow{{
		GroupTuple:              tuple,
		Corrected:               map[schema.FootfallType]float64{schema.Residents: 1, schema.Workers: 2},
		CorrectedTotal:          3,
		CorrectedMAWeeklyTotal:  3,
		CorrectedMAMonthlyTotal: 3,
	}}
}

func sampleAnomalies() []schema.AnomalyRow {
	second := tuple
	second.CountDate = "2023-01-03"
	second.WeekdayName = "Tuesday"
	return []schema.AnomalyRow{
		{GroupTuple: tuple, Metric: schema.Residents, Value: 5, ZScore: -0.3, MovingAverage: 5, CorrectedValue: 5, CorrectedMAWeekly: 5, CorrectedMAMonthly: 5},
		{GroupTuple: second, Metric: schema.Residents, Value: 1000, ZScore: 3.4, IsAnomaly: true, MovingAverage: 502.5, CorrectedValue: 502.5, CorrectedMAWeekly: 253.8, CorrectedMAMonthly: 253.8},
	}
}

func sampleTypical(daynight bool) schema.TypicalResult {
	row := func(class schema.WeekClass) schema.TypicalRow {
		r := schema.TypicalRow{Year: 2023, WeekClass: class, Key: tuple.Key}
		if daynight {
			r.DaytimeMean = schema.FloatPtr(4)
			r.NighttimeMean = schema.FloatPtr(2)
		} else {
			r.Average = schema.FloatPtr(6)
		}
		return r
	}
	return schema.TypicalResult{
		Typical:  []schema.TypicalRow{row("")},
		Weekday:  []schema.TypicalRow{row(schema.Weekday)},
		Weekend:  []schema.TypicalRow{row(schema.Weekend)},
		Daynight: daynight,
	}
}

func sampleReport() schema.ValidationReport {
	return schema.ValidationReport{
		Rows:           4,
		DuplicateRows:  1,
		DistinctCounts: map[string]int{"hex_id": 2, "count_date": 3},
		Columns: []schema.ColumnSummary{
			{Column: "resident", Count: 3, Mean: 2, Std: 1, Min: -5, Max: 6, Negatives: 1},
		},
	}
}

func TestPrintCorrectedResultsCSV(t *testing.T) {
	cfg := testConfig()
	path := withOutput(cfg, t, schema.CSVOut)

	require.NoError(t, PrintCorrectedResults(sampleCorrected(), cfg, time.Second))

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, []string{
		"key", "count_date", "weekday_name", "week_class", "year", "month",
		"corrected_value_residents", "corrected_value_workers", "corrected_value_visitors",
		"corrected_value_total", "corrected_ma_weekly_total", "corrected_ma_monthly_total",
	}, records[0])
	assert.Equal(t, []string{
		"8a2a1072b59ffff", "2023-01-02", "Monday", "Weekday", "2023", "1",
		"1.0", "2.0", "", "3.0", "3.0", "3.0",
	}, records[1])
}

func TestPrintCorrectedResultsDaynightColumns(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.PrimaryKey = ""
	cfg.Pipeline.DayNight = true
	path := withOutput(cfg, t, schema.CSVOut)

	rows := sampleCorrected()
	rows[0].Key = ""
	rows[0].Daynight = schema.Nighttime
	require.NoError(t, PrintCorrectedResults(rows, cfg, time.Second))

	records := readCSV(t, path)
	assert.Equal(t, "daynight", records[0][0])
	assert.Equal(t, "count_date", records[0][1])
	assert.Equal(t, "6pm-6am", records[1][0])
}

func TestCorrectedTypes(t *testing.T) {
	rows := []schema.CorrectedRow{
		{Corrected: map[schema.FootfallType]float64{schema.Visitors: 1}},
		{Corrected: map[schema.FootfallType]float64{schema.Residents: 2, schema.Visitors: 3}},
	}
	tests := []struct {
		name       string
		configured []schema.FootfallType
		rows       []schema.CorrectedRow
		want       []schema.FootfallType
	}{
		{"configured order wins", []schema.FootfallType{schema.Visitors, schema.Workers}, rows, []schema.FootfallType{schema.Visitors, schema.Workers}},
		{"union in canonical order", nil, rows, []schema.FootfallType{schema.Residents, schema.Visitors}},
		{"no rows", nil, nil, []schema.FootfallType{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Pipeline.FootfallTypes = tt.configured
			assert.Equal(t, tt.want, correctedTypes(tt.rows, cfg))
		})
	}
}

func TestPrintCorrectedResultsWithoutConfiguredTypes(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.FootfallTypes = nil
	path := withOutput(cfg, t, schema.CSVOut)

	require.NoError(t, PrintCorrectedResults(sampleCorrected(), cfg, time.Second))

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"corrected_value_residents", "corrected_value_workers"}, records[0][6:8])
	assert.Equal(t, []string{"1.0", "2.0", "3.0"}, records[1][6:9])
}

func TestPrintAnomalyResults(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		cfg := testConfig()
		path := withOutput(cfg, t, schema.JSONOut)
		require.NoError(t, PrintAnomalyResults(sampleAnomalies(), cfg, time.Second))

		var decoded []map[string]any
		require.NoError(t, json.Unmarshal([]byte(readText(t, path)), &decoded))
		require.Len(t, decoded, 2)
		assert.Equal(t, true, decoded[1]["is_anomaly"])
		assert.Equal(t, 3.4, decoded[1]["zscore"])
		assert.Equal(t, "residents", decoded[0]["metric"])
	})

	t.Run("csv", func(t *testing.T) {
		cfg := testConfig()
		path := withOutput(cfg, t, schema.CSVOut)
		require.NoError(t, PrintAnomalyResults(sampleAnomalies(), cfg, time.Second))

		records := readCSV(t, path)
		require.Len(t, records, 3)
		assert.Contains(t, records[0], "is_anomaly")
		assert.Contains(t, records[2], "true")
		assert.Contains(t, records[1], "false")
	})

	t.Run("text", func(t *testing.T) {
		cfg := testConfig()
		path := withOutput(cfg, t, schema.TextOut)
		require.NoError(t, PrintAnomalyResults(sampleAnomalies(), cfg, time.Second))

		out := readText(t, path)
		assert.Contains(t, out, "Anomaly")
		assert.Contains(t, out, "Normal")
		assert.Contains(t, out, "Showing 2 rows for residents (1 anomalies beyond 3.0 std)")
		assert.Contains(t, out, "Cache backend: none")
	})

	t.Run("parquet", func(t *testing.T) {
		cfg := testConfig()
		path := withOutput(cfg, t, schema.ParquetOut)
		require.NoError(t, PrintAnomalyResults(sampleAnomalies(), cfg, time.Second))

		rows, err := parquet.Read[parquet.AnomalyRecord](path)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.True(t, rows[1].IsAnomaly)
		assert.Equal(t, 502.5, rows[1].CorrectedValue)
	})
}

func TestPrintDaynightResultsKeepsMissingClassEmpty(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.PrimaryKey = ""
	path := withOutput(cfg, t, schema.CSVOut)

	rows := []schema.DaynightRow{{
		CountDate: "2023-01-02", Year: 2023, WeekdayName: "Monday", WeekClass: schema.Weekday,
		Day: schema.FloatPtr(4),
	}}
	require.NoError(t, PrintDaynightResults(rows, cfg, time.Second))

	records := readCSV(t, path)
	assert.Equal(t, []string{"count_date", "year", "weekday_name", "week_class", "6am-6pm", "6pm-6am"}, records[0])
	assert.Equal(t, []string{"2023-01-02", "2023", "Monday", "Weekday", "4.0", ""}, records[1])
}

func TestPrintDaynightResultsXLSXUsesPlainHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.UseColors = true
	path := withOutput(cfg, t, schema.XLSXOut)

	rows := []schema.DaynightRow{{
		CountDate: "2023-01-02", Year: 2023, WeekdayName: "Monday", WeekClass: schema.Weekday,
		Key: "a", Day: schema.FloatPtr(4), Night: schema.FloatPtr(2),
	}}
	require.NoError(t, PrintDaynightResults(rows, cfg, time.Second))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	got, err := f.GetRows("daynight")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"count_date", "year", "weekday_name", "week_class", "key", "6am-6pm", "6pm-6am"}, got[0])
}

func TestPrintTypicalResults(t *testing.T) {
	t.Run("csv flattens summaries", func(t *testing.T) {
		cfg := testConfig()
		path := withOutput(cfg, t, schema.CSVOut)
		require.NoError(t, PrintTypicalResults(sampleTypical(false), cfg, time.Second))

		records := readCSV(t, path)
		require.Len(t, records, 4)
		assert.Equal(t, []string{"summary", "year", "week_class", "key", "averages"}, records[0])
		assert.Equal(t, []string{"typical", "2023", "", "8a2a1072b59ffff", "6.0"}, records[1])
		assert.Equal(t, "weekday", records[2][0])
		assert.Equal(t, "Weekend", records[3][2])
	})

	t.Run("xlsx has a sheet per summary", func(t *testing.T) {
		cfg := testConfig()
		path := withOutput(cfg, t, schema.XLSXOut)
		require.NoError(t, PrintTypicalResults(sampleTypical(true), cfg, time.Second))

		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		assert.Equal(t, schema.TypicalSummaries, f.GetSheetList())

		got, err := f.GetRows("weekend")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, []string{"year", "week_class", "key", "daytime_mean", "nighttime_mean"}, got[0])
		assert.Equal(t, "Weekend", got[1][1])
	})

	t.Run("parquet", func(t *testing.T) {
		cfg := testConfig()
		path := withOutput(cfg, t, schema.ParquetOut)
		require.NoError(t, PrintTypicalResults(sampleTypical(false), cfg, time.Second))

		rows, err := parquet.Read[parquet.TypicalRecord](path)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "weekend", rows[2].Summary)
		assert.Nil(t, rows[0].WeekClass)
	})

	t.Run("text", func(t *testing.T) {
		cfg := testConfig()
		path := withOutput(cfg, t, schema.TextOut)
		require.NoError(t, PrintTypicalResults(sampleTypical(false), cfg, time.Second))

		out := readText(t, path)
		for _, name := range schema.TypicalSummaries {
			assert.Contains(t, out, "\n"+name+"\n")
		}
		assert.Contains(t, out, "Typical footfall for 1 key-years (1 weekday, 1 weekend rows)")
	})
}

func TestPrintValidationReport(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		cfg := testConfig()
		path := withOutput(cfg, t, schema.TextOut)
		require.NoError(t, PrintValidationReport(sampleReport(), cfg, time.Second))

		out := readText(t, path)
		assert.Contains(t, out, "distinct_count_date")
		assert.Contains(t, out, "distinct_hex_id")
		assert.Contains(t, out, "Validated 4 rows (1 duplicates)")
	})

	t.Run("json", func(t *testing.T) {
		cfg := testConfig()
		path := withOutput(cfg, t, schema.JSONOut)
		require.NoError(t, PrintValidationReport(sampleReport(), cfg, time.Second))

		var decoded schema.ValidationReport
		require.NoError(t, json.Unmarshal([]byte(readText(t, path)), &decoded))
		assert.Equal(t, sampleReport(), decoded)
	})

	t.Run("parquet", func(t *testing.T) {
		cfg := testConfig()
		path := withOutput(cfg, t, schema.ParquetOut)
		require.NoError(t, PrintValidationReport(sampleReport(), cfg, time.Second))

		rows, err := parquet.Read[parquet.ColumnSummaryRecord](path)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int32(1), rows[0].Negatives)
	})
}

func TestWriteReportRequiresFileForParquet(t *testing.T) {
	cfg := testConfig()
	cfg.Output = schema.ParquetOut
	err := PrintCorrectedResults(sampleCorrected(), cfg, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output file is required")
}
