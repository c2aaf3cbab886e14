package outwriter

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/parquet"
	"github.com/huangsam/footfall/schema"
)

// tupleHeaders returns the leading group-tuple columns for the configured grouping.
func tupleHeaders(cfg *contract.Config) []string {
	var headers []string
	if cfg.Pipeline.PrimaryKey != "" {
		headers = append(headers, "key")
	}
	if cfg.Pipeline.DayNight {
		headers = append(headers, "daynight")
	}
	return append(headers, "count_date", "weekday_name", "week_class", "year", "month")
}

// tupleCells formats a group tuple. The text variant truncates keys and colors day/night classes.
func tupleCells(g schema.GroupTuple, cfg *contract.Config, keyWidth int) (plain, text []string) {
	if cfg.Pipeline.PrimaryKey != "" {
		plain = append(plain, g.Key)
		text = append(text, contract.TruncateKey(g.Key, keyWidth))
	}
	if cfg.Pipeline.DayNight {
		plain = append(plain, string(g.Daynight))
		text = append(text, daynightCell(g.Daynight, cfg))
	}
	calendar := []string{g.CountDate, g.WeekdayName, string(g.WeekClass), strconv.Itoa(g.Year), strconv.Itoa(g.Month)}
	return append(plain, calendar...), append(text, calendar...)
}

func daynightCell(class schema.DaynightClass, cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.GetColorDaynight(class)
	}
	return string(class)
}

func anomalyCell(isAnomaly bool, cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.GetColorLabel(isAnomaly)
	}
	return schema.AnomalyLabel(isAnomaly)
}

// correctedTypes returns the configured types, or every type present in rows
// in canonical order when none are configured.
func correctedTypes(rows []schema.CorrectedRow, cfg *contract.Config) []schema.FootfallType {
	if len(cfg.Pipeline.FootfallTypes) > 0 {
		return cfg.Pipeline.FootfallTypes
	}
	seen := map[schema.FootfallType]float64{}
	for _, r := range rows {
		for ft := range r.Corrected {
			seen[ft] = 0
		}
	}
	return schema.SortedFootfallTypes(seen)
}

// PrintCorrectedResults outputs the corrected series of the aggregate command.
func PrintCorrectedResults(rows []schema.CorrectedRow, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := floatFormatter(cfg.Precision)

	types := correctedTypes(rows, cfg)
	headers := tupleHeaders(cfg)
	for _, t := range types {
		headers = append(headers, "corrected_value_"+string(t))
	}
	headers = append(headers, "corrected_value_total", "corrected_ma_weekly_total", "corrected_ma_monthly_total")
	keyWidth := GetMaxTableKeyWidth(cfg, len(headers)-1)

	t := table{name: "corrected", headers: headers}
	for _, r := range rows {
		plain, text := tupleCells(r.GroupTuple, cfg, keyWidth)
		var values []string
		for _, ft := range types {
			v, ok := r.Corrected[ft]
			if !ok {
				values = append(values, "")
				continue
			}
			values = append(values, fmtFloat(v))
		}
		values = append(values, fmtFloat(r.CorrectedTotal), fmtFloat(r.CorrectedMAWeeklyTotal), fmtFloat(r.CorrectedMAMonthlyTotal))
		t.rows = append(t.rows, append(plain, values...))
		t.display = append(t.display, append(text, values...))
	}

	var total float64
	for _, r := range rows {
		total += r.CorrectedTotal
	}
	return writeReport(report{
		tables: []table{t},
		flat:   t,
		json:   rows,
		parquet: func(path string) error {
			return parquet.Write(parquet.ConvertCorrectedRows(rows), path)
		},
		footer: []string{
			fmt.Sprintf("Showing %d rows (corrected total: %s, agg: %s)", len(rows), fmtFloat(total), cfg.Pipeline.Agg),
			completionLine(cfg, duration),
		},
	}, cfg)
}

// PrintAnomalyResults outputs the per-type anomaly table of the anomalies command.
func PrintAnomalyResults(rows []schema.AnomalyRow, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := floatFormatter(cfg.Precision)

	headers := append(tupleHeaders(cfg),
		"metric", "value", "zscore", "is_anomaly", "moving_average",
		"corrected_value", "corrected_ma_weekly", "corrected_ma_monthly")
	keyWidth := GetMaxTableKeyWidth(cfg, len(headers)-1)

	t := table{name: "anomalies", headers: headers}
	anomalies := 0
	for _, r := range rows {
		if r.IsAnomaly {
			anomalies++
		}
		plain, text := tupleCells(r.GroupTuple, cfg, keyWidth)
		head := []string{string(r.Metric), fmtFloat(r.Value), fmtFloat(r.ZScore)}
		tail := []string{fmtFloat(r.MovingAverage), fmtFloat(r.CorrectedValue), fmtFloat(r.CorrectedMAWeekly), fmtFloat(r.CorrectedMAMonthly)}

		plain = append(append(append(plain, head...), strconv.FormatBool(r.IsAnomaly)), tail...)
		text = append(append(append(text, head...), anomalyCell(r.IsAnomaly, cfg)), tail...)
		t.rows = append(t.rows, plain)
		t.display = append(t.display, text)
	}

	return writeReport(report{
		tables: []table{t},
		flat:   t,
		json:   rows,
		parquet: func(path string) error {
			return parquet.Write(parquet.ConvertAnomalyRows(rows), path)
		},
		footer: []string{
			fmt.Sprintf("Showing %d rows for %s (%d anomalies beyond %.1f std)", len(rows), cfg.Metric, anomalies, cfg.Pipeline.Std),
			completionLine(cfg, duration),
		},
	}, cfg)
}

// PrintDaynightResults outputs the day/night pivot of the daynight command.
func PrintDaynightResults(rows []schema.DaynightRow, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := floatFormatter(cfg.Precision)
	withKey := cfg.Pipeline.PrimaryKey != ""

	headers := []string{"count_date", "year", "weekday_name", "week_class"}
	textHeaders := append([]string(nil), headers...)
	if withKey {
		headers = append(headers, "key")
		textHeaders = append(textHeaders, "key")
	}
	headers = append(headers, string(schema.Daytime), string(schema.Nighttime))
	textHeaders = append(textHeaders, daynightCell(schema.Daytime, cfg), daynightCell(schema.Nighttime, cfg))
	keyWidth := GetMaxTableKeyWidth(cfg, len(headers)-1)

	t := table{name: "daynight", headers: headers}
	for _, r := range rows {
		calendar := []string{r.CountDate, strconv.Itoa(r.Year), r.WeekdayName, string(r.WeekClass)}
		plain := append([]string(nil), calendar...)
		text := append([]string(nil), calendar...)
		if withKey {
			plain = append(plain, r.Key)
			text = append(text, contract.TruncateKey(r.Key, keyWidth))
		}
		values := []string{schema.FormatOptional(r.Day, fmtFloat), schema.FormatOptional(r.Night, fmtFloat)}
		t.rows = append(t.rows, append(plain, values...))
		t.display = append(t.display, append(text, values...))
	}

	t.displayHeaders = textHeaders
	return writeReport(report{
		tables: []table{t},
		flat:   t,
		json:   rows,
		parquet: func(path string) error {
			return parquet.Write(parquet.ConvertDaynightRows(rows), path)
		},
		footer: []string{
			fmt.Sprintf("Showing %d date rows", len(rows)),
			completionLine(cfg, duration),
		},
	}, cfg)
}

// typicalValueHeaders returns the value columns of a typical table.
func typicalValueHeaders(daynight bool) []string {
	if daynight {
		return []string{"daytime_mean", "nighttime_mean"}
	}
	return []string{"averages"}
}

func typicalValues(r schema.TypicalRow, daynight bool, fmtFloat func(float64) string) []string {
	if daynight {
		return []string{schema.FormatOptional(r.DaytimeMean, fmtFloat), schema.FormatOptional(r.NighttimeMean, fmtFloat)}
	}
	return []string{schema.FormatOptional(r.Average, fmtFloat)}
}

// PrintTypicalResults outputs the three typical summaries.
// Text and xlsx show one table each; csv flattens them with a summary column.
func PrintTypicalResults(result schema.TypicalResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := floatFormatter(cfg.Precision)
	valueHeaders := typicalValueHeaders(result.Daynight)
	keyWidth := GetMaxTableKeyWidth(cfg, 2+len(valueHeaders))

	flat := table{
		name:    "typical",
		headers: append([]string{"summary", "year", "week_class", "key"}, valueHeaders...),
	}
	var tables []table
	for i, name := range schema.TypicalSummaries {
		byClass := i > 0
		headers := []string{"year"}
		if byClass {
			headers = append(headers, "week_class")
		}
		headers = append(append(headers, "key"), valueHeaders...)

		t := table{name: name, headers: headers}
		for _, r := range result.Table(i) {
			values := typicalValues(r, result.Daynight, fmtFloat)
			year := strconv.Itoa(r.Year)

			plain := []string{year}
			text := []string{year}
			if byClass {
				plain = append(plain, string(r.WeekClass))
				text = append(text, string(r.WeekClass))
			}
			plain = append(append(plain, r.Key), values...)
			text = append(append(text, contract.TruncateKey(r.Key, keyWidth)), values...)
			t.rows = append(t.rows, plain)
			t.display = append(t.display, text)

			flat.rows = append(flat.rows, append([]string{name, year, string(r.WeekClass), r.Key}, values...))
		}
		tables = append(tables, t)
	}

	return writeReport(report{
		tables: tables,
		flat:   flat,
		json:   result,
		parquet: func(path string) error {
			return parquet.Write(parquet.ConvertTypicalResult(result), path)
		},
		footer: []string{
			fmt.Sprintf("Typical footfall for %d key-years (%d weekday, %d weekend rows)", len(result.Typical), len(result.Weekday), len(result.Weekend)),
			completionLine(cfg, duration),
		},
	}, cfg)
}

// PrintValidationReport outputs the dataset quality report of the validate command.
// The csv and parquet modes carry only the per-column summaries.
func PrintValidationReport(rep schema.ValidationReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat := floatFormatter(cfg.Precision)

	columns := table{
		name:    "columns",
		headers: []string{"column", "count", "mean", "std", "min", "max", "negatives"},
	}
	for _, c := range rep.Columns {
		columns.rows = append(columns.rows, []string{
			c.Column,
			strconv.Itoa(c.Count),
			fmtFloat(c.Mean),
			fmtFloat(c.Std),
			fmtFloat(c.Min),
			fmtFloat(c.Max),
			strconv.Itoa(c.Negatives),
		})
	}

	overview := table{
		name:    "overview",
		headers: []string{"measure", "value"},
		rows: [][]string{
			{"rows", strconv.Itoa(rep.Rows)},
			{"duplicate_rows", strconv.Itoa(rep.DuplicateRows)},
		},
	}
	for _, name := range slices.Sorted(maps.Keys(rep.DistinctCounts)) {
		overview.rows = append(overview.rows, []string{"distinct_" + name, strconv.Itoa(rep.DistinctCounts[name])})
	}

	return writeReport(report{
		tables: []table{overview, columns},
		flat:   columns,
		json:   rep,
		parquet: func(path string) error {
			return parquet.Write(parquet.ConvertColumnSummaries(rep.Columns), path)
		},
		footer: []string{
			fmt.Sprintf("Validated %d rows (%d duplicates)", rep.Rows, rep.DuplicateRows),
			completionLine(cfg, duration),
		},
	}, cfg)
}
