package core

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/schema"
)

// ValidateRecords reports the shape and quality of a raw dataset: duplicate rows,
// distinct values per column and summary statistics for each count column.
// Column names in the report follow the source mapping.
func ValidateRecords(records []schema.FootfallRecord, cols contract.ColumnMapping) schema.ValidationReport {
	report := schema.ValidationReport{
		Rows:           len(records),
		DistinctCounts: map[string]int{},
	}

	distinct := map[string]map[string]struct{}{}
	see := func(column, value string) {
		if column == "" || value == "" {
			return
		}
		set, ok := distinct[column]
		if !ok {
			set = map[string]struct{}{}
			distinct[column] = set
		}
		set[value] = struct{}{}
	}

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		fp := fingerprint(r)
		if _, dup := seen[fp]; dup {
			report.DuplicateRows++
		} else {
			seen[fp] = struct{}{}
		}

		see(cols.Key, r.Key)
		see(cols.Date, r.CountDate)
		see(cols.TimeSlice, r.TimeSlice)
		see(cols.Resident, formatCount(r.Resident))
		see(cols.Worker, formatCount(r.Worker))
		see(cols.Visitor, formatCount(r.Visitor))
		for k, v := range r.Extra {
			see(k, v)
		}
	}
	for column, set := range distinct {
		report.DistinctCounts[column] = len(set)
	}

	for _, ft := range schema.DefaultFootfallTypes {
		name := columnFor(cols, ft)
		values := make([]float64, 0, len(records))
		for _, r := range records {
			values = append(values, r.Count(ft))
		}
		report.Columns = append(report.Columns, describe(name, values))
	}
	return report
}

func columnFor(cols contract.ColumnMapping, ft schema.FootfallType) string {
	switch ft {
	case schema.Residents:
		return cols.Resident
	case schema.Workers:
		return cols.Worker
	default:
		return cols.Visitor
	}
}

// describe summarizes non-missing values. Std is the sample deviation and is zero
// below two values so the report stays JSON-encodable.
func describe(column string, values []float64) schema.ColumnSummary {
	s := schema.ColumnSummary{Column: column}
	var sum float64
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if s.Count == 0 || v < s.Min {
			s.Min = v
		}
		if s.Count == 0 || v > s.Max {
			s.Max = v
		}
		if v < 0 {
			s.Negatives++
		}
		sum += v
		s.Count++
	}
	if s.Count == 0 {
		return s
	}
	s.Mean = sum / float64(s.Count)
	if s.Count > 1 {
		var sq float64
		for _, v := range values {
			if !math.IsNaN(v) {
				sq += (v - s.Mean) * (v - s.Mean)
			}
		}
		s.Std = math.Sqrt(sq / float64(s.Count-1))
	}
	return s
}

func formatCount(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// fingerprint renders every field of a record, extras in key order.
func fingerprint(r schema.FootfallRecord) string {
	var b strings.Builder
	for _, part := range []string{r.Key, r.CountDate, r.TimeSlice, formatCount(r.Resident), formatCount(r.Worker), formatCount(r.Visitor)} {
		b.WriteString(part)
		b.WriteByte(0)
	}
	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(0)
		b.WriteString(r.Extra[k])
		b.WriteByte(0)
	}
	return b.String()
}
