package core

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/huangsam/footfall/core/agg"
	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/logging"
	"github.com/huangsam/footfall/schema"
)

// SummarizeTypical computes the typical daily footfall per year and key over the
// inclusive date window, overall and split into weekday and weekend tables.
// With DayNight set, each table carries separate daytime and nighttime means.
func SummarizeTypical(ctx context.Context, records []schema.FootfallRecord, opts contract.TypicalOptions, store contract.CacheStore) (schema.TypicalResult, error) {
	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return schema.TypicalResult{}, err
	}

	cleaned, err := prepareTypicalRecords(records, opts)
	if err != nil {
		return schema.TypicalResult{}, err
	}
	if len(cleaned) == 0 {
		return schema.TypicalResult{Daynight: opts.DayNight}, nil
	}

	rows, err := agg.Aggregate(ctx, cleaned, opts.Options, store)
	if err != nil {
		return schema.TypicalResult{}, err
	}

	var entries []typicalEntry
	if opts.DayNight {
		for _, p := range agg.PivotDaynight(rows, true) {
			entries = append(entries, typicalEntry{year: p.Year, class: p.WeekClass, key: p.Key, day: p.Day, night: p.Night})
		}
	} else {
		for _, r := range rows {
			entries = append(entries, typicalEntry{year: r.Year, class: r.WeekClass, key: r.Key, total: schema.FloatPtr(r.CorrectedTotal)})
		}
	}

	byClass := summarizeEntries(entries, true, opts.DayNight)
	result := schema.TypicalResult{
		Typical:  summarizeEntries(entries, false, opts.DayNight),
		Daynight: opts.DayNight,
	}
	for _, row := range byClass {
		switch row.WeekClass {
		case schema.Weekday:
			result.Weekday = append(result.Weekday, row)
		case schema.Weekend:
			result.Weekend = append(result.Weekend, row)
		}
	}
	return result, nil
}

// prepareTypicalRecords strips geometry columns, applies the date window, replaces
// negative and missing counts with zero and orders rows by date, time slice and key.
func prepareTypicalRecords(records []schema.FootfallRecord, opts contract.TypicalOptions) ([]schema.FootfallRecord, error) {
	type dated struct {
		rec  schema.FootfallRecord
		date time.Time
	}

	kept := make([]dated, 0, len(records))
	sanitized := 0
	for i, r := range records {
		d, err := contract.ParseDate(r.CountDate)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if !opts.InWindow(d) {
			continue
		}
		r.Extra = dropGeometry(r.Extra)
		for _, ft := range schema.DefaultFootfallTypes {
			if v := r.Count(ft); v < 0 || math.IsNaN(v) {
				r.SetCount(ft, 0)
				sanitized++
			}
		}
		kept = append(kept, dated{rec: r, date: d})
	}
	if sanitized > 0 {
		logging.Debug("counts replaced with zero", "reason", "negative or missing", "values", sanitized)
	}

	slices.SortStableFunc(kept, func(a, b dated) int {
		return cmp.Or(
			a.date.Compare(b.date),
			cmp.Compare(a.rec.TimeSlice, b.rec.TimeSlice),
			cmp.Compare(a.rec.Key, b.rec.Key),
		)
	})

	out := make([]schema.FootfallRecord, len(kept))
	for i, d := range kept {
		out[i] = d.rec
	}
	return out, nil
}

func dropGeometry(extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return extra
	}
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		if !slices.Contains(schema.GeometryColumns, k) {
			out[k] = v
		}
	}
	return out
}

type typicalEntry struct {
	year       int
	class      schema.WeekClass
	key        string
	total      *float64
	day, night *float64
}

type meanAcc struct {
	sum float64
	n   int
}

func (a *meanAcc) add(v *float64) {
	if v == nil || math.IsNaN(*v) {
		return
	}
	a.sum += *v
	a.n++
}

func (a meanAcc) mean() *float64 {
	if a.n == 0 {
		return nil
	}
	return schema.FloatPtr(a.sum / float64(a.n))
}

// summarizeEntries averages entries per (year, key), or per (year, week class, key)
// when byClass is set. Absent values are skipped; a mean over no values stays nil.
func summarizeEntries(entries []typicalEntry, byClass, daynight bool) []schema.TypicalRow {
	type groupKey struct {
		year  int
		class schema.WeekClass
		key   string
	}
	type accs struct{ total, day, night meanAcc }

	groups := map[groupKey]*accs{}
	for _, e := range entries {
		k := groupKey{year: e.year, key: e.key}
		if byClass {
			k.class = e.class
		}
		a, ok := groups[k]
		if !ok {
			a = &accs{}
			groups[k] = a
		}
		a.total.add(e.total)
		a.day.add(e.day)
		a.night.add(e.night)
	}

	out := make([]schema.TypicalRow, 0, len(groups))
	for k, a := range groups {
		row := schema.TypicalRow{Year: k.year, WeekClass: k.class, Key: k.key}
		if daynight {
			row.DaytimeMean = a.day.mean()
			row.NighttimeMean = a.night.mean()
		} else {
			row.Average = a.total.mean()
		}
		out = append(out, row)
	}
	slices.SortFunc(out, func(a, b schema.TypicalRow) int {
		return cmp.Or(
			cmp.Compare(a.Year, b.Year),
			cmp.Compare(a.WeekClass, b.WeekClass),
			cmp.Compare(a.Key, b.Key),
		)
	})
	return out
}
