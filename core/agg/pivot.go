package agg

import (
	"sort"

	"github.com/huangsam/footfall/schema"
)

// PivotDaynight reshapes corrected totals into one row per date (and key when withKey is set)
// with the mean total of each day/night class in its own column. Rows without a class are
// ignored, and a class with no rows leaves its column nil.
func PivotDaynight(rows []schema.CorrectedRow, withKey bool) []schema.DaynightRow {
	type cell struct {
		sum   float64
		count int
	}
	type entry struct {
		row   schema.DaynightRow
		day   cell
		night cell
	}
	type pivotKey struct {
		date, weekday string
		year          int
		class         schema.WeekClass
		key           string
	}

	index := map[pivotKey]*entry{}
	var entries []*entry
	for _, r := range rows {
		if r.Daynight != schema.Daytime && r.Daynight != schema.Nighttime {
			continue
		}
		pk := pivotKey{date: r.CountDate, weekday: r.WeekdayName, year: r.Year, class: r.WeekClass}
		if withKey {
			pk.key = r.Key
		}
		e, ok := index[pk]
		if !ok {
			e = &entry{row: schema.DaynightRow{
				CountDate:   r.CountDate,
				Year:        r.Year,
				WeekdayName: r.WeekdayName,
				WeekClass:   r.WeekClass,
				Key:         pk.key,
			}}
			index[pk] = e
			entries = append(entries, e)
		}
		if r.Daynight == schema.Daytime {
			e.day.sum += r.CorrectedTotal
			e.day.count++
		} else {
			e.night.sum += r.CorrectedTotal
			e.night.count++
		}
	}

	out := make([]schema.DaynightRow, len(entries))
	for i, e := range entries {
		row := e.row
		if e.day.count > 0 {
			row.Day = schema.FloatPtr(e.day.sum / float64(e.day.count))
		}
		if e.night.count > 0 {
			row.Night = schema.FloatPtr(e.night.sum / float64(e.night.count))
		}
		out[i] = row
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CountDate != out[j].CountDate {
			return out[i].CountDate < out[j].CountDate
		}
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Key < out[j].Key
	})
	return out
}
