// Package feature derives calendar attributes from raw footfall rows.
package feature

import (
	"fmt"
	"sort"
	"strings"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/logging"
	"github.com/huangsam/footfall/schema"
)

// weekdays maps a Monday-based weekday index to its name and class.
var weekdays = [7]struct {
	name  string
	class schema.WeekClass
}{
	{"Monday", schema.Weekday},
	{"Tuesday", schema.Weekday},
	{"Wednesday", schema.Weekday},
	{"Thursday", schema.Weekday},
	{"Friday", schema.Weekday},
	{"Saturday", schema.Weekend},
	{"Sunday", schema.Weekend},
}

// timeSlices maps each 3-hour bucket to its day/night class.
var timeSlices = map[string]schema.DaynightClass{
	"00-03": schema.Nighttime,
	"03-06": schema.Nighttime,
	"06-09": schema.Daytime,
	"09-12": schema.Daytime,
	"12-15": schema.Daytime,
	"15-18": schema.Daytime,
	"18-21": schema.Nighttime,
	"21-24": schema.Nighttime,
}

// Options controls feature derivation.
type Options struct {
	// TimeSlice derives the day/night class from each record's time slice.
	TimeSlice bool
}

// WeekdayInfo returns the name and class of a Monday-based weekday index.
func WeekdayInfo(index int) (string, schema.WeekClass, bool) {
	if index < 0 || index >= len(weekdays) {
		return "", "", false
	}
	return weekdays[index].name, weekdays[index].class, true
}

// ClassifyTimeSlice returns the day/night class of a time slice bucket.
func ClassifyTimeSlice(slice string) (schema.DaynightClass, bool) {
	class, ok := timeSlices[strings.TrimSpace(slice)]
	return class, ok
}

// Derive parses each record's date and attaches calendar attributes.
// Any unparseable date aborts derivation and returns no rows. Unmappable time slices
// leave the day/night class unset and are logged once per distinct value.
func Derive(records []schema.FootfallRecord, opts Options) ([]schema.FeatureRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	out := make([]schema.FeatureRecord, len(records))
	unmapped := map[string]int{}
	for i, rec := range records {
		date, err := contract.ParseDate(rec.CountDate)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		// time.Weekday starts on Sunday
		index := (int(date.Weekday()) + 6) % 7
		name, class, _ := WeekdayInfo(index)

		fr := schema.FeatureRecord{
			FootfallRecord: rec,
			Date:           date,
			Year:           date.Year(),
			Month:          int(date.Month()),
			WeekdayIndex:   index,
			WeekdayName:    name,
			WeekClass:      class,
		}
		fr.CountDate = date.Format(contract.DateFormat)
		fr.Extra = cloneExtra(rec.Extra)

		if opts.TimeSlice {
			if dn, ok := ClassifyTimeSlice(rec.TimeSlice); ok {
				fr.Daynight = dn
			} else {
				unmapped[rec.TimeSlice]++
			}
		}
		out[i] = fr
	}

	if len(unmapped) > 0 {
		values := make([]string, 0, len(unmapped))
		for v := range unmapped {
			values = append(values, v)
		}
		sort.Strings(values)
		for _, v := range values {
			logging.Warn("unmappable time slice", "value", v, "rows", unmapped[v])
		}
	}
	return out, nil
}

func cloneExtra(extra map[string]string) map[string]string {
	if extra == nil {
		return nil
	}
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	return out
}
