package schema

import (
	"math"
	"sort"
)

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 {
	return &v
}

// FormatOptional formats an optional value, returning an empty string when it is absent.
func FormatOptional(v *float64, fmtFloat func(float64) string) string {
	if v == nil || math.IsNaN(*v) {
		return ""
	}
	return fmtFloat(*v)
}

// AnomalyLabel returns a plain label for an anomaly flag.
func AnomalyLabel(isAnomaly bool) string {
	if isAnomaly {
		return "Anomaly"
	}
	return "Normal"
}

// SortedFootfallTypes returns the keys of a per-type map in canonical order.
func SortedFootfallTypes(m map[FootfallType]float64) []FootfallType {
	order := map[FootfallType]int{}
	for i, t := range DefaultFootfallTypes {
		order[t] = i
	}
	types := make([]FootfallType, 0, len(m))
	for t := range m {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		oi, iok := order[types[i]]
		oj, jok := order[types[j]]
		if iok && jok {
			return oi < oj
		}
		if iok != jok {
			return iok
		}
		return types[i] < types[j]
	})
	return types
}
