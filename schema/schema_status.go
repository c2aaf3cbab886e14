package schema

import "time"

// CacheStatus represents the status of the cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// RunStatus represents the status of the run history store.
type RunStatus struct {
	Backend          string           `json:"backend"`
	Connected        bool             `json:"connected"`
	TotalRuns        int              `json:"total_runs"`
	LastRunID        int64            `json:"last_run_id"`
	LastRunTime      time.Time        `json:"last_run_time"`
	OldestRunTime    time.Time        `json:"oldest_run_time"`
	TotalTypicalRows int              `json:"total_typical_rows"`
	TableSizes       map[string]int64 `json:"table_sizes"`
}

// RunRecord represents a row from the footfall_runs table.
type RunRecord struct {
	RunID         int64
	RunKey        string
	Command       string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs int64
	InputRows     int
	OutputRows    int
	ConfigParams  string
}

// TypicalRecord represents a row from the footfall_typical table.
type TypicalRecord struct {
	RunID         int64
	Summary       string // typical, weekday or weekend
	Year          int32
	WeekClass     string
	Key           string
	Average       *float64
	DaytimeMean   *float64
	NighttimeMean *float64
}
