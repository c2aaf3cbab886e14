// Package contract provides interfaces and shared utilities for footfall's internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/footfall/schema"
)

// DataSource supplies raw footfall rows.
type DataSource interface {
	// Load reads every row of the source into memory.
	Load(ctx context.Context) ([]schema.FootfallRecord, error)

	// Describe returns a short human-readable name for the source.
	Describe() string
}

// CacheManager defines the interface for managing stores.
// This allows the persistence layer to be mocked for testing.
type CacheManager interface {
	GetCacheStore() CacheStore
	GetRunStore() RunStore
}

// CacheStore defines the interface for anomaly table storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, int, int64, error)
	Set(ctx context.Context, key string, value []byte, version int, timestamp int64) error
	GetStatus(ctx context.Context) (schema.CacheStatus, error)
	Close() error
}

// RunStore defines the interface for tracking pipeline runs and their typical summaries.
type RunStore interface {
	// BeginRun creates a new run and returns its numeric ID and unique key
	BeginRun(ctx context.Context, command string, startTime time.Time, configParams map[string]any) (int64, string, error)

	// EndRun updates the run with completion data
	EndRun(ctx context.Context, runID int64, endTime time.Time, inputRows, outputRows int) error

	// RecordTypicalRows stores one of the typical summaries for a run
	RecordTypicalRows(ctx context.Context, runID int64, summary string, rows []schema.TypicalRow) error

	// GetRuns returns every tracked run, oldest first
	GetRuns(ctx context.Context) ([]schema.RunRecord, error)

	// GetTypicalRows returns every stored typical row ordered by run
	GetTypicalRows(ctx context.Context) ([]schema.TypicalRecord, error)

	// GetStatus returns status information about the run store
	GetStatus(ctx context.Context) (schema.RunStatus, error)

	// Close closes the underlying connection
	Close() error
}
