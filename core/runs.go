package core

import (
	"context"
	"time"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/logging"
	"github.com/huangsam/footfall/schema"
)

// runTracker records one command invocation in the run store.
// A nil store or a failed BeginRun turns every call into a no-op.
type runTracker struct {
	store contract.RunStore
	id    int64
	key   string
	input int
}

// beginRun opens a tracked run and attaches its ID to the context.
// Tracking failures are logged and never stop the pipeline.
func beginRun(ctx context.Context, mgr contract.CacheManager, command string, cfg *contract.Config, inputRows int) (context.Context, *runTracker) {
	t := &runTracker{input: inputRows}
	if mgr == nil {
		return ctx, t
	}
	store := mgr.GetRunStore()
	if store == nil {
		return ctx, t
	}

	params := map[string]any{
		"source":         string(cfg.SourceFormat),
		"input":          cfg.InputPath,
		"primary_key":    cfg.Pipeline.PrimaryKey,
		"day_night":      cfg.Pipeline.DayNight,
		"agg":            string(cfg.Pipeline.Agg),
		"std":            cfg.Pipeline.Std,
		"footfall_types": cfg.Pipeline.FootfallTypes,
		"workers":        cfg.Pipeline.Workers,
	}
	if !cfg.Start.IsZero() {
		params["start"] = cfg.Start.Format(contract.DateFormat)
	}
	if !cfg.End.IsZero() {
		params["end"] = cfg.End.Format(contract.DateFormat)
	}

	id, key, err := store.BeginRun(ctx, command, time.Now(), params)
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return ctx, t
	}
	if id <= 0 {
		return ctx, t
	}
	t.store, t.id, t.key = store, id, key
	logging.Debug("run started", "command", command, "run_id", id, "run_key", key)
	return withRunID(ctx, id), t
}

// end finalizes the run with the number of output rows.
func (t *runTracker) end(ctx context.Context, outputRows int) {
	if t.store == nil {
		return
	}
	if err := t.store.EndRun(ctx, t.id, time.Now(), t.input, outputRows); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}

// recordTypical stores the three typical tables under the run found in the context.
func (t *runTracker) recordTypical(ctx context.Context, result schema.TypicalResult) {
	if t.store == nil {
		return
	}
	runID, ok := getRunID(ctx)
	if !ok {
		return
	}
	for i, name := range schema.TypicalSummaries {
		if err := t.store.RecordTypicalRows(ctx, runID, name, result.Table(i)); err != nil {
			contract.LogWarn("Failed to record typical rows", err)
			return
		}
	}
}
