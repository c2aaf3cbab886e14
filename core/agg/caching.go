package agg

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/huangsam/footfall/core/algo"
	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/internal/logging"
	"github.com/huangsam/footfall/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// cacheTTL is how long a cached anomaly table stays valid.
const cacheTTL = 7 * 24 * time.Hour

// cachedDetect returns the anomaly table for one metric, reusing a cached copy when possible.
func cachedDetect(ctx context.Context, store contract.CacheStore, metrics []schema.AggregatedMetric, metric schema.FootfallType, opts algo.DetectOptions) ([]schema.AnomalyRow, error) {
	if store == nil {
		// Fallback to direct computation
		return algo.DetectAnomalies(ctx, metrics, metric, opts)
	}

	key, err := generateCacheKey(metrics, metric, opts)
	if err != nil {
		return algo.DetectAnomalies(ctx, metrics, metric, opts)
	}

	// Check for cache hit
	if rows := checkCacheHit(ctx, store, key); rows != nil {
		logging.Debug("anomaly cache hit", "type", metric)
		return rows, nil
	}

	// Cache miss: compute and store
	return computeAndStore(ctx, store, key, metrics, metric, opts)
}

// checkCacheHit attempts to retrieve and validate a cached anomaly table
func checkCacheHit(ctx context.Context, store contract.CacheStore, key string) []schema.AnomalyRow {
	data, version, ts, err := store.Get(ctx, key)
	if err != nil {
		return nil // Cache miss
	}

	// Validate version and staleness
	if version != currentCacheVersion || time.Since(time.Unix(ts, 0)) > cacheTTL {
		return nil
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil
	}
	var rows []schema.AnomalyRow
	if err := json.Unmarshal(raw, &rows); err != nil || len(rows) == 0 {
		return nil
	}
	return rows
}

// computeAndStore computes the anomaly table and stores it in cache
func computeAndStore(ctx context.Context, store contract.CacheStore, key string, metrics []schema.AggregatedMetric, metric schema.FootfallType, opts algo.DetectOptions) ([]schema.AnomalyRow, error) {
	rows, err := algo.DetectAnomalies(ctx, metrics, metric, opts)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rows); err == nil {
		if err := store.Set(ctx, key, snappy.Encode(nil, data), currentCacheVersion, time.Now().Unix()); err != nil {
			logging.Warn("failed to cache anomaly table", "type", metric, "error", err)
		}
	}
	return rows, nil
}

// generateCacheKey hashes everything that determines an anomaly table:
// the metric, the threshold, the grouping and the aggregated rows themselves.
func generateCacheKey(metrics []schema.AggregatedMetric, metric schema.FootfallType, opts algo.DetectOptions) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	header := struct {
		Metric  schema.FootfallType `json:"metric"`
		Std     float64             `json:"std"`
		GroupBy []schema.GroupKey   `json:"group_by"`
	}{metric, opts.Std, opts.GroupBy}
	if err := enc.Encode(header); err != nil {
		return "", err
	}
	for _, m := range metrics {
		if err := enc.Encode(struct {
			schema.GroupTuple
			Value float64 `json:"value"`
		}{m.GroupTuple, m.Values[metric]}); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
