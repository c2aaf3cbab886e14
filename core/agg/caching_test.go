package agg

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/huangsam/footfall/core/algo"
	"github.com/huangsam/footfall/internal/iocache"
	"github.com/huangsam/footfall/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCacheStore = iocache.MockCacheStore

func encodeRows(t *testing.T, rows []schema.AnomalyRow) []byte {
	t.Helper()
	data, err := json.Marshal(rows)
	require.NoError(t, err)
	return snappy.Encode(nil, data)
}

func sampleMetrics() []schema.AggregatedMetric {
	var out []schema.AggregatedMetric
	for i, v := range []float64{10, 12, 11, 9} {
		out = append(out, schema.AggregatedMetric{
			GroupTuple: schema.GroupTuple{Key: "h1", CountDate: time.Date(2023, 1, 2+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), Year: 2023, Month: 1},
			Values:     map[schema.FootfallType]float64{schema.Residents: v},
		})
	}
	return out
}

var sampleDetect = algo.DetectOptions{Std: 3, GroupBy: []schema.GroupKey{schema.GroupBySpatialKey, schema.GroupByYear}, Workers: 1}

func TestCheckCacheHit(t *testing.T) {
	ctx := context.Background()
	cached := []schema.AnomalyRow{{Metric: schema.Residents, Value: 5, CorrectedValue: 5}}

	tests := []struct {
		name    string
		data    []byte
		version int
		ts      int64
		err     error
		hit     bool
	}{
		{"hit", encodeRows(t, cached), currentCacheVersion, time.Now().Unix(), nil, true},
		{"version mismatch", encodeRows(t, cached), currentCacheVersion + 1, time.Now().Unix(), nil, false},
		{"stale", encodeRows(t, cached), currentCacheVersion, time.Now().Add(-8 * 24 * time.Hour).Unix(), nil, false},
		{"store error", nil, 0, 0, assert.AnError, false},
		{"not snappy", []byte("invalid"), currentCacheVersion, time.Now().Unix(), nil, false},
		{"empty table", encodeRows(t, []schema.AnomalyRow{}), currentCacheVersion, time.Now().Unix(), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockCacheStore{}
			store.On("Get", mock.Anything, "key").Return(tt.data, tt.version, tt.ts, tt.err)

			got := checkCacheHit(ctx, store, "key")
			if tt.hit {
				require.Len(t, got, 1)
				assert.Equal(t, 5.0, got[0].CorrectedValue)
			} else {
				assert.Nil(t, got)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestCachedDetectMissStoresCompressedTable(t *testing.T) {
	ctx := context.Background()
	metrics := sampleMetrics()
	key, err := generateCacheKey(metrics, schema.Residents, sampleDetect)
	require.NoError(t, err)

	store := &MockCacheStore{}
	store.On("Get", mock.Anything, key).Return(nil, 0, int64(0), assert.AnError)
	var stored []byte
	store.On("Set", mock.Anything, key, mock.AnythingOfType("[]uint8"), currentCacheVersion, mock.AnythingOfType("int64")).
		Run(func(args mock.Arguments) { stored = args.Get(2).([]byte) }).
		Return(nil)

	rows, err := cachedDetect(ctx, store, metrics, schema.Residents, sampleDetect)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	raw, err := snappy.Decode(nil, stored)
	require.NoError(t, err)
	var decoded []schema.AnomalyRow
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, rows, decoded)
	store.AssertExpectations(t)
}

func TestCachedDetectHitSkipsCompute(t *testing.T) {
	ctx := context.Background()
	metrics := sampleMetrics()
	key, err := generateCacheKey(metrics, schema.Residents, sampleDetect)
	require.NoError(t, err)

	cached := []schema.AnomalyRow{{Metric: schema.Residents, CorrectedValue: 42}}
	store := &MockCacheStore{}
	store.On("Get", mock.Anything, key).Return(encodeRows(t, cached), currentCacheVersion, time.Now().Unix(), nil)

	rows, err := cachedDetect(ctx, store, metrics, schema.Residents, sampleDetect)
	require.NoError(t, err)
	assert.Equal(t, cached, rows)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCachedDetectSetFailureStillReturnsRows(t *testing.T) {
	store := &MockCacheStore{}
	store.On("Get", mock.Anything, mock.Anything).Return(nil, 0, int64(0), assert.AnError)
	store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	rows, err := cachedDetect(context.Background(), store, sampleMetrics(), schema.Residents, sampleDetect)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestGenerateCacheKey(t *testing.T) {
	metrics := sampleMetrics()
	key1, err := generateCacheKey(metrics, schema.Residents, sampleDetect)
	require.NoError(t, err)
	assert.Len(t, key1, 64)

	again, err := generateCacheKey(sampleMetrics(), schema.Residents, sampleDetect)
	require.NoError(t, err)
	assert.Equal(t, key1, again)

	other, err := generateCacheKey(metrics, schema.Workers, sampleDetect)
	require.NoError(t, err)
	assert.NotEqual(t, key1, other)

	looser := sampleDetect
	looser.Std = 2
	other, err = generateCacheKey(metrics, schema.Residents, looser)
	require.NoError(t, err)
	assert.NotEqual(t, key1, other)

	metrics[2].Values[schema.Residents] = 500
	other, err = generateCacheKey(metrics, schema.Residents, sampleDetect)
	require.NoError(t, err)
	assert.NotEqual(t, key1, other)
}
