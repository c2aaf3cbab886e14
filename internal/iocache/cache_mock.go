package iocache

import (
	"context"
	"time"

	"github.com/huangsam/footfall/internal/contract"
	"github.com/huangsam/footfall/schema"
	"github.com/stretchr/testify/mock"
)

// MockCacheManager is a mock implementation of CacheManager for testing.
type MockCacheManager struct {
	mock.Mock
}

var _ contract.CacheManager = &MockCacheManager{} // Compile-time check

// GetCacheStore implements the CacheManager interface.
func (m *MockCacheManager) GetCacheStore() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// GetRunStore implements the CacheManager interface.
func (m *MockCacheManager) GetRunStore() contract.RunStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.RunStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(ctx context.Context, key string) ([]byte, int, int64, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Int(1), args.Get(2).(int64), args.Error(3)
}

// Set implements the CacheStore interface.
func (m *MockCacheStore) Set(ctx context.Context, key string, data []byte, version int, ts int64) error {
	args := m.Called(ctx, key, data, version, ts)
	return args.Error(0)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus(ctx context.Context) (schema.CacheStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ contract.RunStore = &MockRunStore{} // Compile-time check

// BeginRun implements the RunStore interface.
func (m *MockRunStore) BeginRun(ctx context.Context, command string, startTime time.Time, configParams map[string]any) (int64, string, error) {
	args := m.Called(ctx, command, startTime, configParams)
	return args.Get(0).(int64), args.String(1), args.Error(2)
}

// EndRun implements the RunStore interface.
func (m *MockRunStore) EndRun(ctx context.Context, runID int64, endTime time.Time, inputRows, outputRows int) error {
	args := m.Called(ctx, runID, endTime, inputRows, outputRows)
	return args.Error(0)
}

// RecordTypicalRows implements the RunStore interface.
func (m *MockRunStore) RecordTypicalRows(ctx context.Context, runID int64, summary string, rows []schema.TypicalRow) error {
	args := m.Called(ctx, runID, summary, rows)
	return args.Error(0)
}

// GetRuns implements the RunStore interface.
func (m *MockRunStore) GetRuns(ctx context.Context) ([]schema.RunRecord, error) {
	args := m.Called(ctx)
	runs, _ := args.Get(0).([]schema.RunRecord)
	return runs, args.Error(1)
}

// GetTypicalRows implements the RunStore interface.
func (m *MockRunStore) GetTypicalRows(ctx context.Context) ([]schema.TypicalRecord, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]schema.TypicalRecord)
	return rows, args.Error(1)
}

// GetStatus implements the RunStore interface.
func (m *MockRunStore) GetStatus(ctx context.Context) (schema.RunStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.RunStatus), args.Error(1)
}

// Close implements the RunStore interface.
func (m *MockRunStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
