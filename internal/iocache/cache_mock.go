package iocache

import (
	"context"
	"time"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/schema"
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

// GetHistoryStore implements the CacheManager interface.
func (m *MockCacheManager) GetHistoryStore() contract.HistoryStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.HistoryStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Read implements the CacheStore interface.
func (m *MockCacheStore) Read(ctx context.Context, category schema.CacheCategory, key string, maxAge time.Duration) ([]byte, bool) {
	args := m.Called(ctx, category, key, maxAge)
	payload, _ := args.Get(0).([]byte)
	return payload, args.Bool(1)
}

// Write implements the CacheStore interface.
func (m *MockCacheStore) Write(ctx context.Context, category schema.CacheCategory, key string, payload []byte) error {
	args := m.Called(ctx, category, key, payload)
	return args.Error(0)
}

// Invalidate implements the CacheStore interface.
func (m *MockCacheStore) Invalidate(ctx context.Context, category schema.CacheCategory, key string) (bool, error) {
	args := m.Called(ctx, category, key)
	return args.Bool(0), args.Error(1)
}

// Sweep implements the CacheStore interface.
func (m *MockCacheStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	args := m.Called(ctx, maxAge)
	return args.Int(0), args.Error(1)
}

// Stats implements the CacheStore interface.
func (m *MockCacheStore) Stats(ctx context.Context) (schema.CacheStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockHistoryStore is a mock implementation of HistoryStore for testing.
type MockHistoryStore struct {
	mock.Mock
}

var _ contract.HistoryStore = &MockHistoryStore{} // Compile-time check

// BeginRun implements the HistoryStore interface.
func (m *MockHistoryStore) BeginRun(ctx context.Context, runUUID string, persona schema.Persona, startTime time.Time, configParams map[string]any) (int64, error) {
	args := m.Called(ctx, runUUID, persona, startTime, configParams)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the HistoryStore interface.
func (m *MockHistoryStore) EndRun(ctx context.Context, runID int64, endTime time.Time, totalAreas, filteredOut int) error {
	args := m.Called(ctx, runID, endTime, totalAreas, filteredOut)
	return args.Error(0)
}

// RecordRecommendation implements the HistoryStore interface.
func (m *MockHistoryStore) RecordRecommendation(ctx context.Context, runID int64, persona schema.Persona, candidate schema.ScoredCandidate) error {
	args := m.Called(ctx, runID, persona, candidate)
	return args.Error(0)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus(ctx context.Context) (schema.HistoryStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.HistoryStatus), args.Error(1)
}

// GetAllRuns implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllRuns(ctx context.Context) ([]schema.RunRecord, error) {
	args := m.Called(ctx)
	runs, _ := args.Get(0).([]schema.RunRecord)
	return runs, args.Error(1)
}

// GetAllRecommendations implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllRecommendations(ctx context.Context) ([]schema.RecommendationRecord, error) {
	args := m.Called(ctx)
	recs, _ := args.Get(0).([]schema.RecommendationRecord)
	return recs, args.Error(1)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
