package contract

import (
	"context"

	"github.com/huangsam/placewise/schema"
	"github.com/stretchr/testify/mock"
)

// MockFetcher is a mock implementation of Fetcher for testing.
type MockFetcher struct {
	mock.Mock
}

var _ Fetcher = &MockFetcher{} // Compile-time check

// Category implements the Fetcher interface.
func (m *MockFetcher) Category() schema.CacheCategory {
	args := m.Called()
	return args.Get(0).(schema.CacheCategory)
}

// Fetch implements the Fetcher interface.
func (m *MockFetcher) Fetch(ctx context.Context, areaCode string) ([]byte, error) {
	args := m.Called(ctx, areaCode)
	payload, _ := args.Get(0).([]byte)
	return payload, args.Error(1)
}

// MockExplainer is a mock implementation of Explainer for testing.
type MockExplainer struct {
	mock.Mock
}

var _ Explainer = &MockExplainer{} // Compile-time check

// Format implements the Explainer interface.
func (m *MockExplainer) Format() string {
	args := m.Called()
	return args.String(0)
}

// Explain implements the Explainer interface.
func (m *MockExplainer) Explain(ctx context.Context, candidate schema.ScoredCandidate, persona schema.Persona) (schema.Explanation, error) {
	args := m.Called(ctx, candidate, persona)
	return args.Get(0).(schema.Explanation), args.Error(1)
}
