package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/iocache"
	"github.com/huangsam/placewise/internal/upstream"
	"github.com/huangsam/placewise/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mockFetcher(category schema.CacheCategory) *contract.MockFetcher {
	f := &contract.MockFetcher{}
	f.On("Category").Return(category)
	return f
}

func TestEnrichAreas(t *testing.T) {
	ctx := context.Background()

	property := mockFetcher(schema.PropertyCategory)
	property.On("Fetch", mock.Anything, "E1").Return([]byte(`{"affordability_score": 70}`), nil)
	property.On("Fetch", mock.Anything, "N1").Return(nil, contract.ErrNotFound)
	property.On("Fetch", mock.Anything, "SE1").Return([]byte(`{"demand_index": 20}`), nil)

	trends := mockFetcher(schema.TrendsCategory)
	trends.On("Fetch", mock.Anything, mock.Anything).Return([]byte(`{"demand_index": 90, "risk_score": 40}`), nil)

	crime := mockFetcher(schema.CrimeCategory)
	crime.On("Fetch", mock.Anything, "E1").Return(nil, contract.ErrTransient)
	crime.On("Fetch", mock.Anything, "N1").Return([]byte(`{"total_crimes": 40}`), nil)
	crime.On("Fetch", mock.Anything, "SE1").Return([]byte(`not json`), nil)

	areas, err := EnrichAreas(ctx, []string{"E1", "N1", "SE1"}, []contract.Fetcher{property, trends, crime}, 2)
	require.NoError(t, err)
	require.Len(t, areas, 3)

	assert.Equal(t, "E1", areas[0].AreaCode)
	assert.Equal(t, 70.0, *areas[0].Property.AffordabilityScore)
	assert.Nil(t, areas[0].Safety, "transient failure leaves the category unknown")

	assert.Equal(t, "N1", areas[1].AreaCode)
	assert.Equal(t, 90.0, *areas[1].Property.DemandIndex, "trends fill a missing property record")
	assert.Equal(t, 40, *areas[1].Safety.TotalCrimes)

	assert.Equal(t, "SE1", areas[2].AreaCode)
	assert.Equal(t, 20.0, *areas[2].Property.DemandIndex, "trends never override the main feed")
	assert.Equal(t, 40.0, *areas[2].Property.RiskScore)
	assert.Nil(t, areas[2].Safety, "malformed payload is discarded")
}

func TestEnrichAreasHardError(t *testing.T) {
	f := mockFetcher(schema.SchoolsCategory)
	f.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("misconfigured"))

	_, err := EnrichAreas(context.Background(), []string{"E1", "E2"}, []contract.Fetcher{f}, 1)
	assert.EqualError(t, err, "misconfigured")
}

func TestEnrichAreasCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := mockFetcher(schema.SchoolsCategory)
	f.On("Fetch", mock.Anything, mock.Anything).Return(nil, contract.ErrTransient)

	_, err := EnrichAreas(ctx, []string{"E1"}, []contract.Fetcher{f}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnrichAreasNoFetchers(t *testing.T) {
	areas, err := EnrichAreas(context.Background(), []string{"E1", "E2"}, nil, 4)
	require.NoError(t, err)
	assert.Equal(t, []schema.AreaRecord{{AreaCode: "E1"}, {AreaCode: "E2"}}, areas)
}

func TestEnrichAreasDoesNotCacheMalformedPayload(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte("<html>down for maintenance</html>"))
			return
		}
		_, _ = w.Write([]byte(`{"avg_primary_score": 88}`))
	}))
	defer srv.Close()

	store, err := iocache.NewFileCacheStore(t.TempDir())
	require.NoError(t, err)
	cfg := contract.UpstreamConfig{Rate: 100, Burst: 10}
	fetchers := []contract.Fetcher{
		upstream.NewCachedFetcher(upstream.NewHTTPFetcher(schema.SchoolsCategory, srv.URL+"/schools/{area}", cfg), store),
	}

	first, err := EnrichAreas(context.Background(), []string{"E3"}, fetchers, 1)
	require.NoError(t, err)
	assert.Nil(t, first[0].Schools)

	second, err := EnrichAreas(context.Background(), []string{"E3"}, fetchers, 1)
	require.NoError(t, err)
	require.NotNil(t, second[0].Schools)
	assert.Equal(t, 88.0, *second[0].Schools.QualityScore)
	assert.Equal(t, int32(2), calls.Load())

	// The good payload is now served from the cache
	third, err := EnrichAreas(context.Background(), []string{"E3"}, fetchers, 1)
	require.NoError(t, err)
	require.NotNil(t, third[0].Schools)
	assert.Equal(t, int32(2), calls.Load())
}
