package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUpstreamConfig() contract.UpstreamConfig {
	return contract.UpstreamConfig{Rate: 1000, Burst: 100, Timeout: 2 * time.Second}
}

func TestHTTPFetcherURL(t *testing.T) {
	f := NewHTTPFetcher(schema.CommuteCategory, "http://example.test/commute/{area}?mode=tube", testUpstreamConfig())
	assert.Equal(t, "http://example.test/commute/SW1A%201AA?mode=tube", f.URL("SW1A 1AA"))
	assert.Equal(t, schema.CommuteCategory, f.Category())
}

func TestHTTPFetcherStatusMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/area/OK1":
			_, _ = w.Write([]byte(`{"duration_minutes": 25}`))
		case "/area/BUSY":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/area/BAD":
			w.WriteHeader(http.StatusBadRequest)
		case "/area/DOWN":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(schema.CommuteCategory, srv.URL+"/area/{area}", testUpstreamConfig())

	tests := []struct {
		area    string
		wantErr error
	}{
		{area: "OK1"},
		{area: "MISSING", wantErr: contract.ErrNotFound},
		{area: "BAD", wantErr: contract.ErrNotFound},
		{area: "BUSY", wantErr: contract.ErrTransient},
		{area: "DOWN", wantErr: contract.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.area, func(t *testing.T) {
			body, err := f.Fetch(context.Background(), tt.area)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsUnknown(err))
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, `{"duration_minutes": 25}`, string(body))
		})
	}
}

func TestHTTPFetcherBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(schema.CrimeCategory, srv.URL+"/{area}", testUpstreamConfig())
	for range 5 {
		_, err := f.Fetch(context.Background(), "E1")
		require.ErrorIs(t, err, contract.ErrTransient)
	}
	require.Equal(t, int32(5), calls.Load())

	_, err := f.Fetch(context.Background(), "E1")
	assert.ErrorIs(t, err, contract.ErrTransient)
	assert.Equal(t, int32(5), calls.Load(), "open breaker must not reach the server")
}

func TestHTTPFetcherNotFoundKeepsBreakerClosed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(schema.SchoolsCategory, srv.URL+"/{area}", testUpstreamConfig())
	for range 8 {
		_, err := f.Fetch(context.Background(), "N1")
		assert.ErrorIs(t, err, contract.ErrNotFound)
	}
	assert.Equal(t, int32(8), calls.Load())
}

func TestHTTPFetcherCanceledContext(t *testing.T) {
	f := NewHTTPFetcher(schema.AmenitiesCategory, "http://127.0.0.1:1/{area}", contract.UpstreamConfig{Rate: 0.001, Burst: 1})
	_, _ = f.Fetch(context.Background(), "X") // drains the only token

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Fetch(ctx, "X")
	assert.ErrorIs(t, err, contract.ErrTransient)
}

func TestNewFetchers(t *testing.T) {
	cfg := testUpstreamConfig()
	cfg.Endpoints = map[schema.CacheCategory]string{
		schema.SchoolsCategory:  "http://s/{area}",
		schema.PropertyCategory: "http://p/{area}",
		schema.CommuteCategory:  "http://c/{area}",
	}
	fetchers := NewFetchers(cfg)
	require.Len(t, fetchers, 3)
	assert.Equal(t, schema.PropertyCategory, fetchers[0].Category())
	assert.Equal(t, schema.CommuteCategory, fetchers[1].Category())
	assert.Equal(t, schema.SchoolsCategory, fetchers[2].Category())

	assert.Empty(t, NewFetchers(contract.UpstreamConfig{}))
}
