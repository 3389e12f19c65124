package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/iocache"
	"github.com/huangsam/placewise/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, srvCfg ServerConfig) *httptest.Server {
	t.Helper()
	cfg := &contract.Config{
		ResultLimit: 10,
		Workers:     2,
		Persona:     schema.StudentPersona,
		Personas:    schema.DefaultPersonas(),
		Precision:   1,
		ExplainTop:  3,
	}
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetCacheStore").Return(nil)
	mgr.On("GetHistoryStore").Return(nil)

	srv := httptest.NewServer(NewRouter(cfg, mgr, srvCfg))
	t.Cleanup(srv.Close)
	return srv
}

func postRank(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestRankEndpoint(t *testing.T) {
	srv := testServer(t, ServerConfig{})

	t.Run("ranks areas", func(t *testing.T) {
		resp, data := postRank(t, srv, "/v1/rank?explain=true", `{
			"persona": "parent",
			"user_preferences": {"min_school_rating": 50},
			"enrichment_data": {
				"E1": {"schools": {"avg_primary_score": 85}},
				"N1": {"schools": {"avg_primary_score": 40}},
				"SE15": {"schools": {"avg_primary_score": 70}}
			}
		}`)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var out schema.RankingResult
		require.NoError(t, json.Unmarshal(data, &out))
		assert.NotEmpty(t, out.RunID)
		assert.Equal(t, 2, out.ScoredCount)
		assert.Equal(t, 1, out.FilteredOutCount)
		require.Len(t, out.Recommendations, 2)
		assert.Equal(t, "E1", out.Recommendations[0].AreaCode)
		require.NotNil(t, out.Recommendations[0].Explanation)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, data := postRank(t, srv, "/v1/rank", `{"areas": [`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(data), `"invalid_input"`)
	})

	t.Run("unknown persona", func(t *testing.T) {
		resp, data := postRank(t, srv, "/v1/rank", `{"persona": "astronaut", "areas": [{"area_code": "E1"}]}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(data), "unknown persona")
	})

	t.Run("duplicate areas", func(t *testing.T) {
		resp, _ := postRank(t, srv, "/v1/rank", `{"areas": [{"area_code": "E1"}, {"area_code": "E1"}]}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/v1/rank")
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestPersonasAndHealth(t *testing.T) {
	srv := testServer(t, ServerConfig{})

	resp, err := http.Get(srv.URL + "/v1/personas")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profiles []schema.PersonaProfile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profiles))
	assert.Len(t, profiles, 3)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t, ServerConfig{})

	_, _ = http.Get(srv.URL + "/healthz")
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), `placewise_http_requests_total{route="/healthz",status="200"}`)
}

func TestRateLimit(t *testing.T) {
	srv := testServer(t, ServerConfig{RateLimit: 2})

	codes := make([]int, 0, 3)
	for range 3 {
		resp, err := http.Get(srv.URL + "/v1/personas")
		require.NoError(t, err)
		_ = resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
