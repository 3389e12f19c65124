package mcp_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/iocache"
	mcp_internal "github.com/huangsam/placewise/internal/mcp"
	"github.com/huangsam/placewise/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func baseConfig() *contract.Config {
	return &contract.Config{
		ResultLimit: 10,
		Workers:     2,
		Persona:     schema.StudentPersona,
		Personas:    schema.DefaultPersonas(),
		Precision:   1,
		ExplainTop:  3,
	}
}

func callTool(t *testing.T, mgr contract.CacheManager, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	s := mcp_internal.NewMCPServer(baseConfig(), mgr, "test")
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	return res
}

func resultText(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestRankAreas(t *testing.T) {
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetCacheStore").Return(nil)
	mgr.On("GetHistoryStore").Return(nil)

	t.Run("request json", func(t *testing.T) {
		res := callTool(t, mgr, "rank_areas", map[string]any{
			"persona":      "parent",
			"limit":        1.0,
			"explain":      true,
			"request_json": `{"enrichment_data": {"E1": {"schools": {"avg_primary_score": 90}}, "N1": {"schools": {"avg_primary_score": 20}}}}`,
		})
		require.False(t, res.IsError, resultText(res))

		var out schema.RankingResult
		require.NoError(t, json.Unmarshal([]byte(resultText(res)), &out))
		assert.Equal(t, schema.ParentPersona, out.Persona)
		require.Len(t, out.Recommendations, 1)
		assert.Equal(t, "E1", out.Recommendations[0].AreaCode)
		require.NotNil(t, out.Recommendations[0].Explanation)
		assert.True(t, out.Recommendations[0].Explanation.Success)
	})

	t.Run("area codes without upstreams", func(t *testing.T) {
		res := callTool(t, mgr, "rank_areas", map[string]any{"areas": "e1, se15"})
		require.False(t, res.IsError, resultText(res))
		assert.Contains(t, resultText(res), `"SE15"`)
	})

	t.Run("nothing to rank", func(t *testing.T) {
		res := callTool(t, mgr, "rank_areas", map[string]any{})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "no areas given")
	})

	t.Run("invalid importance", func(t *testing.T) {
		res := callTool(t, mgr, "rank_areas", map[string]any{"areas": "E1", "importance": "safety:eleven"})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "invalid ranking parameters")
	})

	t.Run("importance out of range", func(t *testing.T) {
		res := callTool(t, mgr, "rank_areas", map[string]any{"areas": "E1", "importance": "safety:15"})
		assert.True(t, res.IsError)
	})

	t.Run("malformed request json", func(t *testing.T) {
		res := callTool(t, mgr, "rank_areas", map[string]any{"request_json": `{"areas": [`})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "invalid ranking request")
	})
}

func TestListPersonas(t *testing.T) {
	res := callTool(t, nil, "list_personas", nil)
	require.False(t, res.IsError)

	var profiles []schema.PersonaProfile
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &profiles))
	require.Len(t, profiles, 3)
	assert.Equal(t, schema.DeveloperPersona, profiles[0].Name)
}

func TestCacheStats(t *testing.T) {
	t.Run("no cache", func(t *testing.T) {
		res := callTool(t, nil, "cache_stats", nil)
		assert.True(t, res.IsError)
	})

	t.Run("stats", func(t *testing.T) {
		store := &iocache.MockCacheStore{}
		store.On("Stats", mock.Anything).Return(schema.CacheStatus{Backend: "file", Connected: true, TotalEntries: 4}, nil)
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetCacheStore").Return(store)

		res := callTool(t, mgr, "cache_stats", nil)
		require.False(t, res.IsError)
		assert.Contains(t, resultText(res), `"total_entries": 4`)
	})

	t.Run("stats failure", func(t *testing.T) {
		store := &iocache.MockCacheStore{}
		store.On("Stats", mock.Anything).Return(schema.CacheStatus{}, errors.New("connection refused"))
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetCacheStore").Return(store)

		res := callTool(t, mgr, "cache_stats", nil)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "connection refused")
	})
}
