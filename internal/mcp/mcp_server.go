// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the placewise MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"Placewise Area Recommendation Server",
		version,
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: rank_areas ---
	s.AddTool(mcp.NewTool("rank_areas",
		mcp.WithDescription("Score and rank areas (postcode districts) for a persona. Give either area codes to look up or a full request JSON with area data."),
		mcp.WithString("persona", mcp.Description("Persona to rank for. Defaults to the configured persona."), mcp.Enum(personaNames(baseCfg)...)),
		mcp.WithString("areas", mcp.Description("Comma-separated area codes to enrich from the configured upstreams, e.g. 'E1,SE15,N1'.")),
		mcp.WithString("request_json", mcp.Description("Full ranking request JSON with an 'areas' list or an 'enrichment_data' map.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of recommendations returned.")),
		mcp.WithNumber("budget_max", mcp.Description("Maximum average monthly price.")),
		mcp.WithNumber("max_commute_minutes", mcp.Description("Maximum commute duration in minutes.")),
		mcp.WithNumber("min_safety_score", mcp.Description("Minimum safety score (0-100).")),
		mcp.WithNumber("min_school_rating", mcp.Description("Minimum school rating (0-100).")),
		mcp.WithString("importance", mcp.Description("Importance ratings from 0 to 10, e.g. 'safety:9,schools:7'. 5 is neutral.")),
		mcp.WithBoolean("explain", mcp.Description("Attach explanations to the top recommendations.")),
	), h.handleRankAreas)

	// --- 2. Tool: list_personas ---
	s.AddTool(mcp.NewTool("list_personas",
		mcp.WithDescription("List the personas and their base factor weights."),
	), h.handleListPersonas)

	// --- 3. Tool: cache_stats ---
	s.AddTool(mcp.NewTool("cache_stats",
		mcp.WithDescription("Summarize the upstream cache: entries, size and freshness per category."),
	), h.handleCacheStats)

	return s
}

// StartMCPServer starts the placewise MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager, version string) error {
	s := NewMCPServer(baseCfg, mgr, version)
	return server.ServeStdio(s)
}

func personaNames(cfg *contract.Config) []string {
	names := cfg.Personas.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
