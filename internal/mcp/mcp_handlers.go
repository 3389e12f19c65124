package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/huangsam/placewise/core"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
}

func (h *toolHandler) handleRankAreas(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if err := applyRankArguments(cfg, request); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid ranking parameters: %v", err)), nil
	}

	var (
		req schema.RankingRequest
		err error
	)
	if body := request.GetString("request_json", ""); body != "" {
		req, err = core.DecodeRequest(strings.NewReader(body), core.DefaultRequest(cfg))
	} else {
		req, err = core.BuildRequest(ctx, cfg, h.mgr)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid ranking request: %v", err)), nil
	}

	result, err := core.Rank(ctx, cfg, h.mgr, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ranking failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

// applyRankArguments overlays the tool arguments on a cloned config.
func applyRankArguments(cfg *contract.Config, request mcp.CallToolRequest) error {
	if p := request.GetString("persona", ""); p != "" {
		cfg.Persona = schema.Persona(strings.ToLower(p))
	}
	if l := request.GetInt("limit", 0); l > 0 {
		cfg.ResultLimit = min(l, contract.MaxResultLimit)
	}
	if codes := request.GetString("areas", ""); codes != "" {
		cfg.Areas = nil
		for code := range strings.SplitSeq(codes, ",") {
			if trimmed := strings.TrimSpace(code); trimmed != "" {
				cfg.Areas = append(cfg.Areas, strings.ToUpper(trimmed))
			}
		}
	}
	if v := request.GetFloat("budget_max", 0); v > 0 {
		cfg.Preferences.BudgetMax = schema.Float(v)
	}
	if v := request.GetFloat("max_commute_minutes", 0); v > 0 {
		cfg.Preferences.MaxCommuteMinutes = schema.Float(v)
	}
	if v := request.GetFloat("min_safety_score", 0); v > 0 {
		cfg.Preferences.MinSafetyScore = schema.Float(v)
	}
	if v := request.GetFloat("min_school_rating", 0); v > 0 {
		cfg.Preferences.MinSchoolRating = schema.Float(v)
	}
	if s := request.GetString("importance", ""); s != "" {
		importance, err := contract.ParseImportanceString(s)
		if err != nil {
			return err
		}
		cfg.Preferences.ImportanceWeights = importance
	}
	cfg.Explain = request.GetBool("explain", cfg.Explain)
	return contract.ValidatePreferences(cfg.Preferences)
}

func (h *toolHandler) handleListPersonas(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jsonData, _ := json.MarshalIndent(h.baseCfg.Personas.Profiles(), "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleCacheStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.mgr == nil || h.mgr.GetCacheStore() == nil {
		return mcp.NewToolResultError("caching is not configured"), nil
	}
	status, err := h.mgr.GetCacheStore().Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cache stats failed: %v", err)), nil
	}
	jsonData, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
