package core

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/schema"
)

// requestInput is the JSON shape accepted from files and HTTP bodies. Areas
// come either as an ordered list or as an enrichment_data map.
type requestInput struct {
	Persona        schema.Persona               `json:"persona"`
	Preferences    *schema.UserPreferences      `json:"user_preferences"`
	Areas          []schema.AreaRecord          `json:"areas"`
	EnrichmentData map[string]schema.AreaRecord `json:"enrichment_data"`
	Limit          int                          `json:"limit"`
}

// DecodeRequest parses a ranking request. Map input is ordered by area code
// so ties break the same way on every run. Missing persona, preferences and
// limit are taken from defaults.
func DecodeRequest(r io.Reader, defaults schema.RankingRequest) (schema.RankingRequest, error) {
	var in requestInput
	dec := json.NewDecoder(r)
	if err := dec.Decode(&in); err != nil {
		return schema.RankingRequest{}, fmt.Errorf("%w: decoding request: %w", contract.ErrInvalidInput, err)
	}
	if len(in.Areas) > 0 && len(in.EnrichmentData) > 0 {
		return schema.RankingRequest{}, fmt.Errorf("%w: use either areas or enrichment_data, not both", contract.ErrInvalidInput)
	}

	req := defaults
	if in.Persona != "" {
		req.Persona = schema.Persona(strings.ToLower(string(in.Persona)))
	}
	if in.Preferences != nil {
		req.Preferences = *in.Preferences
	}
	if in.Limit > 0 {
		req.Limit = in.Limit
	}

	req.Areas = in.Areas
	if len(in.EnrichmentData) > 0 {
		codes := make([]string, 0, len(in.EnrichmentData))
		for code := range in.EnrichmentData {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		req.Areas = make([]schema.AreaRecord, 0, len(codes))
		for _, code := range codes {
			area := in.EnrichmentData[code]
			if area.AreaCode == "" {
				area.AreaCode = code
			}
			req.Areas = append(req.Areas, area)
		}
	}
	for i, area := range req.Areas {
		if strings.TrimSpace(area.AreaCode) == "" {
			return schema.RankingRequest{}, fmt.Errorf("%w: area at position %d has no area_code", contract.ErrInvalidInput, i)
		}
	}
	if err := contract.ValidatePreferences(req.Preferences); err != nil {
		return schema.RankingRequest{}, err
	}
	return req, nil
}

// LoadRequest reads a ranking request from a JSON file.
func LoadRequest(path string, defaults schema.RankingRequest) (schema.RankingRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return schema.RankingRequest{}, fmt.Errorf("%w: %v", contract.ErrInvalidInput, err)
	}
	defer func() { _ = f.Close() }()
	return DecodeRequest(f, defaults)
}

// DefaultRequest returns the request implied by the CLI configuration, without areas.
func DefaultRequest(cfg *contract.Config) schema.RankingRequest {
	prefs := cfg.Preferences
	if cfg.Preferences.ImportanceWeights != nil {
		prefs.ImportanceWeights = cfg.Clone().Preferences.ImportanceWeights
	}
	return schema.RankingRequest{
		Persona:     cfg.Persona,
		Preferences: prefs,
		Limit:       cfg.ResultLimit,
	}
}
