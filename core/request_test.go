package core

import (
	"strings"
	"testing"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	defaults := schema.RankingRequest{
		Persona:     schema.StudentPersona,
		Preferences: schema.UserPreferences{BudgetMax: schema.Float(1800)},
		Limit:       5,
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
		check   func(t *testing.T, req schema.RankingRequest)
	}{
		{
			name: "area list keeps order",
			body: `{"areas": [{"area_code": "SW9"}, {"area_code": "E1"}]}`,
			check: func(t *testing.T, req schema.RankingRequest) {
				require.Len(t, req.Areas, 2)
				assert.Equal(t, "SW9", req.Areas[0].AreaCode)
				assert.Equal(t, schema.StudentPersona, req.Persona)
				assert.Equal(t, 1800.0, *req.Preferences.BudgetMax)
				assert.Equal(t, 5, req.Limit)
			},
		},
		{
			name: "enrichment map sorted by code",
			body: `{"persona": "Developer", "limit": 2, "enrichment_data": {"SE15": {}, "E14": {"infrastructure": {"score": 70}}, "N1": {}}}`,
			check: func(t *testing.T, req schema.RankingRequest) {
				require.Len(t, req.Areas, 3)
				assert.Equal(t, []string{"E14", "N1", "SE15"}, []string{req.Areas[0].AreaCode, req.Areas[1].AreaCode, req.Areas[2].AreaCode})
				assert.Equal(t, 70.0, *req.Areas[0].Infrastructure.Score)
				assert.Equal(t, schema.DeveloperPersona, req.Persona)
				assert.Equal(t, 2, req.Limit)
			},
		},
		{
			name: "request preferences replace defaults",
			body: `{"user_preferences": {"max_commute_minutes": 30}, "areas": [{"area_code": "E1"}]}`,
			check: func(t *testing.T, req schema.RankingRequest) {
				assert.Nil(t, req.Preferences.BudgetMax)
				assert.Equal(t, 30.0, *req.Preferences.MaxCommuteMinutes)
			},
		},
		{name: "malformed json", body: `{"areas": [`, wantErr: true},
		{name: "both area forms", body: `{"areas": [{"area_code": "E1"}], "enrichment_data": {"E2": {}}}`, wantErr: true},
		{name: "missing area code", body: `{"areas": [{"area_name": "Nowhere"}]}`, wantErr: true},
		{name: "importance out of range", body: `{"user_preferences": {"importance_weights": {"safety": 11}}}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest(strings.NewReader(tt.body), defaults)
			if tt.wantErr {
				assert.ErrorIs(t, err, contract.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			tt.check(t, req)
		})
	}
}

func TestLoadRequestMissingFile(t *testing.T) {
	_, err := LoadRequest("/nonexistent/request.json", schema.RankingRequest{})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}

func TestDefaultRequestCopiesImportance(t *testing.T) {
	cfg := testConfig()
	cfg.Preferences.ImportanceWeights = map[schema.Factor]float64{schema.Safety: 9}
	req := DefaultRequest(cfg)
	req.Preferences.ImportanceWeights[schema.Safety] = 1
	assert.Equal(t, 9.0, cfg.Preferences.ImportanceWeights[schema.Safety])
}
