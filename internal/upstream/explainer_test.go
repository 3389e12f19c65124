package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/iocache"
	"github.com/huangsam/placewise/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleCandidate() schema.ScoredCandidate {
	return schema.ScoredCandidate{
		AreaCode:       "E14",
		AreaName:       "Canary Wharf",
		Rank:           2,
		CompositeScore: 72.46,
		FactorScores:   schema.FactorScores{schema.Commute: 90, schema.Amenities: 85, schema.Affordability: 30},
		Strengths:      []string{"Commute", "Amenities"},
		Weaknesses:     []string{"Affordability"},
		TradeOffs:      "Better commute but lower affordability",
	}
}

func TestTemplateExplainer(t *testing.T) {
	ctx := context.Background()
	c := sampleCandidate()

	t.Run("medium", func(t *testing.T) {
		e := NewTemplateExplainer("")
		assert.Equal(t, MediumFormat, e.Format())
		exp, err := e.Explain(ctx, c, schema.StudentPersona)
		require.NoError(t, err)
		assert.True(t, exp.Success)
		assert.Equal(t, "Canary Wharf (E14) ranks #2 for a student with an overall score of 72.5/100. "+
			"It stands out for commute and amenities. Be aware of weaker affordability.", exp.Text)
	})

	t.Run("short", func(t *testing.T) {
		exp, err := NewTemplateExplainer(ShortFormat).Explain(ctx, c, schema.StudentPersona)
		require.NoError(t, err)
		assert.NotContains(t, exp.Text, "stands out")
	})

	t.Run("long lists scores and trade-offs", func(t *testing.T) {
		exp, err := NewTemplateExplainer(LongFormat).Explain(ctx, c, schema.StudentPersona)
		require.NoError(t, err)
		assert.Contains(t, exp.Text, "affordability 30;")
		assert.Contains(t, exp.Text, "Compared with the top choice: Better commute but lower affordability.")
	})

	t.Run("no strengths", func(t *testing.T) {
		plain := schema.ScoredCandidate{AreaCode: "N1", Rank: 1, CompositeScore: 50}
		exp, err := NewTemplateExplainer(MediumFormat).Explain(ctx, plain, schema.ParentPersona)
		require.NoError(t, err)
		assert.Contains(t, exp.Text, "N1 ranks #1")
		assert.Contains(t, exp.Text, "balanced")
	})
}

func TestJoinLower(t *testing.T) {
	assert.Equal(t, "safety", joinLower([]string{"Safety"}))
	assert.Equal(t, "safety and schools", joinLower([]string{"Safety", "Schools"}))
	assert.Equal(t, "safety, schools and commute", joinLower([]string{"Safety", "Schools", "Commute"}))
}

func TestHTTPExplainer(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			body, _ := io.ReadAll(r.Body)
			var req explainRequest
			require.NoError(t, json.Unmarshal(body, &req))
			assert.Equal(t, "E14", req.AreaCode)
			assert.Equal(t, schema.StudentPersona, req.Persona)
			assert.Equal(t, 72.5, req.CompositeScore)
			_, _ = w.Write([]byte(`{"explanation": "Great transport links.", "video_url": "https://v.test/e14"}`))
		}))
		defer srv.Close()

		exp, err := NewHTTPExplainer(srv.URL, LongFormat, time.Second).Explain(ctx, sampleCandidate(), schema.StudentPersona)
		require.NoError(t, err)
		assert.Equal(t, schema.Explanation{Text: "Great transport links.", VideoURL: "https://v.test/e14", Success: true}, exp)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		exp, err := NewHTTPExplainer(srv.URL, "", 0).Explain(ctx, sampleCandidate(), schema.StudentPersona)
		assert.ErrorIs(t, err, contract.ErrTransient)
		assert.False(t, exp.Success)
		assert.NotEmpty(t, exp.Error)
	})

	t.Run("empty explanation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"explanation": "  "}`))
		}))
		defer srv.Close()

		_, err := NewHTTPExplainer(srv.URL, "", 0).Explain(ctx, sampleCandidate(), schema.StudentPersona)
		assert.ErrorIs(t, err, contract.ErrTransient)
	})
}

func TestCachedExplainer(t *testing.T) {
	ctx := context.Background()
	c := sampleCandidate()
	key := ExplanationKey(c, schema.StudentPersona, MediumFormat)
	assert.Equal(t, "E14_student_medium_2_72.5", key)

	t.Run("hit", func(t *testing.T) {
		inner := new(contract.MockExplainer)
		inner.On("Format").Return(MediumFormat)
		cache := new(iocache.MockCacheStore)
		cache.On("Read", ctx, schema.ExplanationCategory, key, mock.Anything).
			Return([]byte(`{"explanation": "cached text", "video_url": "https://v.test/1"}`), true)

		exp, err := NewCachedExplainer(inner, cache).Explain(ctx, c, schema.StudentPersona)
		require.NoError(t, err)
		assert.Equal(t, "cached text", exp.Text)
		assert.Equal(t, "https://v.test/1", exp.VideoURL)
		inner.AssertNotCalled(t, "Explain", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("miss writes back and attaches video", func(t *testing.T) {
		inner := new(contract.MockExplainer)
		inner.On("Format").Return(MediumFormat)
		inner.On("Explain", ctx, c, schema.StudentPersona).Return(schema.Explanation{Text: "fresh", Success: true}, nil)
		cache := new(iocache.MockCacheStore)
		cache.On("Read", ctx, schema.ExplanationCategory, key, mock.Anything).Return(nil, false)
		cache.On("Write", ctx, schema.ExplanationCategory, key, mock.MatchedBy(func(p []byte) bool {
			var stored explainResponse
			return json.Unmarshal(p, &stored) == nil && stored.Explanation == "fresh" && stored.Format == MediumFormat
		})).Return(nil).Once()
		cache.On("Read", ctx, schema.VideoURLCategory, "E14_student", mock.Anything).Return([]byte(`"https://v.test/2"`), true)

		exp, err := NewCachedExplainer(inner, cache).Explain(ctx, c, schema.StudentPersona)
		require.NoError(t, err)
		assert.Equal(t, "fresh", exp.Text)
		assert.Equal(t, "https://v.test/2", exp.VideoURL)
		cache.AssertExpectations(t)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		inner := new(contract.MockExplainer)
		inner.On("Format").Return(MediumFormat)
		inner.On("Explain", ctx, c, schema.StudentPersona).Return(schema.Explanation{Error: "down"}, contract.ErrTransient)
		cache := new(iocache.MockCacheStore)
		cache.On("Read", ctx, schema.ExplanationCategory, key, mock.Anything).Return(nil, false)

		exp, err := NewCachedExplainer(inner, cache).Explain(ctx, c, schema.StudentPersona)
		assert.ErrorIs(t, err, contract.ErrTransient)
		assert.False(t, exp.Success)
		cache.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCachedExplainerFollowsRankAndScore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := iocache.NewFileCacheStore(dir)
	require.NoError(t, err)
	explainer := NewCachedExplainer(NewTemplateExplainer(MediumFormat), store)

	first := schema.ScoredCandidate{AreaCode: "E1", Rank: 1, CompositeScore: 80}
	exp, err := explainer.Explain(ctx, first, schema.StudentPersona)
	require.NoError(t, err)
	assert.Contains(t, exp.Text, "ranks #1")
	assert.Contains(t, exp.Text, "80.0/100")

	later := schema.ScoredCandidate{AreaCode: "E1", Rank: 3, CompositeScore: 62}
	exp, err = explainer.Explain(ctx, later, schema.StudentPersona)
	require.NoError(t, err)
	assert.Contains(t, exp.Text, "ranks #3")
	assert.Contains(t, exp.Text, "62.0/100")
	assert.NotContains(t, exp.Text, "#1")

	// Both runs stay cached side by side
	_, ok := store.Read(ctx, schema.ExplanationCategory, ExplanationKey(first, schema.StudentPersona, MediumFormat), 0)
	assert.True(t, ok)
	_, ok = store.Read(ctx, schema.ExplanationCategory, ExplanationKey(later, schema.StudentPersona, MediumFormat), 0)
	assert.True(t, ok)
}
