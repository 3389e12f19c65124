package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/logging"
	"github.com/huangsam/placewise/schema"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Explanation lengths.
const (
	ShortFormat  = "short"
	MediumFormat = "medium" // default
	LongFormat   = "long"
)

// TemplateExplainer builds deterministic explanations from the scores alone.
type TemplateExplainer struct {
	format string
}

var _ contract.Explainer = TemplateExplainer{} // Compile-time check

// NewTemplateExplainer returns a template explainer; unknown formats fall back to medium.
func NewTemplateExplainer(format string) TemplateExplainer {
	switch format {
	case ShortFormat, LongFormat:
	default:
		format = MediumFormat
	}
	return TemplateExplainer{format: format}
}

// Format implements contract.Explainer.
func (e TemplateExplainer) Format() string {
	return e.format
}

// Explain implements contract.Explainer.
func (e TemplateExplainer) Explain(_ context.Context, c schema.ScoredCandidate, persona schema.Persona) (schema.Explanation, error) {
	name := c.AreaCode
	if c.AreaName != "" {
		name = fmt.Sprintf("%s (%s)", c.AreaName, c.AreaCode)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s ranks #%d for a %s with an overall score of %.1f/100.", name, c.Rank, persona, schema.RoundTo(c.CompositeScore, 1))
	if e.format == ShortFormat {
		return schema.Explanation{Text: b.String(), Success: true}, nil
	}

	if len(c.Strengths) > 0 {
		fmt.Fprintf(&b, " It stands out for %s.", joinLower(c.Strengths))
	} else {
		b.WriteString(" No single factor stands out, but the area is balanced.")
	}
	if len(c.Weaknesses) > 0 {
		fmt.Fprintf(&b, " Be aware of weaker %s.", joinLower(c.Weaknesses))
	}
	if e.format == LongFormat {
		b.WriteString("\n\nScores:")
		for _, f := range schema.AllFactors {
			if score, ok := c.FactorScores[f]; ok {
				fmt.Fprintf(&b, " %s %.0f;", schema.FactorPhrase(f), score)
			}
		}
		if c.Rank > 1 && c.TradeOffs != "" {
			fmt.Fprintf(&b, "\n\nCompared with the top choice: %s.", c.TradeOffs)
		}
	}
	return schema.Explanation{Text: b.String(), Success: true}, nil
}

func joinLower(labels []string) string {
	lower := make([]string, len(labels))
	for i, l := range labels {
		lower[i] = strings.ToLower(l)
	}
	switch len(lower) {
	case 1:
		return lower[0]
	case 2:
		return lower[0] + " and " + lower[1]
	default:
		return strings.Join(lower[:len(lower)-1], ", ") + " and " + lower[len(lower)-1]
	}
}

// explainRequest is the body sent to an HTTP explanation service.
type explainRequest struct {
	AreaCode       string              `json:"area_code"`
	AreaName       string              `json:"area_name,omitempty"`
	Persona        schema.Persona      `json:"persona"`
	Format         string              `json:"format_type"`
	CompositeScore float64             `json:"composite_score"`
	FactorScores   schema.FactorScores `json:"factor_breakdown"`
	Strengths      []string            `json:"strengths"`
	Weaknesses     []string            `json:"weaknesses"`
}

// explainResponse is both the HTTP reply and the cached explanation payload.
type explainResponse struct {
	AreaCode    string    `json:"area_code,omitempty"`
	Persona     string    `json:"persona,omitempty"`
	Format      string    `json:"format_type,omitempty"`
	Explanation string    `json:"explanation"`
	VideoURL    string    `json:"video_url,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	DataSource  string    `json:"data_source,omitempty"`
}

// HTTPExplainer posts candidates to an external explanation service.
type HTTPExplainer struct {
	url     string
	format  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

var _ contract.Explainer = &HTTPExplainer{} // Compile-time check

// NewHTTPExplainer returns an explainer for the service at url.
func NewHTTPExplainer(url, format string, timeout time.Duration) *HTTPExplainer {
	if timeout <= 0 {
		timeout = contract.DefaultUpstreamTimeout
	}
	return &HTTPExplainer{
		url:     url,
		format:  NewTemplateExplainer(format).Format(),
		client:  &http.Client{Timeout: timeout},
		breaker: newBreaker("explainer"),
	}
}

// Format implements contract.Explainer.
func (e *HTTPExplainer) Format() string {
	return e.format
}

// Explain implements contract.Explainer. Failures are reported in the
// returned Explanation as well as the error.
func (e *HTTPExplainer) Explain(ctx context.Context, c schema.ScoredCandidate, persona schema.Persona) (schema.Explanation, error) {
	body, err := json.Marshal(explainRequest{
		AreaCode: c.AreaCode, AreaName: c.AreaName, Persona: persona, Format: e.format,
		CompositeScore: schema.RoundTo(c.CompositeScore, 1), FactorScores: c.FactorScores,
		Strengths: c.Strengths, Weaknesses: c.Weaknesses,
	})
	if err != nil {
		return schema.Explanation{Error: err.Error()}, err
	}

	raw, err := e.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := e.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: explainer: %v", contract.ErrTransient, err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: explainer returned status %d", contract.ErrTransient, resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: explainer: %v", contract.ErrTransient, err)
		}
		return schema.Explanation{Error: err.Error()}, err
	}

	var out explainResponse
	if err := json.Unmarshal(raw, &out); err != nil || strings.TrimSpace(out.Explanation) == "" {
		err = fmt.Errorf("%w: explainer returned no explanation", contract.ErrTransient)
		return schema.Explanation{Error: err.Error()}, err
	}
	return schema.Explanation{Text: out.Explanation, VideoURL: out.VideoURL, Success: true}, nil
}

// CachedExplainer keeps explanations in the explanation category under
// <area>_<persona>_<format>_<rank>_<score> and attaches any cached video URL.
// Rank and score are part of the key because explanation text quotes them.
type CachedExplainer struct {
	inner contract.Explainer
	cache contract.CacheStore
}

var _ contract.Explainer = &CachedExplainer{} // Compile-time check

// NewCachedExplainer wraps an explainer with the cache store. A nil store disables caching.
func NewCachedExplainer(inner contract.Explainer, cache contract.CacheStore) contract.Explainer {
	if cache == nil {
		return inner
	}
	return &CachedExplainer{inner: inner, cache: cache}
}

// ExplanationKey is the cache key of an explanation for one ranked candidate.
func ExplanationKey(c schema.ScoredCandidate, persona schema.Persona, format string) string {
	return fmt.Sprintf("%s_%s_%s_%d_%.1f", c.AreaCode, persona, format, c.Rank, schema.RoundTo(c.CompositeScore, 1))
}

// VideoKey is the cache key of a generated video URL.
func VideoKey(areaCode string, persona schema.Persona) string {
	return fmt.Sprintf("%s_%s", areaCode, persona)
}

// Format implements contract.Explainer.
func (e *CachedExplainer) Format() string {
	return e.inner.Format()
}

// Explain implements contract.Explainer.
func (e *CachedExplainer) Explain(ctx context.Context, c schema.ScoredCandidate, persona schema.Persona) (schema.Explanation, error) {
	key := ExplanationKey(c, persona, e.inner.Format())

	var exp schema.Explanation
	if payload, ok := e.cache.Read(ctx, schema.ExplanationCategory, key, 0); ok {
		var cached explainResponse
		if err := json.Unmarshal(payload, &cached); err == nil && cached.Explanation != "" {
			exp = schema.Explanation{Text: cached.Explanation, VideoURL: cached.VideoURL, Success: true}
		}
	}

	if !exp.Success {
		var err error
		exp, err = e.inner.Explain(ctx, c, persona)
		if err != nil {
			return exp, err
		}
		payload, err := json.Marshal(explainResponse{
			AreaCode: c.AreaCode, Persona: string(persona), Format: e.inner.Format(),
			Explanation: exp.Text, VideoURL: exp.VideoURL, Timestamp: time.Now().UTC(),
			DataSource: fmt.Sprintf("%T", e.inner),
		})
		if err == nil {
			if err := e.cache.Write(ctx, schema.ExplanationCategory, key, payload); err != nil {
				logging.Warn().Err(err).Str("key", key).Msg("cache write failed")
			}
		}
	}

	if exp.VideoURL == "" {
		if payload, ok := e.cache.Read(ctx, schema.VideoURLCategory, VideoKey(c.AreaCode, persona), 0); ok {
			var videoURL string
			if err := json.Unmarshal(payload, &videoURL); err != nil {
				videoURL = string(payload)
			}
			exp.VideoURL = strings.TrimSpace(videoURL)
		}
	}
	return exp, nil
}
