// Package upstream holds the HTTP collaborators that supply raw area data
// and explanations, plus the read-through cache in front of them.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/logging"
	"github.com/huangsam/placewise/internal/metrics"
	"github.com/huangsam/placewise/schema"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// AreaPlaceholder is replaced by the escaped area code in endpoint templates.
const AreaPlaceholder = "{area}"

// maxBodyBytes caps upstream responses.
const maxBodyBytes = 4 << 20

// HTTPFetcher calls one collaborator endpoint. Calls are paced by a token
// bucket and guarded by a circuit breaker; retries are left to the caller.
type HTTPFetcher struct {
	category schema.CacheCategory
	template string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[[]byte]
}

var _ contract.Fetcher = &HTTPFetcher{} // Compile-time check

// NewHTTPFetcher builds a fetcher for one category from its URL template.
func NewHTTPFetcher(category schema.CacheCategory, template string, cfg contract.UpstreamConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = contract.DefaultUpstreamTimeout
	}
	limit, burst := cfg.Rate, cfg.Burst
	if limit <= 0 {
		limit = contract.DefaultUpstreamRate
	}
	if burst <= 0 {
		burst = contract.DefaultUpstreamBurst
	}
	return &HTTPFetcher{
		category: category,
		template: template,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(limit), burst),
		breaker:  newBreaker("upstream-" + string(category)),
	}
}

// newBreaker opens after five consecutive failures and probes again after 30s.
// Not-found answers are healthy responses and never trip it.
func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	metrics.BreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, contract.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Category implements contract.Fetcher.
func (f *HTTPFetcher) Category() schema.CacheCategory {
	return f.category
}

// URL renders the endpoint for an area.
func (f *HTTPFetcher) URL(areaCode string) string {
	return strings.ReplaceAll(f.template, AreaPlaceholder, url.PathEscape(areaCode))
}

// Fetch returns the raw payload for an area. A 404 maps to ErrNotFound;
// timeouts, 429, 5xx and an open breaker map to ErrTransient.
func (f *HTTPFetcher) Fetch(ctx context.Context, areaCode string) ([]byte, error) {
	start := time.Now()
	if err := f.limiter.Wait(ctx); err != nil {
		metrics.RecordUpstream(string(f.category), metrics.OutcomeTransient, time.Since(start))
		return nil, fmt.Errorf("%w: %s %s: %v", contract.ErrTransient, f.category, areaCode, err)
	}

	body, err := f.breaker.Execute(func() ([]byte, error) {
		return f.do(ctx, areaCode)
	})
	elapsed := time.Since(start)

	switch {
	case err == nil:
		metrics.RecordUpstream(string(f.category), metrics.OutcomeOK, elapsed)
		return body, nil
	case errors.Is(err, contract.ErrNotFound):
		metrics.RecordUpstream(string(f.category), metrics.OutcomeNotFound, elapsed)
		return nil, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordUpstream(string(f.category), metrics.OutcomeBreakerOpen, elapsed)
		return nil, fmt.Errorf("%w: %s %s: %v", contract.ErrTransient, f.category, areaCode, err)
	default:
		metrics.RecordUpstream(string(f.category), metrics.OutcomeTransient, elapsed)
		return nil, err
	}
}

func (f *HTTPFetcher) do(ctx context.Context, areaCode string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(areaCode), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request for %s: %v", contract.ErrTransient, areaCode, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", contract.ErrTransient, f.category, areaCode, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s has no data for %s", contract.ErrNotFound, f.category, areaCode)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s %s: status %d", contract.ErrTransient, f.category, areaCode, resp.StatusCode)
	case resp.StatusCode >= 400:
		// Other client errors will not fix themselves either
		return nil, fmt.Errorf("%w: %s %s: status %d", contract.ErrNotFound, f.category, areaCode, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s %s: %v", contract.ErrTransient, f.category, areaCode, err)
	}
	return body, nil
}

// NewFetchers builds one HTTP fetcher per configured endpoint, in canonical
// category order.
func NewFetchers(cfg contract.UpstreamConfig) []contract.Fetcher {
	var out []contract.Fetcher
	for _, category := range AreaCategories {
		if template, ok := cfg.Endpoints[category]; ok {
			out = append(out, NewHTTPFetcher(category, template, cfg))
		}
	}
	return out
}
