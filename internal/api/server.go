// Package api exposes the ranking engine over HTTP using the chi router.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/logging"
	"github.com/huangsam/placewise/internal/metrics"
)

// Defaults for the serve command.
const (
	DefaultAddr        = ":8080"
	DefaultRateLimit   = 60
	DefaultRateWindow  = time.Minute
	maxRequestBodySize = 1 << 20
	shutdownTimeout    = 10 * time.Second
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr       string
	RateLimit  int // requests per window and client IP; 0 disables limiting
	RateWindow time.Duration
}

// DefaultServerConfig returns the settings used when no flags are given.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{Addr: DefaultAddr, RateLimit: DefaultRateLimit, RateWindow: DefaultRateWindow}
}

// NewRouter builds the HTTP routes. The config is cloned per request, so
// handlers never mutate the shared one.
func NewRouter(cfg *contract.Config, mgr contract.CacheManager, srvCfg ServerConfig) http.Handler {
	h := &handler{cfg: cfg, mgr: mgr}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestMetrics)

	r.Get("/healthz", h.health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if srvCfg.RateLimit > 0 {
			window := srvCfg.RateWindow
			if window <= 0 {
				window = DefaultRateWindow
			}
			r.Use(httprate.LimitByIP(srvCfg.RateLimit, window))
		}
		r.Post("/rank", h.rank)
		r.Get("/personas", h.personas)
	})
	return r
}

// Serve listens until ctx is canceled, then shuts down gracefully.
func Serve(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, srvCfg ServerConfig) error {
	srv := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           NewRouter(cfg, mgr, srvCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srvCfg.Addr).Msg("HTTP API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logging.Info().Msg("HTTP API stopped")
		return nil
	}
}

// requestMetrics counts requests by route pattern and status code.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}
