package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/huangsam/placewise/core"
	"github.com/huangsam/placewise/internal/contract"
	"github.com/huangsam/placewise/internal/logging"
)

type handler struct {
	cfg *contract.Config
	mgr contract.CacheManager
}

// apiError is the body of every non-2xx response.
type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (h *handler) personas(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.cfg.Personas.Profiles())
}

func (h *handler) rank(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg.Clone()
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	req, err := core.DecodeRequest(body, core.DefaultRequest(cfg))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", err)
			return
		}
		respondError(w, r, http.StatusBadRequest, "invalid_input", err)
		return
	}
	if r.URL.Query().Get("explain") == "true" {
		cfg.Explain = true
	}

	result, err := core.Rank(r.Context(), cfg, h.mgr, req)
	if err != nil {
		if core.IsInputError(err) {
			respondError(w, r, http.StatusBadRequest, "invalid_input", err)
			return
		}
		respondError(w, r, http.StatusInternalServerError, "ranking_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

// respondError logs server-side failures and sends the error body.
func respondError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	reqID := middleware.GetReqID(r.Context())
	if status >= http.StatusInternalServerError {
		logging.Error().Err(err).Str("request_id", reqID).Str("code", code).Msg("API error")
	} else {
		logging.Debug().Err(err).Str("request_id", reqID).Str("code", code).Msg("rejected request")
	}
	respondJSON(w, status, map[string]apiError{
		"error": {Code: code, Message: err.Error(), RequestID: reqID},
	})
}
