// Package handlers exposes the odds service over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/skyventures840/skybet/internal/service"
	"github.com/skyventures840/skybet/pkg/contracts"
)

const maxBodyBytes = 1 << 20

// OddsService is the subset of the service used by the handlers
type OddsService interface {
	PrematchLiveOdds(ctx context.Context, req service.OddsRequest) (*service.Result, error)
	Scores(ctx context.Context, req service.ScoresRequest) (*service.Result, error)
	Sports(ctx context.Context, apiKey string) (*service.Result, error)
	MergedOdds(ctx context.Context, sport, apiKey string) (*service.Result, error)
}

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// Handler contains dependencies for HTTP handlers
type Handler struct {
	svc    OddsService
	checks map[string]HealthCheck
	logger zerolog.Logger
}

// NewHandler creates a new handler. checks may be nil.
func NewHandler(svc OddsService, checks map[string]HealthCheck, logger zerolog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		checks: checks,
		logger: logger.With().Str("component", "handlers").Logger(),
	}
}

// Health returns the service status and the state of each dependency
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn().Err(err).Str("dependency", name).Msg("health check failed")
			deps[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "healthy"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}

	h.respondJSON(w, status, map[string]interface{}{
		"status":       state,
		"timestamp":    time.Now().UTC(),
		"service":      "skybet",
		"dependencies": deps,
	})
}

// PrematchLiveOdds serves odds for one selection
// POST /prematch_live_odds
func (h *Handler) PrematchLiveOdds(w http.ResponseWriter, r *http.Request) {
	var body OddsRequestBody
	if !h.decode(w, r, &body) {
		return
	}

	res, err := h.svc.PrematchLiveOdds(r.Context(), service.OddsRequest{
		Sport:      body.Sport,
		Regions:    body.Regions,
		Markets:    body.Markets,
		Bookmakers: body.Bookmakers,
		APIKey:     body.APIKey,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondResult(w, res)
}

// Scores serves live and recent scores
// POST /scores
func (h *Handler) Scores(w http.ResponseWriter, r *http.Request) {
	var body ScoresRequestBody
	if !h.decode(w, r, &body) {
		return
	}

	res, err := h.svc.Scores(r.Context(), service.ScoresRequest{
		Sport:    body.Sport,
		DaysFrom: body.DaysFrom,
		APIKey:   body.APIKey,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondResult(w, res)
}

// Sports lists the provider's sports
// GET /sports?api_key=
func (h *Handler) Sports(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Sports(r.Context(), r.URL.Query().Get("api_key"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondResult(w, res)
}

// MergedOdds serves merged odds across every market of a sport
// POST /merged_odds
func (h *Handler) MergedOdds(w http.ResponseWriter, r *http.Request) {
	var body MergedRequestBody
	if !h.decode(w, r, &body) {
		return
	}

	res, err := h.svc.MergedOdds(r.Context(), body.Sport, body.APIKey)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	h.respondResult(w, res)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) respondResult(w http.ResponseWriter, res *service.Result) {
	cache := "MISS"
	if res.Cached {
		cache = "HIT"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", cache)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		h.logger.Error().Err(err).Msg("error writing response")
	}
}

// respondServiceError maps service and provider errors onto HTTP statuses
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)

	event := h.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")

	h.respondError(w, status, message)
}

func classify(err error) (int, string) {
	var upstream *contracts.UpstreamError

	switch {
	case errors.Is(err, contracts.ErrRateLimited):
		return http.StatusTooManyRequests, "upstream rate limit exceeded"
	case errors.As(err, &upstream) && errors.Is(upstream.Kind, contracts.ErrBadRequest):
		return http.StatusBadRequest, "invalid sport/market/bookmaker combination"
	case errors.As(err, &upstream):
		status := upstream.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		message := upstream.Body
		if message == "" {
			message = http.StatusText(status)
		}
		return status, message
	case errors.Is(err, contracts.ErrBadRequest):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), contracts.ErrBadRequest.Error()+": ")
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream request timed out"
	default:
		return http.StatusBadGateway, "upstream request failed"
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("error encoding response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
