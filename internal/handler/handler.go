package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medmind/internal/advice"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/medmind/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/resilience"
)

const maxAdviceBody = 64 << 10

type Handler struct {
	svc           *service.Service
	adviceTimeout time.Duration
	adviceLimiter middleware.Limiter
	logger        *slog.Logger
}

func New(svc *service.Service, adviceTimeout time.Duration) *Handler {
	return &Handler{
		svc:           svc,
		adviceTimeout: adviceTimeout,
		logger:        slog.Default().With("component", "api-handler"),
	}
}

// LimitAdvice rate-limits the advice endpoint per client.
func (h *Handler) LimitAdvice(l middleware.Limiter) *Handler {
	h.adviceLimiter = l
	return h
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	var adviceHandler http.Handler = http.HandlerFunc(h.Advice)
	if h.adviceLimiter != nil {
		adviceHandler = middleware.RateLimit(h.adviceLimiter, time.Minute)(adviceHandler)
	}

	mux.HandleFunc("GET /api/v1/match", h.Match)
	mux.HandleFunc("GET /api/v1/diseases", h.ListDiseases)
	mux.HandleFunc("GET /api/v1/diseases/{name}", h.GetDisease)
	mux.Handle("POST /api/v1/advice", adviceHandler)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	symptoms := r.URL.Query().Get("symptoms")
	if strings.TrimSpace(symptoms) == "" {
		h.writeAppError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'symptoms' is required"))
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeAppError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer, got %q", limitStr))
			return
		}
		limit = parsed
	}

	report, err := h.svc.Check(r.Context(), analytics.SurfaceHTTP, symptoms, limit)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) ListDiseases(w http.ResponseWriter, r *http.Request) {
	names := h.svc.Names()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"diseases": names,
		"total":    len(names),
	})
}

func (h *Handler) GetDisease(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.Lookup(r.PathValue("name"))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

type adviceRequest struct {
	Symptoms string        `json:"symptoms"`
	History  []advice.Turn `json:"history,omitempty"`
}

type adviceResponse struct {
	Response string `json:"response"`
}

// Advice always answers 200 once the body parses; upstream failures are
// reported inside the response text.
func (h *Handler) Advice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAdviceBody)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		h.writeAppError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "field 'symptoms' is required"))
		return
	}
	history, err := advice.NormalizeHistory(req.History)
	if err != nil {
		h.writeAppError(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, err.Error()))
		return
	}

	text, err := resilience.WithTimeout(r.Context(), h.adviceTimeout, "advice", func(ctx context.Context) (string, error) {
		return h.svc.Advise(ctx, analytics.SurfaceHTTP, req.Symptoms, history...), nil
	})
	if err != nil {
		logger.FromContext(r.Context()).Warn("advice timed out", "error", err)
		text = advice.Message(err)
	}
	h.writeJSON(w, http.StatusOK, adviceResponse{Response: text})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	c := h.svc.Cache()
	if c == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := c.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	c := h.svc.Cache()
	if c == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := c.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		message = http.StatusText(status)
	}
	h.writeError(w, status, message)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
