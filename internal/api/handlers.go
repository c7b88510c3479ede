package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/loglens/loglens/internal/alert"
	"github.com/loglens/loglens/internal/ingest"
	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/store"
	"github.com/loglens/loglens/pkg/types"
)

type handlers struct {
	svc    *ingest.Service
	store  *store.Store
	logger *logging.Logger
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]string{"error": msg})
}

func (h *handlers) ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "reading request body failed")
		return
	}

	res, err := h.svc.Ingest(r.Context(), string(body), r.URL.Query().Get("source"))
	switch {
	case errors.Is(err, ingest.ErrEmptyPayload):
		respondError(w, http.StatusBadRequest, "empty payload")
		return
	case errors.Is(err, ingest.ErrNoRecords):
		respondError(w, http.StatusBadRequest, "no log records recognized")
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("ingest failed")
		respondError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":               "success",
		"ingested":             res.Ingested,
		"formats_detected":     res.Formats,
		"metrics_extracted":    res.Metrics,
		"categories_extracted": res.Categories,
	})
}

func (h *handlers) logs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	entries, err := h.store.ListEntries(r.Context(), store.EntryFilter{
		Source: q.Get("source"),
		Level:  q.Get("level"),
		Limit:  limit,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("listing entries failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"logs": entries, "count": len(entries)})
}

func (h *handlers) metricSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.SeriesFilter{Source: q.Get("source")}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		f.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		f.To = t
	}

	series, err := h.store.MetricSeries(r.Context(), f)
	if err != nil {
		h.logger.Error().Err(err).Msg("metric series query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"metrics": series})
}

func (h *handlers) categories(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CategoryCounts(r.Context(), r.URL.Query().Get("source"))
	if err != nil {
		h.logger.Error().Err(err).Msg("category query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"categories": counts})
}

func (h *handlers) sources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.Sources(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("sources query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if sources == nil {
		sources = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("stats query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *handlers) alerts(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.ListRules(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("rules query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	history, err := h.store.ListHistory(r.Context(), 50)
	if err != nil {
		h.logger.Error().Err(err).Msg("history query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if rules == nil {
		rules = []types.AlertRule{}
	}
	if history == nil {
		history = []types.TriggerEvent{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"rules": rules, "history": history})
}

type ruleRequest struct {
	MetricName    string  `json:"metric_name"`
	Condition     string  `json:"condition"`
	Threshold     float64 `json:"threshold"`
	WindowSeconds int     `json:"window_seconds"`
	WebhookURL    string  `json:"webhook_url"`
	Email         string  `json:"email"`
}

func (h *handlers) createRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.MetricName == "" {
		respondError(w, http.StatusBadRequest, "metric_name is required")
		return
	}
	if !alert.ValidCondition(req.Condition) {
		respondError(w, http.StatusBadRequest, "condition must be one of gt, lt, eq")
		return
	}
	if req.WindowSeconds == 0 {
		req.WindowSeconds = 60
	}
	if req.WindowSeconds < 5 {
		req.WindowSeconds = 5
	}

	id, err := h.store.CreateRule(r.Context(), types.AlertRule{
		MetricName:    req.MetricName,
		Condition:     req.Condition,
		Threshold:     req.Threshold,
		WindowSeconds: req.WindowSeconds,
		WebhookURL:    req.WebhookURL,
		Email:         req.Email,
		Enabled:       true,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("creating rule failed")
		respondError(w, http.StatusInternalServerError, "creating rule failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"status": "created", "id": id})
}

func (h *handlers) deleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule id")
		return
	}
	deleted, err := h.store.DeleteRule(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Msg("deleting rule failed")
		respondError(w, http.StatusInternalServerError, "deleting rule failed")
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "rule not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *handlers) updateRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule id")
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		respondError(w, http.StatusBadRequest, "body must set enabled")
		return
	}
	found, err := h.store.SetRuleEnabled(r.Context(), id, *req.Enabled)
	if err != nil {
		h.logger.Error().Err(err).Msg("updating rule failed")
		respondError(w, http.StatusInternalServerError, "updating rule failed")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "rule not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "updated", "enabled": *req.Enabled})
}
