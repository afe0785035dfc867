package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/gosight/gazetrace/internal/analysis"
	"github.com/gosight/gazetrace/internal/events"
	"github.com/gosight/gazetrace/internal/gaze"
	"github.com/gosight/gazetrace/internal/source"
	"github.com/gosight/gazetrace/internal/trial"
)

// TrialSource supplies recorded trials
type TrialSource interface {
	Trials(ctx context.Context) ([]trial.Meta, error)
	Meta(ctx context.Context, id string) (trial.MetaExt, error)
	Events(ctx context.Context, id string) ([]events.Record, error)
	Fixations(ctx context.Context, id string) ([]gaze.RawFixation, error)
	SaccadeFixations(ctx context.Context, id string) ([]gaze.RawFixation, error)
	Stats(ctx context.Context, id string) (json.RawMessage, error)
	ChunkStats(ctx context.Context, id string, startMs, endMs int64) (json.RawMessage, error)
	Tests(ctx context.Context) (json.RawMessage, error)
}

// ProgressSource reports trials still being ingested
type ProgressSource interface {
	Progress(ctx context.Context, trialID string) (*trial.Progress, error)
}

type Handler struct {
	source   TrialSource
	progress ProgressSource
	opts     analysis.Options
}

func NewHandler(src TrialSource, progress ProgressSource, opts analysis.Options) *Handler {
	return &Handler{source: src, progress: progress, opts: opts}
}

// Router builds the HTTP routes
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware)

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/tests", h.ListTests)

	r.Route("/trials", func(r chi.Router) {
		r.Get("/", h.ListTrials)
		r.Get("/{id}/analysis", h.TrialAnalysis)
		r.Get("/{id}/saccades", h.TrialSaccades)
		r.Get("/{id}/stats", h.TrialStats)
		r.Get("/{id}/stats/{start}-{end}", h.TrialChunkStats)
		r.Get("/{id}/progress", h.TrialProgress)
	})

	return r
}

func (h *Handler) ListTrials(w http.ResponseWriter, r *http.Request) {
	list, err := h.source.Trials(r.Context())
	if err != nil {
		writeSourceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) ListTests(w http.ResponseWriter, r *http.Request) {
	tests, err := h.source.Tests(r.Context())
	if err != nil {
		writeSourceError(w, err)
		return
	}
	writeRaw(w, tests)
}

func (h *Handler) TrialStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.source.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeSourceError(w, err)
		return
	}
	writeRaw(w, stats)
}

// TrialChunkStats serves statistics of the interval between two offsets, in
// milliseconds from the trial start.
func (h *Handler) TrialChunkStats(w http.ResponseWriter, r *http.Request) {
	start, errStart := strconv.ParseInt(chi.URLParam(r, "start"), 10, 64)
	end, errEnd := strconv.ParseInt(chi.URLParam(r, "end"), 10, 64)
	if errStart != nil || errEnd != nil || end < start {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "chunk must be <start>-<end> in milliseconds"})
		return
	}

	stats, err := h.source.ChunkStats(r.Context(), chi.URLParam(r, "id"), start, end)
	if err != nil {
		writeSourceError(w, err)
		return
	}
	writeRaw(w, stats)
}

func (h *Handler) TrialAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	meta, err := h.source.Meta(ctx, id)
	if err != nil {
		writeSourceError(w, err)
		return
	}
	records, err := h.source.Events(ctx, id)
	if err != nil {
		writeSourceError(w, err)
		return
	}
	fixations, err := h.source.Fixations(ctx, id)
	if err != nil {
		writeSourceError(w, err)
		return
	}

	res := analysis.Analyze(analysis.Input{
		Meta:      meta,
		Events:    records,
		Fixations: fixations,
	}, h.opts)

	if len(res.Warnings) > 0 {
		log.Warn().Str("trial_id", id).Strs("warnings", res.Warnings).Msg("Trial analysed with warnings")
	}
	writeJSON(w, http.StatusOK, res)
}

// TrialSaccades serves the saccade export of a trial, which the tracker
// records separately from the fixation export.
func (h *Handler) TrialSaccades(w http.ResponseWriter, r *http.Request) {
	fixations, err := h.source.SaccadeFixations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeSourceError(w, err)
		return
	}
	saccades := gaze.Saccades(fixations)
	writeJSON(w, http.StatusOK, struct {
		Saccades         []gaze.Saccade `json:"saccades"`
		AverageAmplitude float64        `json:"average_amplitude"`
	}{saccades, gaze.AverageAmplitude(saccades)})
}

func (h *Handler) TrialProgress(w http.ResponseWriter, r *http.Request) {
	if h.progress == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "progress tracking is disabled"})
		return
	}

	id := chi.URLParam(r, "id")
	p, err := h.progress.Progress(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("trial_id", id).Msg("Failed to read trial progress")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "trial is not being ingested"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeSourceError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway

	var statusErr *source.StatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound:
		status = http.StatusNotFound
	case errors.Is(err, source.ErrEmptyTrialID):
		status = http.StatusBadRequest
	}

	log.Error().Err(err).Int("status", status).Msg("Data service request failed")
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeRaw(w http.ResponseWriter, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
