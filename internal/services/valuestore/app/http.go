package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	apperrors "github.com/louisbranch/valuestore/internal/platform/errors"
	"github.com/louisbranch/valuestore/internal/services/valuestore/domain"
	"github.com/louisbranch/valuestore/internal/services/valuestore/storage"
)

const (
	maxRequestBytes     = 1 << 20
	defaultAttemptLimit = 50
	maxAttemptLimit     = 500
)

// AttemptLister lists recorded job attempts, newest first.
type AttemptLister interface {
	ListAttempts(ctx context.Context, limit int) ([]storage.AttemptRecord, error)
}

// HTTPHandler exposes the worker to direct callers. Every request runs in
// standalone mode.
type HTTPHandler struct {
	worker   *Worker
	attempts AttemptLister
	logger   zerolog.Logger
	router   chi.Router
}

// NewHTTPHandler builds the router. attempts may be nil, which disables
// the attempts listing.
func NewHTTPHandler(worker *Worker, attempts AttemptLister, logger zerolog.Logger) *HTTPHandler {
	h := &HTTPHandler{worker: worker, attempts: attempts, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.handleHealth)
	r.Post("/valuestore", h.handleResolve)
	r.Get("/valuestore/{name}", h.handleLookup)
	r.Get("/attempts", h.handleAttempts)
	h.router = r
	return h
}

// ServeHTTP implements http.Handler.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleResolve takes the same variables a workflow job carries and
// always answers 200 with either the values or an error field.
func (h *HTTPHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var vars map[string]any
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(&vars); err != nil {
		writeJSON(w, http.StatusBadRequest, domain.ErrorResult("request body must be a JSON object: "+err.Error()))
		return
	}
	if vars == nil {
		vars = map[string]any{}
	}

	result, err := h.worker.Handle(r.Context(), vars, domain.ModeStandalone)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleLookup resolves a single name and maps failures to HTTP statuses.
func (h *HTTPHandler) handleLookup(w http.ResponseWriter, r *http.Request) {
	table, err := h.worker.resolver.Resolve(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SuccessResult(table))
}

func (h *HTTPHandler) handleAttempts(w http.ResponseWriter, r *http.Request) {
	if h.attempts == nil {
		writeJSON(w, http.StatusNotFound, domain.ErrorResult("attempt storage is not configured"))
		return
	}
	limit := defaultAttemptLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, domain.ErrorResult("limit must be a positive integer"))
			return
		}
		limit = min(parsed, maxAttemptLimit)
	}

	records, err := h.attempts.ListAttempts(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("list attempts")
		writeJSON(w, http.StatusInternalServerError, domain.ErrorResult("list attempts failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attemptViews(records)})
}

func (h *HTTPHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

type attemptView struct {
	JobKey     string    `json:"jobKey"`
	JobType    string    `json:"jobType"`
	ValueStore string    `json:"valueStore,omitempty"`
	Outcome    string    `json:"outcome"`
	Retries    int32     `json:"retries"`
	LastError  string    `json:"lastError,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Job keys exceed the integer range JavaScript clients can hold, so they
// are rendered as strings.
func attemptViews(records []storage.AttemptRecord) []attemptView {
	views := make([]attemptView, 0, len(records))
	for _, record := range records {
		views = append(views, attemptView{
			JobKey:     strconv.FormatInt(record.JobKey, 10),
			JobType:    record.JobType,
			ValueStore: record.ValueStore,
			Outcome:    record.Outcome,
			Retries:    record.Retries,
			LastError:  record.LastError,
			CreatedAt:  record.CreatedAt,
		})
	}
	return views
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.CodeOf(err).HTTPStatus(), domain.ErrorResult(err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
