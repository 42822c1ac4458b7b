// Package httpserver exposes one assistant session over a JSON HTTP API.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/stupiduntilnot/notesassist/internal/config"
	"github.com/stupiduntilnot/notesassist/internal/dataset"
	"github.com/stupiduntilnot/notesassist/internal/sampler"
	"github.com/stupiduntilnot/notesassist/internal/session"
	"github.com/stupiduntilnot/notesassist/internal/transcript"
)

// Reloader replaces the session's example table from its dataset source.
type Reloader interface {
	Reload(ctx context.Context) (dataset.Result, error)
}

// Handler serves the session API.
type Handler struct {
	sess         *session.Session
	reloader     Reloader
	defaultCount int
}

// NewHandler creates a Handler. reloader may be nil, in which case dataset
// reloads are rejected.
func NewHandler(sess *session.Session, reloader Reloader, defaultCount int) *Handler {
	return &Handler{sess: sess, reloader: reloader, defaultCount: defaultCount}
}

// Router returns the chi router with middleware and all routes registered.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the API under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.handleSession)
		r.Post("/dataset/reload", h.handleReload)
		r.Get("/examples", h.handleGetExamples)
		r.Post("/examples", h.handleSampleExamples)
		r.Post("/messages", h.handleSubmit)
		r.Delete("/messages", h.handleClear)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

type sessionResponse struct {
	ID           string          `json:"id"`
	State        session.State   `json:"state"`
	TableSize    int             `json:"table_size"`
	ExampleCount int             `json:"example_count"`
	Log          []session.Entry `json:"log"`
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	log := h.sess.Log()
	if log == nil {
		log = []session.Entry{}
	}
	JSON(w, http.StatusOK, sessionResponse{
		ID:           h.sess.ID(),
		State:        h.sess.State(),
		TableSize:    h.sess.TableSize(),
		ExampleCount: len(h.sess.Examples()),
		Log:          log,
	})
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		Error(w, http.StatusServiceUnavailable, "no dataset source configured")
		return
	}
	res, err := h.reloader.Reload(r.Context())
	if err != nil {
		slog.Warn("Dataset reload failed", "error", err)
		Error(w, http.StatusBadGateway, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"source":  res.Source,
		"rows":    len(res.Pairs),
		"skipped": res.Skipped,
		"coerced": res.Coerced,
	})
}

type examplesResponse struct {
	Examples   []transcript.Pair `json:"examples"`
	Transcript string            `json:"transcript"`
}

func (h *Handler) handleGetExamples(w http.ResponseWriter, r *http.Request) {
	h.writeExamples(w)
}

func (h *Handler) writeExamples(w http.ResponseWriter) {
	examples := h.sess.Examples()
	if examples == nil {
		examples = []transcript.Pair{}
	}
	JSON(w, http.StatusOK, examplesResponse{Examples: examples, Transcript: h.sess.Transcript()})
}

type sampleRequest struct {
	Count *int `json:"count"`
}

func (h *Handler) handleSampleExamples(w http.ResponseWriter, r *http.Request) {
	var req sampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n := h.defaultCount
	if req.Count != nil {
		if *req.Count < 0 || *req.Count > config.MaxExampleCount {
			Error(w, http.StatusBadRequest, "count must be between 0 and 100")
			return
		}
		n = *req.Count
	}

	if _, err := h.sess.SampleExamples(n); err != nil {
		if errors.Is(err, sampler.ErrEmptyTable) {
			Error(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeExamples(w)
}

type submitRequest struct {
	Input string `json:"input"`
}

type submitResponse struct {
	Reply string `json:"reply"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.sess.Submit(r.Context(), req.Input)
	if err != nil {
		status := statusForSubmitError(err)
		if status >= http.StatusInternalServerError {
			slog.Error("Submission failed", "session_id", h.sess.ID(), "error", err)
		}
		Error(w, status, err.Error())
		return
	}
	JSON(w, http.StatusOK, submitResponse{Reply: reply})
}

func statusForSubmitError(err error) int {
	var malformed *transcript.MalformedTranscriptError
	var generation *session.GenerationServiceError
	switch {
	case errors.Is(err, session.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &malformed):
		return http.StatusUnprocessableEntity
	case errors.As(err, &generation):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	h.sess.ClearLog()
	w.WriteHeader(http.StatusNoContent)
}
