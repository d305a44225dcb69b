// Package api exposes the engine command interface over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/wordgraph/internal/adapters/repository"
	"github.com/okian/wordgraph/internal/adapters/similarity"
	"github.com/okian/wordgraph/internal/app"
	"github.com/okian/wordgraph/internal/domain/graph"
	"github.com/okian/wordgraph/internal/domain/interaction"
	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/internal/domain/reconcile"
	"github.com/okian/wordgraph/pkg/logger"
)

const defaultMaxHistoryLimit = 100

// Engine is the command interface the handlers drive.
type Engine interface {
	StatsProvider

	SetWord(ctx context.Context, word string) error
	SubmitGuess(ctx context.Context, word string) (app.Outcome, error)
	RequestHint(ctx context.Context) (similarity.Hint, error)
	Rescore(ctx context.Context, modelName string) (app.Outcome, error)
	Reset(ctx context.Context) error
	ApplySnapshot(ctx context.Context, snap model.Snapshot) (reconcile.Diff, error)

	DragStart(ctx context.Context, id string) error
	DragMove(ctx context.Context, id string, p model.Vec) error
	DragEnd(ctx context.Context, id string) error
	Zoom(ctx context.Context, factor float64, anchor model.Vec) error
	ZoomTo(ctx context.Context, k float64, anchor model.Vec) error
	Pan(ctx context.Context, dx, dy float64) error
	ResetView(ctx context.Context) error
	Resize(ctx context.Context, width, height float64) error

	View(ctx context.Context) (app.View, error)
	Graph(ctx context.Context) (graph.View, error)
	History(ctx context.Context, n int) ([]model.Entry, error)
}

// Server wires HTTP routes for the engine API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	roundHandler   *RoundHandler
	viewHandler    *ViewHandler
	historyHandler *HistoryHandler

	streamPath string
	stream     http.Handler
	logger     logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMaxHistoryLimit caps the limit accepted by GET /history.
func WithMaxHistoryLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.historyHandler.maxLimit = n
		}
	}
}

// WithStream mounts the frame stream (the WebSocket renderer) at path.
func WithStream(path string, h http.Handler) Option {
	return func(s *Server) {
		if path != "" && h != nil {
			s.streamPath, s.stream = path, h
			if c, ok := h.(ClientCounter); ok {
				s.statsHandler.stream = c
			}
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(engine),
		roundHandler:   NewRoundHandler(engine),
		viewHandler:    NewViewHandler(engine),
		historyHandler: NewHistoryHandler(engine, defaultMaxHistoryLimit),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.GetOrNop().Named("api")
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", instrument("healthz", s.healthHandler.HandleHealth))
	mux.HandleFunc("/stats", instrument("stats", s.statsHandler.HandleStats))
	mux.HandleFunc("/word", instrument("word", s.roundHandler.HandleSetWord))
	mux.HandleFunc("/guess", instrument("guess", s.roundHandler.HandleGuess))
	mux.HandleFunc("/hint", instrument("hint", s.roundHandler.HandleHint))
	mux.HandleFunc("/rescore", instrument("rescore", s.roundHandler.HandleRescore))
	mux.HandleFunc("/reset", instrument("reset", s.roundHandler.HandleReset))
	mux.HandleFunc("/snapshot", instrument("snapshot", s.roundHandler.HandleSnapshot))
	mux.HandleFunc("/drag", instrument("drag", s.viewHandler.HandleDrag))
	mux.HandleFunc("/view", instrument("view", s.viewHandler.HandleView))
	mux.HandleFunc("/graph", instrument("graph", s.viewHandler.HandleGraph))
	mux.HandleFunc("/history", instrument("history", s.historyHandler.HandleGetHistory))
	if s.stream != nil {
		// Not wrapped: the upgrade hijacks the connection.
		mux.Handle(s.streamPath, s.stream)
	}
	s.logger.Debug(ctx, "routes registered", logger.String("stream", s.streamPath))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	noteErrorCode(w, code)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeEngineError maps engine and domain sentinels onto status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrLimit), errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "limit_exceeded", err)
	case errors.Is(err, app.ErrInvalidWord), errors.Is(err, app.ErrInvalidViewport),
		errors.Is(err, interaction.ErrInvalidScale), errors.Is(err, interaction.ErrNonFinite),
		errors.Is(err, similarity.ErrUnknownModel):
		writeError(w, http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, app.ErrNoRound):
		writeError(w, http.StatusBadRequest, "no_round", err)
	case errors.Is(err, app.ErrAlreadyGuessed):
		writeError(w, http.StatusBadRequest, "already_guessed", err)
	case errors.Is(err, interaction.ErrUnknownNode):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, interaction.ErrNotDragging), errors.Is(err, app.ErrStaleResponse):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, app.ErrEngineBusy):
		writeError(w, http.StatusTooManyRequests, "backpressure", errors.Join(ErrBackpressure, err))
	case errors.Is(err, app.ErrCollaboratorUnavailable):
		writeError(w, http.StatusBadGateway, "collaborator_unavailable", err)
	case errors.Is(err, app.ErrEngineStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
