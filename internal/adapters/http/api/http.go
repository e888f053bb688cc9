// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/umwero/internal/app"
	"github.com/okian/umwero/internal/domain/model"
	"github.com/okian/umwero/internal/domain/stroke"
	"github.com/okian/umwero/internal/domain/types"
	"github.com/okian/umwero/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	AttemptDependencies
	NormalizeDependencies
	TemplateDependencies
	LearnerDependencies
	LeaderboardDependencies
	StatsProvider
}

// AttemptDependencies grades submitted attempts.
type AttemptDependencies interface {
	Validate(ctx context.Context, a model.Attempt) (service.Outcome, error)
	ValidateBatch(ctx context.Context, attempts []model.Attempt) ([]service.Outcome, error)
}

// NormalizeDependencies exposes path normalization.
type NormalizeDependencies interface {
	Normalize(ctx context.Context, points []stroke.Point) (stroke.NormalizedPath, error)
}

// TemplateDependencies reads the template catalog.
type TemplateDependencies interface {
	Templates(ctx context.Context) ([]stroke.CharacterTemplate, error)
	Template(ctx context.Context, id string) (stroke.CharacterTemplate, error)
	Sheet(ctx context.Context, templateID, learnerID string, w io.Writer) error
}

// LearnerDependencies reads per-learner state.
type LearnerDependencies interface {
	Progress(ctx context.Context, learnerID string) ([]model.Progress, error)
	History(ctx context.Context, learnerID, templateID string, limit int) ([]model.AttemptRecord, error)
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Limits bounds list sizes accepted from clients.
type Limits struct {
	Leaderboard int
	History     int
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	attemptsHandler    *AttemptsHandler
	normalizeHandler   *NormalizeHandler
	templatesHandler   *TemplatesHandler
	learnersHandler    *LearnersHandler
	leaderboardHandler *LeaderboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, limits Limits, log logger.Logger) *Server {
	if log == nil {
		log = logger.Get()
	}
	log = log.Named("api")
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps, log),
		attemptsHandler:    NewAttemptsHandler(deps, log),
		normalizeHandler:   NewNormalizeHandler(deps, log),
		templatesHandler:   NewTemplatesHandler(deps, log),
		learnersHandler:    NewLearnersHandler(deps, limits.History, log),
		leaderboardHandler: NewLeaderboardHandler(deps, limits.Leaderboard, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /attempts", MetricsMiddleware(s.attemptsHandler.HandlePostAttempt, "attempts"))
	mux.HandleFunc("POST /attempts/batch", MetricsMiddleware(s.attemptsHandler.HandlePostBatch, "attempts_batch"))
	mux.HandleFunc("POST /normalize", MetricsMiddleware(s.normalizeHandler.HandleNormalize, "normalize"))

	mux.HandleFunc("GET /templates", MetricsMiddleware(s.templatesHandler.HandleList, "templates"))
	mux.HandleFunc("GET /templates/{id}", MetricsMiddleware(s.templatesHandler.HandleGet, "template"))
	mux.HandleFunc("GET /templates/{id}/sheet.pdf", MetricsMiddleware(s.templatesHandler.HandleSheet, "template_sheet"))

	mux.HandleFunc("GET /learners/{id}/progress", MetricsMiddleware(s.learnersHandler.HandleProgress, "learner_progress"))
	mux.HandleFunc("GET /learners/{id}/attempts", MetricsMiddleware(s.learnersHandler.HandleHistory, "learner_attempts"))

	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before committing status, so a value that cannot be
// encoded turns into a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed", WrapKind("api.encode", ErrInternal, err))
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(append(body, '\n'))
	return err
}

// respond writes v and logs when it could not be delivered.
func respond(w http.ResponseWriter, r *http.Request, log logger.Logger, v any) {
	if err := writeJSON(w, http.StatusOK, v); err != nil {
		log.Error(r.Context(), "response not delivered", logger.String("path", r.URL.Path), logger.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	body, _ := json.Marshal(errorResponse{Code: code, Message: msg})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// writeFailure picks the status from the error kind.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
