package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/umwero/internal/domain/model"
	"github.com/okian/umwero/pkg/logger"
)

// LearnersHandler serves per-learner progress and history.
type LearnersHandler struct {
	deps       LearnerDependencies
	maxHistory int
	logger     logger.Logger
}

// NewLearnersHandler creates a new learners handler. maxHistory caps the
// limit query parameter of the history route.
func NewLearnersHandler(deps LearnerDependencies, maxHistory int, log logger.Logger) *LearnersHandler {
	return &LearnersHandler{deps: deps, maxHistory: maxHistory, logger: log}
}

type progressResponse struct {
	LearnerID string           `json:"learner_id"`
	Progress  []model.Progress `json:"progress"`
}

type historyResponse struct {
	LearnerID string                `json:"learner_id"`
	Attempts  []model.AttemptRecord `json:"attempts"`
}

// HandleProgress handles GET /learners/{id}/progress requests.
func (h *LearnersHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	const op = "api.learner_progress"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	progress, err := h.deps.Progress(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	respond(w, r, h.logger, progressResponse{LearnerID: id, Progress: progress})
}

// HandleHistory handles GET /learners/{id}/attempts?template=&limit= requests.
// A missing limit lets the service apply its default.
func (h *LearnersHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.learner_attempts"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if h.maxHistory > 0 && n > h.maxHistory {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	records, err := h.deps.History(r.Context(), id, strings.TrimSpace(q.Get("template")), limit)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if records == nil {
		records = []model.AttemptRecord{}
	}
	respond(w, r, h.logger, historyResponse{LearnerID: id, Attempts: records})
}
