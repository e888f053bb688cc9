package api

import (
	"net/http"

	service "github.com/okian/umwero/internal/app"
	"github.com/okian/umwero/internal/domain/model"
	"github.com/okian/umwero/pkg/logger"
)

// AttemptsHandler grades single and batched attempts.
type AttemptsHandler struct {
	deps   AttemptDependencies
	logger logger.Logger
}

// NewAttemptsHandler creates a new attempts handler.
func NewAttemptsHandler(deps AttemptDependencies, log logger.Logger) *AttemptsHandler {
	return &AttemptsHandler{deps: deps, logger: log}
}

type batchResponse struct {
	Outcomes []service.Outcome `json:"outcomes"`
}

// HandlePostAttempt handles POST /attempts requests.
func (h *AttemptsHandler) HandlePostAttempt(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_attempt"
	var req attemptRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.Validate(r.Context(), req.attempt())
	if err != nil {
		err = Wrap(op, err)
		if status, _ := statusFor(err); status >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "grading failed", logger.Error(err))
		}
		writeFailure(w, err)
		return
	}
	respond(w, r, h.logger, out)
}

// HandlePostBatch handles POST /attempts/batch requests.
func (h *AttemptsHandler) HandlePostBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_attempt_batch"
	var req batchRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	attempts := make([]model.Attempt, len(req.Attempts))
	for i, a := range req.Attempts {
		attempts[i] = a.attempt()
	}
	outcomes, err := h.deps.ValidateBatch(r.Context(), attempts)
	if err != nil {
		err = Wrap(op, err)
		if status, _ := statusFor(err); status >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "batch grading failed", logger.Error(err), logger.Int("size", len(attempts)))
		}
		writeFailure(w, err)
		return
	}
	respond(w, r, h.logger, batchResponse{Outcomes: outcomes})
}
