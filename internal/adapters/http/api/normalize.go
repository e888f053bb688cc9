package api

import (
	"net/http"

	"github.com/okian/umwero/pkg/logger"
)

// NormalizeHandler handles path normalization requests.
type NormalizeHandler struct {
	deps   NormalizeDependencies
	logger logger.Logger
}

// NewNormalizeHandler creates a new normalize handler.
func NewNormalizeHandler(deps NormalizeDependencies, log logger.Logger) *NormalizeHandler {
	return &NormalizeHandler{deps: deps, logger: log}
}

// HandleNormalize handles POST /normalize requests.
func (h *NormalizeHandler) HandleNormalize(w http.ResponseWriter, r *http.Request) {
	const op = "api.normalize"
	var req normalizeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	path, err := h.deps.Normalize(r.Context(), toPoints(req.Points))
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	respond(w, r, h.logger, path)
}
