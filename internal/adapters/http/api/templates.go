package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/umwero/internal/domain/stroke"
	"github.com/okian/umwero/pkg/logger"
)

// TemplatesHandler serves the template catalog and practice sheets.
type TemplatesHandler struct {
	deps   TemplateDependencies
	logger logger.Logger
}

// NewTemplatesHandler creates a new templates handler.
func NewTemplatesHandler(deps TemplateDependencies, log logger.Logger) *TemplatesHandler {
	return &TemplatesHandler{deps: deps, logger: log}
}

type templatesResponse struct {
	Templates []stroke.CharacterTemplate `json:"templates"`
}

// HandleList handles GET /templates requests.
func (h *TemplatesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_templates"
	tpls, err := h.deps.Templates(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if tpls == nil {
		tpls = []stroke.CharacterTemplate{}
	}
	respond(w, r, h.logger, templatesResponse{Templates: tpls})
}

// HandleGet handles GET /templates/{id} requests.
func (h *TemplatesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_template"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	tpl, err := h.deps.Template(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	respond(w, r, h.logger, tpl)
}

// HandleSheet handles GET /templates/{id}/sheet.pdf requests. The optional
// learner query parameter is printed on the sheet.
func (h *TemplatesHandler) HandleSheet(w http.ResponseWriter, r *http.Request) {
	const op = "api.template_sheet"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	// Render into memory so failures can still produce a JSON error.
	var buf bytes.Buffer
	if err := h.deps.Sheet(r.Context(), id, r.URL.Query().Get("learner"), &buf); err != nil {
		err = Wrap(op, err)
		if status, _ := statusFor(err); status >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "sheet rendering failed", logger.String("template_id", id), logger.Error(err))
		}
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", id+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
