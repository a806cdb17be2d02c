package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amiwrpremium/xtls-crud/internal/service"
	"github.com/amiwrpremium/xtls-crud/internal/support/i18n"
)

// SystemHandler serves the public home and locale endpoints.
type SystemHandler struct {
	system service.SystemService
	responder
}

// NewSystemHandler wires the home endpoint.
func NewSystemHandler(system service.SystemService, manager *i18n.Manager, logger *slog.Logger) *SystemHandler {
	return &SystemHandler{system: system, responder: newResponder(manager, logger)}
}

// Home GET /api/v1/
func (h *SystemHandler) Home(w http.ResponseWriter, r *http.Request) {
	info, err := h.system.Home(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// Languages GET /api/v1/i18n
func (h *SystemHandler) Languages(w http.ResponseWriter, r *http.Request) {
	if h.i18n == nil {
		h.fail(w, r, http.StatusNotFound, "error.not_found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"default":   h.i18n.DefaultLanguage(),
		"languages": h.i18n.GetSupportedLanguages(),
	})
}

// Translations GET /api/v1/i18n/{lang}
func (h *SystemHandler) Translations(w http.ResponseWriter, r *http.Request) {
	if h.i18n == nil {
		h.fail(w, r, http.StatusNotFound, "error.not_found")
		return
	}
	table := h.i18n.GetTranslations(chi.URLParam(r, "lang"))
	if table == nil {
		h.fail(w, r, http.StatusNotFound, "error.not_found")
		return
	}
	respondJSON(w, http.StatusOK, table)
}
