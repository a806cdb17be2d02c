// 文件路径: internal/api/handler/inbound.go
// 模块说明: 入站配置的增删改查、简易创建、预览构建与启停接口。
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/amiwrpremium/xtls-crud/internal/service"
	"github.com/amiwrpremium/xtls-crud/internal/support/i18n"
)

// InboundHandler serves /api/v1/inbounds and /api/v1/builders.
type InboundHandler struct {
	inbounds service.InboundService
	responder
}

// NewInboundHandler wires the inbound endpoints.
func NewInboundHandler(inbounds service.InboundService, manager *i18n.Manager, logger *slog.Logger) *InboundHandler {
	return &InboundHandler{inbounds: inbounds, responder: newResponder(manager, logger)}
}

type trafficRequest struct {
	Up   any `json:"up"`
	Down any `json:"down"`
}

// List GET /inbounds?user_id=&enable=&port=&protocol=&tag=&remark=&skip=&limit=
func (h *InboundHandler) List(w http.ResponseWriter, r *http.Request) {
	input := service.InboundListInput{
		Protocol: strings.TrimSpace(r.URL.Query().Get("protocol")),
		Tag:      strings.TrimSpace(r.URL.Query().Get("tag")),
		Remark:   strings.TrimSpace(r.URL.Query().Get("remark")),
	}
	var ok bool
	if input.UserID, ok = queryInt64(r, "user_id"); !ok {
		h.invalidParam(w, r, "user_id")
		return
	}
	if input.Enable, ok = queryBool(r, "enable"); !ok {
		h.invalidParam(w, r, "enable")
		return
	}
	if input.Port, ok = queryInt(r, "port"); !ok {
		h.invalidParam(w, r, "port")
		return
	}
	skip, ok := queryInt(r, "skip")
	if !ok {
		h.invalidParam(w, r, "skip")
		return
	}
	limit, ok := queryInt(r, "limit")
	if !ok {
		h.invalidParam(w, r, "limit")
		return
	}
	input.Skip = valueOf(skip)
	input.Limit = valueOf(limit)

	list, err := h.inbounds.List(r.Context(), input)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// Create POST /inbounds with every field of the full builder.
func (h *InboundHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.InboundInput
	if !h.decodeOrFail(w, r, &input) {
		return
	}
	view, err := h.inbounds.Create(r.Context(), input)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// CreateEasy POST /inbounds/easy builds from defaults and persists.
func (h *InboundHandler) CreateEasy(w http.ResponseWriter, r *http.Request) {
	var input service.EasyInboundInput
	if !h.decodeOrFail(w, r, &input) {
		return
	}
	view, err := h.inbounds.CreateEasy(r.Context(), input)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

// Preview POST /builders/easy returns the built config without saving it.
func (h *InboundHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var input service.EasyInboundInput
	if !h.decodeOrFail(w, r, &input) {
		return
	}
	view, err := h.inbounds.Preview(r.Context(), input)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Get GET /inbounds/{id}
func (h *InboundHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		h.invalidParam(w, r, "id")
		return
	}
	view, err := h.inbounds.Get(r.Context(), id)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// GetByTag GET /inbounds/tag/{tag}
func (h *InboundHandler) GetByTag(w http.ResponseWriter, r *http.Request) {
	tag := strings.TrimSpace(chi.URLParam(r, "tag"))
	if tag == "" {
		h.invalidParam(w, r, "tag")
		return
	}
	view, err := h.inbounds.GetByTag(r.Context(), tag)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// GetByPort GET /inbounds/port/{port}
func (h *InboundHandler) GetByPort(w http.ResponseWriter, r *http.Request) {
	port, err := strconv.Atoi(chi.URLParam(r, "port"))
	if err != nil || port <= 0 {
		h.invalidParam(w, r, "port")
		return
	}
	view, err := h.inbounds.GetByPort(r.Context(), port)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Update PUT /inbounds/{id} replaces every field.
func (h *InboundHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		h.invalidParam(w, r, "id")
		return
	}
	var input service.InboundInput
	if !h.decodeOrFail(w, r, &input) {
		return
	}
	view, err := h.inbounds.Update(r.Context(), id, input)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Delete DELETE /inbounds/{id}
func (h *InboundHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		h.invalidParam(w, r, "id")
		return
	}
	if err := h.inbounds.Delete(r.Context(), id); err != nil {
		h.fault(w, r, err)
		return
	}
	h.message(w, r, http.StatusOK, "message.inbound_deleted")
}

// Enable POST /inbounds/{id}/enable
func (h *InboundHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setEnable(w, r, true)
}

// Disable POST /inbounds/{id}/disable
func (h *InboundHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setEnable(w, r, false)
}

func (h *InboundHandler) setEnable(w http.ResponseWriter, r *http.Request, enable bool) {
	id, ok := pathInt64(r, "id")
	if !ok {
		h.invalidParam(w, r, "id")
		return
	}
	view, err := h.inbounds.SetEnable(r.Context(), id, enable)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Traffic POST /inbounds/{id}/traffic adds {up, down} to the counters.
// Values accept byte counts or unit strings.
func (h *InboundHandler) Traffic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(r, "id")
	if !ok {
		h.invalidParam(w, r, "id")
		return
	}
	var req trafficRequest
	if !h.decodeOrFail(w, r, &req) {
		return
	}
	view, err := h.inbounds.AddTraffic(r.Context(), id, req.Up, req.Down)
	if err != nil {
		h.fault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *InboundHandler) fault(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrNotFound) {
		h.fail(w, r, http.StatusNotFound, "error.inbound_not_found")
		return
	}
	h.handleError(w, r, err)
}

func valueOf[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
