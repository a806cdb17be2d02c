package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/amiwrpremium/xtls-crud/internal/support/i18n"
	"github.com/amiwrpremium/xtls-crud/internal/units"
)

// UnitsHandler exposes the size and time parsers.
type UnitsHandler struct {
	responder
}

// NewUnitsHandler builds the units endpoints.
func NewUnitsHandler(manager *i18n.Manager, logger *slog.Logger) *UnitsHandler {
	return &UnitsHandler{responder: newResponder(manager, logger)}
}

type parseRequest struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// QuantityView is the parsed form of a unit string.
type QuantityView struct {
	Kind      string `json:"kind"`
	Input     string `json:"input,omitempty"`
	Magnitude int64  `json:"magnitude"`
	Unit      string `json:"unit"`
	Symbol    string `json:"symbol"`
	Canonical string `json:"canonical"`
	Human     string `json:"human"`
}

func quantityView(q units.Quantity, input string) QuantityView {
	return QuantityView{
		Kind:      q.Kind().String(),
		Input:     input,
		Magnitude: q.Magnitude(),
		Unit:      q.Name(),
		Symbol:    q.Symbol(),
		Canonical: q.String(),
		Human:     q.Human(),
	}
}

// Parse POST /units/parse {"kind": "size"|"time", "value": "100GB"}
func (h *UnitsHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !h.decodeOrFail(w, r, &req) {
		return
	}
	var parse func(string) (units.Quantity, error)
	switch strings.ToLower(strings.TrimSpace(req.Kind)) {
	case "", "size":
		parse = units.ParseSize
	case "time", "duration":
		parse = units.ParseDuration
	default:
		h.invalidParam(w, r, "kind")
		return
	}
	q, err := parse(req.Value)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quantityView(q, req.Value))
}

// List GET /units/{kind} returns the registry table.
func (h *UnitsHandler) List(w http.ResponseWriter, r *http.Request) {
	var reg *units.Registry
	switch chi.URLParam(r, "kind") {
	case "size":
		reg = units.Sizes
	case "time":
		reg = units.Times
	default:
		h.invalidParam(w, r, "kind")
		return
	}
	table := reg.Units()
	out := make([]QuantityView, 0, len(table))
	for _, unit := range table {
		out = append(out, quantityView(unit, ""))
	}
	respondJSON(w, http.StatusOK, out)
}
