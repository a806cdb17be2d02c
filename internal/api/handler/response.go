package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/amiwrpremium/xtls-crud/internal/api/requestctx"
	"github.com/amiwrpremium/xtls-crud/internal/inbound"
	"github.com/amiwrpremium/xtls-crud/internal/service"
	"github.com/amiwrpremium/xtls-crud/internal/support/i18n"
	"github.com/amiwrpremium/xtls-crud/internal/units"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string   `json:"error"`
	Field   string   `json:"field,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// Helper to respond with JSON
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response JSON", "error", err)
	}
}

// responder translates errors for one handler group.
type responder struct {
	i18n   *i18n.Manager
	logger *slog.Logger
}

func newResponder(manager *i18n.Manager, logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{i18n: manager, logger: logger}
}

func (p responder) translate(r *http.Request, key string, args ...any) string {
	if p.i18n == nil {
		if len(args) > 0 {
			return key + ": " + fmt.Sprint(args...)
		}
		return key
	}
	return p.i18n.Translate(requestctx.GetLanguage(r.Context()), key, args...)
}

func (p responder) message(w http.ResponseWriter, r *http.Request, status int, key string) {
	respondJSON(w, status, map[string]string{"message": p.translate(r, key)})
}

// fail writes a translated error without a field.
func (p responder) fail(w http.ResponseWriter, r *http.Request, status int, key string, args ...any) {
	respondJSON(w, status, ErrorBody{Error: p.translate(r, key, args...)})
}

// invalidParam reports a malformed path or query parameter as 422.
func (p responder) invalidParam(w http.ResponseWriter, r *http.Request, name string) {
	respondJSON(w, http.StatusUnprocessableEntity, ErrorBody{
		Error:  p.translate(r, "error.invalid_param", name),
		Field:  name,
		Reason: "invalid value",
	})
}

// handleError maps service, builder and unit errors to HTTP statuses.
func (p responder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		incomplete *inbound.IncompleteBuilderError
		invalid    *inbound.ValidationError
		conflict   *service.ConflictError
		parseErr   *units.ParseError
		maxBytes   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &incomplete):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorBody{
			Error:   p.translate(r, "error.incomplete", strings.Join(incomplete.Missing, ", ")),
			Field:   strings.Join(incomplete.Missing, ","),
			Reason:  "field required",
			Missing: incomplete.Missing,
		})
	case errors.As(err, &invalid):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorBody{
			Error:  p.translate(r, "error.validation", invalid.Field, invalid.Reason),
			Field:  invalid.Field,
			Reason: invalid.Reason,
		})
	case errors.As(err, &parseErr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorBody{
			Error:  p.translate(r, "error.unit_parse", parseErr.Input),
			Field:  "value",
			Reason: parseErr.Error(),
		})
	case errors.As(err, &conflict):
		respondJSON(w, http.StatusConflict, ErrorBody{
			Error:  p.translate(r, "error.conflict", conflict.Field, conflict.Value),
			Field:  conflict.Field,
			Reason: "already exists",
		})
	case errors.As(err, &maxBytes):
		p.fail(w, r, http.StatusRequestEntityTooLarge, "error.body_too_large")
	case errors.Is(err, service.ErrNotFound):
		p.fail(w, r, http.StatusNotFound, "error.not_found")
	case errors.Is(err, service.ErrEmailExists):
		respondJSON(w, http.StatusConflict, ErrorBody{Error: p.translate(r, "error.email_exists"), Field: "email", Reason: "already exists"})
	case errors.Is(err, service.ErrInvalidEmail):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorBody{Error: p.translate(r, "error.invalid_email"), Field: "email", Reason: err.Error()})
	case errors.Is(err, service.ErrInvalidPassword):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorBody{Error: p.translate(r, "error.invalid_password"), Field: "password", Reason: err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		p.fail(w, r, http.StatusBadRequest, "error.invalid_credentials")
	case errors.Is(err, service.ErrAccountDisabled):
		p.fail(w, r, http.StatusBadRequest, "error.account_disabled")
	case errors.Is(err, service.ErrRateLimited):
		p.fail(w, r, http.StatusTooManyRequests, "error.rate_limited")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		p.fail(w, r, http.StatusUnauthorized, "error.invalid_refresh_token")
	case errors.Is(err, service.ErrUnauthorized):
		p.fail(w, r, http.StatusUnauthorized, "error.unauthorized")
	case errors.Is(err, service.ErrForbidden):
		p.fail(w, r, http.StatusForbidden, "error.forbidden")
	case errors.Is(err, units.ErrUnsupportedSizeType), errors.Is(err, units.ErrUnsupportedDurationType),
		errors.Is(err, units.ErrOverflow), errors.Is(err, units.ErrNegativeMagnitude):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorBody{
			Error:  p.translate(r, "error.validation", "value", err.Error()),
			Field:  "value",
			Reason: err.Error(),
		})
	default:
		p.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		p.fail(w, r, http.StatusInternalServerError, "error.internal")
	}
}

// decodeJSON reads the request body keeping numbers as json.Number so that
// sizes and timestamps reach the unit coercion untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return io.ErrUnexpectedEOF
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

// decodeOrFail decodes the body and answers 400/413 on failure.
func (p responder) decodeOrFail(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			p.fail(w, r, http.StatusRequestEntityTooLarge, "error.body_too_large")
			return false
		}
		p.fail(w, r, http.StatusBadRequest, "error.bad_request")
		return false
	}
	return true
}

func pathInt64(r *http.Request, name string) (int64, bool) {
	value, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

func queryInt(r *http.Request, name string) (*int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return nil, false
	}
	return &value, true
}

func queryInt64(r *http.Request, name string) (*int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return nil, false
	}
	return &value, true
}

func queryBool(r *http.Request, name string) (*bool, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, false
	}
	return &value, true
}
