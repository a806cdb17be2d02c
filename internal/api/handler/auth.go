// 文件路径: internal/api/handler/auth.go
// 模块说明: 登录、刷新、注销与令牌测试接口。
package handler

import (
	"cmp"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/amiwrpremium/xtls-crud/internal/api/middleware"
	"github.com/amiwrpremium/xtls-crud/internal/api/requestctx"
	"github.com/amiwrpremium/xtls-crud/internal/service"
	"github.com/amiwrpremium/xtls-crud/internal/support/i18n"
)

// AuthHandler serves /api/v1/login.
type AuthHandler struct {
	auth service.AuthService
	responder
}

// NewAuthHandler wires the login endpoints.
func NewAuthHandler(auth service.AuthService, manager *i18n.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, responder: newResponder(manager, logger)}
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AccessToken accepts JSON or an OAuth2 password form (username/password).
func (h *AuthHandler) AccessToken(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			h.fail(w, r, http.StatusBadRequest, "error.bad_request")
			return
		}
		req = loginRequest{
			Username: r.PostForm.Get("username"),
			Email:    r.PostForm.Get("email"),
			Password: r.PostForm.Get("password"),
		}
	} else if !h.decodeOrFail(w, r, &req) {
		return
	}

	identifier := strings.TrimSpace(cmp.Or(req.Username, req.Email))
	if identifier == "" {
		h.invalidParam(w, r, "username")
		return
	}
	if req.Password == "" {
		h.invalidParam(w, r, "password")
		return
	}

	result, err := h.auth.Login(r.Context(), service.LoginInput{
		Identifier: identifier,
		Password:   req.Password,
		IP:         middleware.ClientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Refresh rotates a refresh token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decodeOrFail(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		h.invalidParam(w, r, "refresh_token")
		return
	}
	result, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Logout revokes a refresh token. Unknown tokens are not an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decodeOrFail(w, r, &req) {
		return
	}
	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		h.handleError(w, r, err)
		return
	}
	h.message(w, r, http.StatusOK, "message.logged_out")
}

// TestToken echoes the principal resolved by AdminGuard.
func (h *AuthHandler) TestToken(w http.ResponseWriter, r *http.Request) {
	principal := requestctx.PrincipalFrom(r.Context())
	if principal == nil {
		h.fail(w, r, http.StatusUnauthorized, "error.unauthorized")
		return
	}
	respondJSON(w, http.StatusOK, principal)
}

func isForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded"
}
