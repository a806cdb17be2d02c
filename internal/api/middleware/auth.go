// 文件路径: internal/api/middleware/auth.go
// 模块说明: Bearer 令牌认证。AdminGuard 只放行超级管理员或静态管理令牌。
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/amiwrpremium/xtls-crud/internal/api/requestctx"
	"github.com/amiwrpremium/xtls-crud/internal/service"
	"github.com/amiwrpremium/xtls-crud/internal/support/i18n"
)

// AdminGuard ensures requests carry a superuser token or the static admin token.
func AdminGuard(auth service.AuthService, translator *i18n.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				writeError(w, r, translator, http.StatusUnauthorized, "error.unauthorized")
				return
			}
			token := ExtractBearer(r.Header.Get("Authorization"))
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, r, translator, http.StatusUnauthorized, "error.unauthorized")
				return
			}
			principal, err := auth.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrAccountDisabled) {
					writeError(w, r, translator, http.StatusBadRequest, "error.account_disabled")
					return
				}
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, r, translator, http.StatusUnauthorized, "error.unauthorized")
				return
			}
			if !principal.IsSuperuser {
				writeError(w, r, translator, http.StatusForbidden, "error.forbidden")
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithPrincipal(r.Context(), principal)))
		})
	}
}

// ExtractBearer returns the token of an "Authorization: Bearer" header. A bare
// value without the scheme is accepted as is.
func ExtractBearer(header string) string {
	trimmed := strings.TrimSpace(header)
	if trimmed == "" {
		return ""
	}
	scheme, rest, ok := strings.Cut(trimmed, " ")
	if ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	return trimmed
}

// writeError 输出与 handler 一致的 {"error": msg} 结构。
func writeError(w http.ResponseWriter, r *http.Request, translator *i18n.Manager, status int, key string) {
	msg := key
	if translator != nil {
		msg = translator.Translate(requestctx.GetLanguage(r.Context()), key)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
	})
}
