package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/amiwrpremium/xtls-crud/internal/api/requestctx"
	"github.com/amiwrpremium/xtls-crud/internal/support/i18n"
)

// LangCookie persists an explicit ?lang= selection.
const LangCookie = "lang"

// I18n middleware detects the caller's preferred language and stores it in the context.
// 优先级: ?lang= 查询参数 > X-I18N-Lang 请求头 > lang cookie > Accept-Language。
func I18n(manager *i18n.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				next.ServeHTTP(w, r)
				return
			}
			explicit := strings.TrimSpace(r.URL.Query().Get("lang"))
			requested := explicit
			if requested == "" {
				requested = strings.TrimSpace(r.Header.Get("X-I18N-Lang"))
			}
			if requested == "" {
				if cookie, err := r.Cookie(LangCookie); err == nil {
					requested = cookie.Value
				}
			}
			if requested == "" {
				requested = r.Header.Get("Accept-Language")
			}
			lang := manager.Negotiate(requested)
			w.Header().Set("Content-Language", lang)

			if explicit != "" {
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookie,
					Value:    lang,
					Path:     "/",
					Expires:  time.Now().Add(365 * 24 * time.Hour),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(requestctx.WithLanguage(r.Context(), lang)))
		})
	}
}
