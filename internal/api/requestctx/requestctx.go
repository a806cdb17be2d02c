// 文件路径: internal/api/requestctx/requestctx.go
// 模块说明: 在请求 context 中传递认证主体与语言标识。
package requestctx

import (
	"context"

	"github.com/amiwrpremium/xtls-crud/internal/service"
)

// DefaultLanguage is returned when no language was negotiated.
const DefaultLanguage = "en-US"

type principalKey struct{}

// I18nKey 用于在 context 中存储语言标识的 key 类型。
type I18nKey struct{}

// WithPrincipal attaches the authenticated caller to the context.
func WithPrincipal(ctx context.Context, p *service.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller set by the auth guard, or nil.
func PrincipalFrom(ctx context.Context) *service.Principal {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(principalKey{}).(*service.Principal)
	return p
}

// WithLanguage 将语言标识附加到 context 中供下游使用。
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, I18nKey{}, lang)
}

// GetLanguage 从 context 中获取语言标识，未设置时返回 DefaultLanguage。
func GetLanguage(ctx context.Context) string {
	if ctx == nil {
		return DefaultLanguage
	}
	if lang, ok := ctx.Value(I18nKey{}).(string); ok && lang != "" {
		return lang
	}
	return DefaultLanguage
}
