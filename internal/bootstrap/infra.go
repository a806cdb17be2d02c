// 文件路径: internal/bootstrap/infra.go
// 模块说明: 组装缓存、令牌、密码哈希、限流与审计等共享组件。
package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/amiwrpremium/xtls-crud/internal/auth/token"
	"github.com/amiwrpremium/xtls-crud/internal/cache"
	"github.com/amiwrpremium/xtls-crud/internal/config"
	"github.com/amiwrpremium/xtls-crud/internal/notifier"
	"github.com/amiwrpremium/xtls-crud/internal/security"
	"github.com/amiwrpremium/xtls-crud/internal/support/hash"
)

// Infrastructure bundles shared helpers required by services and handlers.
type Infrastructure struct {
	Cache       cache.Store
	Token       *token.Manager
	Hasher      hash.Hasher
	Notifier    notifier.Service
	RateLimiter *security.RateLimiter
	Audit       security.Recorder
}

// BuildInfrastructure wires default implementations. signingKey comes from ResolveJWTSigningKey.
func BuildInfrastructure(cfg *config.Config, signingKey string, logger *slog.Logger) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required / 配置不能为空")
	}

	cacheStore := cache.NewStore(cache.Options{
		Prefix:          "xtls-crud",
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: time.Minute,
	})

	tokenManager, err := token.NewManager(token.Options{
		SigningKey: []byte(signingKey),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		TTL:        cfg.Auth.TokenTTL,
		Leeway:     cfg.Auth.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	hasher, err := hash.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt hasher: %w", err)
	}

	rateLimiter, err := security.NewRateLimiter(cacheStore)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	return &Infrastructure{
		Cache:       cacheStore,
		Token:       tokenManager,
		Hasher:      hasher,
		Notifier:    notifier.NewLoggerService(logger),
		RateLimiter: rateLimiter,
		Audit:       security.NewLoggerRecorder(logger),
	}, nil
}
