// 文件路径: internal/api/router.go
// 模块说明: 组装中间件链、健康检查、Prometheus 指标与 /api/v1 路由。
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/amiwrpremium/xtls-crud/internal/api/handler"
	"github.com/amiwrpremium/xtls-crud/internal/api/middleware"
	"github.com/amiwrpremium/xtls-crud/internal/api/requestctx"
	"github.com/amiwrpremium/xtls-crud/internal/config"
	"github.com/amiwrpremium/xtls-crud/internal/security"
	"github.com/amiwrpremium/xtls-crud/internal/service"
	"github.com/amiwrpremium/xtls-crud/internal/support/i18n"
	"github.com/amiwrpremium/xtls-crud/internal/units"
)

// Services groups everything the router dispatches to. Limiter may be nil,
// which disables rate limiting.
type Services struct {
	Auth    service.AuthService
	Inbound service.InboundService
	User    service.UserService
	System  service.SystemService
	I18n    *i18n.Manager
	Limiter *security.RateLimiter
}

// NewRouter wires middleware and routes from cfg.
func NewRouter(logger *slog.Logger, services Services, cfg *config.Config) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	if services.Auth == nil {
		panic("router requires AuthService")
	}
	if services.Inbound == nil {
		panic("router requires InboundService")
	}
	if services.User == nil {
		panic("router requires UserService")
	}
	if services.System == nil {
		panic("router requires SystemService")
	}
	if services.I18n == nil {
		panic("router requires I18n Manager")
	}

	r := chi.NewRouter()

	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
	)

	var metrics *middleware.Metrics
	if cfg.Metrics.Enabled {
		mCfg := middleware.DefaultMetricsConfig()
		if cfg.Metrics.Namespace != "" {
			mCfg.Namespace = cfg.Metrics.Namespace
		}
		if cfg.Metrics.Subsystem != "" {
			mCfg.Subsystem = cfg.Metrics.Subsystem
		}
		if len(cfg.Metrics.Buckets) > 0 {
			mCfg.Buckets = cfg.Metrics.Buckets
		}
		metrics = middleware.NewMetrics(mCfg)
		r.Use(metrics.Middleware())
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSOrigins) > 0 {
		cors.AllowedOrigins = cfg.HTTP.CORSOrigins
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.CORS(cors),
		middleware.BodyLimit(middleware.BodyLimitConfig{
			MaxBytes: resolveBodyLimit(logger, cfg.HTTP.BodyLimit),
		}),
		// I18n 需在限流之前，429 响应也要翻译。
		middleware.I18n(services.I18n),
	}

	if cfg.RateLimit.Enabled && services.Limiter != nil && cfg.RateLimit.Limit > 0 {
		middlewares = append(middlewares, middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:    services.Limiter,
			Scope:      "global",
			Limit:      cfg.RateLimit.Limit,
			Window:     cfg.RateLimit.Window,
			SkipPaths:  middleware.ProbePaths,
			Translator: services.I18n,
			Logger:     logger,
		}))
	}

	middlewares = append(middlewares,
		middleware.StructuredLogger(middleware.LoggingConfig{
			Logger:        logger,
			SlowThreshold: 500 * time.Millisecond,
			SkipPaths:     middleware.ProbePaths,
		}),
		chiMiddleware.Recoverer,
		chiMiddleware.Compress(5),
	)

	r.Use(middlewares...)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Alias for Docker health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	r.Get("/_internal/ready", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if metrics != nil {
		if cfg.Metrics.Token != "" {
			r.With(middleware.MetricsGuard(cfg.Metrics.Token)).Handle("/metrics", metrics.Handler())
		} else {
			r.Handle("/metrics", metrics.Handler())
		}
	}

	registerAPIRoutes(r, logger, services, cfg.RateLimit)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Warn("unmapped route hit", "method", req.Method, "path", req.URL.Path)
		respondJSON(w, http.StatusNotFound, map[string]string{
			"error": services.I18n.Translate(requestctx.GetLanguage(req.Context()), "error.not_found"),
		})
	})

	return r
}

func registerAPIRoutes(root chi.Router, logger *slog.Logger, services Services, limits config.RateLimitConfig) {
	authHandler := handler.NewAuthHandler(services.Auth, services.I18n, logger)
	inboundHandler := handler.NewInboundHandler(services.Inbound, services.I18n, logger)
	unitsHandler := handler.NewUnitsHandler(services.I18n, logger)
	userHandler := handler.NewUserHandler(services.User, services.I18n, logger)
	systemHandler := handler.NewSystemHandler(services.System, services.I18n, logger)

	builderLimit := func(next http.Handler) http.Handler { return next }
	if limits.Enabled && services.Limiter != nil && limits.BuilderLimit > 0 {
		builderLimit = middleware.RateLimit(middleware.RateLimitConfig{
			Limiter:    services.Limiter,
			Scope:      "builder",
			Limit:      limits.BuilderLimit,
			Window:     time.Minute,
			Translator: services.I18n,
			Logger:     logger,
		})
	}

	root.Route("/api/v1", func(v1 chi.Router) {
		// 公开接口
		v1.Get("/", systemHandler.Home)
		v1.Get("/i18n", systemHandler.Languages)
		v1.Get("/i18n/{lang}", systemHandler.Translations)
		v1.Post("/login/access-token", authHandler.AccessToken)
		v1.Post("/login/refresh", authHandler.Refresh)
		v1.Post("/login/logout", authHandler.Logout)

		v1.Group(func(admin chi.Router) {
			admin.Use(middleware.AdminGuard(services.Auth, services.I18n))

			admin.Post("/login/test-token", authHandler.TestToken)

			admin.Route("/inbounds", func(inbounds chi.Router) {
				inbounds.Get("/", inboundHandler.List)
				inbounds.Post("/", inboundHandler.Create)
				inbounds.Post("/easy", inboundHandler.CreateEasy)
				inbounds.Get("/tag/{tag}", inboundHandler.GetByTag)
				inbounds.Get("/port/{port}", inboundHandler.GetByPort)
				inbounds.Get("/{id:[0-9]+}", inboundHandler.Get)
				inbounds.Put("/{id:[0-9]+}", inboundHandler.Update)
				inbounds.Delete("/{id:[0-9]+}", inboundHandler.Delete)
				inbounds.Post("/{id:[0-9]+}/enable", inboundHandler.Enable)
				inbounds.Post("/{id:[0-9]+}/disable", inboundHandler.Disable)
				inbounds.Post("/{id:[0-9]+}/traffic", inboundHandler.Traffic)
			})

			admin.With(builderLimit).Post("/builders/easy", inboundHandler.Preview)

			admin.Post("/units/parse", unitsHandler.Parse)
			admin.Get("/units/{kind}", unitsHandler.List)

			admin.Get("/users", userHandler.List)
			admin.Post("/users", userHandler.Create)
		})
	})
}

// resolveBodyLimit 解析 "1MB" 这类配置，失败时使用默认值。
func resolveBodyLimit(logger *slog.Logger, raw string) int64 {
	if strings.TrimSpace(raw) == "" {
		return middleware.DefaultBodyLimit
	}
	n, err := units.CoerceSize(raw)
	if err != nil || n <= 0 {
		logger.Warn("invalid http.body_limit, using default", "value", raw, "error", err)
		return middleware.DefaultBodyLimit
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
