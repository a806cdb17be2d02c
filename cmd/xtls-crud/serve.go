package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amiwrpremium/xtls-crud/internal/api"
	"github.com/amiwrpremium/xtls-crud/internal/bootstrap"
	"github.com/amiwrpremium/xtls-crud/internal/job"
	"github.com/amiwrpremium/xtls-crud/internal/migrations"
	"github.com/amiwrpremium/xtls-crud/internal/repository/sqlite"
	"github.com/amiwrpremium/xtls-crud/internal/service"
	"github.com/amiwrpremium/xtls-crud/internal/support/i18n"
	"github.com/amiwrpremium/xtls-crud/internal/support/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	bootTime := time.Now().UTC()
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := appConfig
	logger := logging.New(logging.FromConfig(cfg.Log))

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(ctx, db); err != nil {
		return err
	}
	store := sqlite.NewStore(db)

	signingKey, signingKeySource, err := bootstrap.ResolveJWTSigningKey(ctx, store.Settings(), cfg.Auth.SigningKey, time.Now)
	if err != nil {
		return err
	}
	switch signingKeySource {
	case bootstrap.JWTSigningKeySourceGenerated:
		logger.Info("jwt signing key generated", "source", "generated-and-persisted")
	default:
		logger.Info("jwt signing key loaded", "source", string(signingKeySource))
	}

	infra, err := bootstrap.BuildInfrastructure(cfg, signingKey, logger)
	if err != nil {
		return err
	}

	i18nManager, err := i18n.NewManager(
		i18n.WithLogger(logger),
		i18n.WithDefaultLang(cfg.I18n.DefaultLang),
	)
	if err != nil {
		return err
	}
	if err := i18nManager.LoadFromDir(cfg.I18n.Dir); err != nil {
		return err
	}

	userService := service.NewUserService(store.Users(), store.Tokens(), infra.Hasher, logger)
	if cfg.Auth.FirstSuperuserPassword != "" {
		created, err := userService.EnsureSuperuser(ctx, cfg.Auth.FirstSuperuser, cfg.Auth.FirstSuperuserPassword)
		if err != nil {
			return err
		}
		if created {
			logger.Info("first superuser created", "email", cfg.Auth.FirstSuperuser)
		}
	} else {
		logger.Warn("auth.first_superuser_password is empty, skipping superuser bootstrap")
	}
	if cfg.Auth.AdminToken == "" {
		logger.Info("static admin token disabled")
	}

	inboundService := service.NewInboundService(service.InboundOptions{
		Inbounds: store.Inbounds(),
		Notifier: infra.Notifier,
		Defaults: inboundDefaults(cfg.Inbound),
		Logger:   logger,
	})

	scheduler := job.NewScheduler(job.Options{Logger: logger, Timeout: time.Minute})
	if cfg.Inbound.ExpiryJobEnabled {
		if _, err := scheduler.Register(cfg.Inbound.ExpiryJobSpec, job.NewInboundExpiryJob(inboundService, logger)); err != nil {
			return err
		}
	}
	scheduler.Start()

	services := api.Services{
		Auth: service.NewAuthService(
			store.Users(),
			store.Tokens(),
			infra.Hasher,
			infra.Token,
			infra.RateLimiter,
			infra.Audit,
			infra.Cache,
			service.AuthOptions{
				AdminToken: cfg.Auth.AdminToken,
				AdminEmail: cfg.Auth.FirstSuperuser,
				LoginLimit: cfg.RateLimit.LoginLimit,
				RefreshTTL: cfg.Auth.RefreshTTL,
			},
		),
		Inbound: inboundService,
		User:    userService,
		System: service.NewSystemService(service.SystemOptions{
			Name:        cfg.Project.Name,
			Version:     cfg.Project.Version,
			Description: cfg.Project.Description,
			DocsURL:     cfg.Project.DocsURL,
			Environment: cfg.Log.Environment,
			StartedAt:   bootTime,
			Inbounds:    store.Inbounds(),
			Cache:       infra.Cache,
		}),
		I18n:    i18nManager,
		Limiter: infra.RateLimiter,
	}

	router := api.NewRouter(logger, services, cfg)
	server := bootstrap.NewHTTPServer(cfg.HTTP, router)

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTP.Addr, "env", cfg.Log.Environment, "version", Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server exited cleanly")
	return nil
}
