// 文件路径: cmd/xtls-crud/app.go
// 模块说明: 命令行子命令共用的数据库、日志与服务构建。
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/amiwrpremium/xtls-crud/internal/bootstrap"
	"github.com/amiwrpremium/xtls-crud/internal/config"
	"github.com/amiwrpremium/xtls-crud/internal/inbound"
	"github.com/amiwrpremium/xtls-crud/internal/migrations"
	"github.com/amiwrpremium/xtls-crud/internal/notifier"
	"github.com/amiwrpremium/xtls-crud/internal/repository/sqlite"
	"github.com/amiwrpremium/xtls-crud/internal/service"
	"github.com/amiwrpremium/xtls-crud/internal/support/hash"
	"github.com/amiwrpremium/xtls-crud/internal/support/logging"
)

// storeHandle keeps the raw connection next to the store so callers can close it.
type storeHandle struct {
	db    *sql.DB
	store *sqlite.Store
}

func (h *storeHandle) Close() error {
	return h.db.Close()
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	return bootstrap.OpenSQLite(ctx, cfg.DB.Path, bootstrap.DBOptions{
		Retries:        cfg.DB.ConnectRetries,
		InitialBackoff: cfg.DB.ConnectBackoff,
	})
}

// getStore opens the database and applies pending migrations so one-off
// commands work against a fresh file.
func getStore(ctx context.Context, cfg *config.Config) (*storeHandle, error) {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &storeHandle{db: db, store: sqlite.NewStore(db)}, nil
}

// cliLogger writes text logs to stderr so command output stays clean on stdout.
func cliLogger(cfg *config.Config) *slog.Logger {
	opts := logging.FromConfig(cfg.Log)
	opts.Format = "text"
	opts.Output = os.Stderr
	return logging.New(opts)
}

func inboundDefaults(cfg config.InboundConfig) service.InboundDefaults {
	defaults := service.InboundDefaults{
		Up:           cfg.DefaultUp,
		Down:         cfg.DefaultDown,
		Total:        cfg.DefaultTotal,
		Expiry:       cfg.DefaultExpiry,
		Protocol:     cfg.DefaultProtocol,
		Network:      cfg.DefaultNetwork,
		Security:     cfg.DefaultSecurity,
		ServerName:   serverNameOf(cfg.SiteURL),
		DestOverride: cfg.DestOverride,
		WsPathLength: cfg.WsPathLength,
	}
	if cfg.CertificateFile != "" || cfg.KeyFile != "" {
		cert := inbound.DefaultCertificate()
		if cfg.CertificateFile != "" {
			cert.CertificateFile = cfg.CertificateFile
		}
		if cfg.KeyFile != "" {
			cert.KeyFile = cfg.KeyFile
		}
		defaults.Certificates = []inbound.Certificate{cert}
	}
	return defaults
}

// serverNameOf reduces site_url to the host used as TLS serverName.
func serverNameOf(siteURL string) string {
	raw := strings.TrimSpace(siteURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "//" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func newInboundService(h *storeHandle, cfg *config.Config, logger *slog.Logger) service.InboundService {
	return service.NewInboundService(service.InboundOptions{
		Inbounds: h.store.Inbounds(),
		Notifier: notifier.NewLoggerService(logger),
		Defaults: inboundDefaults(cfg.Inbound),
		Logger:   logger,
	})
}

func newUserService(h *storeHandle, cfg *config.Config, logger *slog.Logger) (service.UserService, error) {
	hasher, err := hash.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt hasher: %w", err)
	}
	return service.NewUserService(h.store.Users(), h.store.Tokens(), hasher, logger), nil
}
