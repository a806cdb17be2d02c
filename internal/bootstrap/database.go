// 文件路径: internal/bootstrap/database.go
// 模块说明: 打开 SQLite 连接并设置 PRAGMA，连接失败时按指数退避重试。
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"
)

// DBOptions controls connection retries.
type DBOptions struct {
	Retries        uint64
	InitialBackoff time.Duration
}

// OpenSQLite ensures the parent directory exists, then opens a SQLite connection with sane pragmas.
func OpenSQLite(ctx context.Context, path string, opts DBOptions) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLite 路径不能为空 / SQLite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	if opts.InitialBackoff > 0 {
		policy.InitialInterval = opts.InitialBackoff
	}
	policy.MaxElapsedTime = 0

	ping := func() error {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("set wal mode: %w", err)
		}
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=30000;"); err != nil {
			return fmt.Errorf("set busy timeout: %w", err)
		}
		return db.PingContext(ctx)
	}
	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(policy, opts.Retries), ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}
