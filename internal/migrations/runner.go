// 文件路径: internal/migrations/runner.go
// 模块说明: goose 迁移入口，供 serve 启动与 migrate 子命令共用。
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

const dir = "sqlite"

var setupOnce sync.Once

func setup() {
	setupOnce.Do(func() {
		goose.SetBaseFS(SQLite)
		if err := goose.SetDialect("sqlite3"); err != nil {
			panic(fmt.Sprintf("goose dialect: %v", err))
		}
	})
}

// Up migrates the SQLite schema to the latest version.
func Up(ctx context.Context, db *sql.DB) error {
	setup()
	return goose.UpContext(ctx, db, dir)
}

// Down rolls back a single migration.
func Down(ctx context.Context, db *sql.DB) error {
	setup()
	return goose.DownContext(ctx, db, dir)
}

// Status logs migration status through goose's logger.
func Status(ctx context.Context, db *sql.DB) error {
	setup()
	return goose.StatusContext(ctx, db, dir)
}

// Version reports the current schema version.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	setup()
	return goose.GetDBVersionContext(ctx, db)
}
