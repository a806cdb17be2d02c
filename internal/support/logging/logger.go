// 文件路径: internal/support/logging/logger.go
// 模块说明: 统一构建 slog 日志实例，服务端与命令行共用。
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/amiwrpremium/xtls-crud/internal/config"
)

// Options customize the slog logger construction.
type Options struct {
	Level     slog.Level
	Format    string
	AddSource bool
	// Output 为空时写入 stdout。
	Output io.Writer
}

// FromConfig maps the log section of the config file to Options.
func FromConfig(cfg config.LogConfig) Options {
	return Options{Level: cfg.SlogLevel(), Format: cfg.Format, AddSource: cfg.AddSource}
}

// New returns a slog.Logger configured according to options (JSON by default).
func New(opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "text", "console":
		handler = slog.NewTextHandler(out, handlerOpts)
	default:
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	return slog.New(handler)
}
