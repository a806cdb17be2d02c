// 文件路径: internal/security/audit.go
// 模块说明: 安全审计事件（登录成功/失败、静态管理令牌使用）。
package security

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// 审计事件类型。
const (
	EventLoginSucceeded = "auth.login.succeeded"
	EventLoginFailed    = "auth.login.failed"
	EventLoginThrottled = "auth.login.throttled"
	EventAdminToken     = "auth.admin_token.used"
	EventTokenRefreshed = "auth.token.refreshed"
)

// Event 表示安全相关的行为。
type Event struct {
	Kind      string
	ActorID   string
	IP        string
	UserAgent string
	Metadata  map[string]any
	Occurred  time.Time
}

// Recorder 记录安全事件，供后续分析。
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// LoggerRecorder 将审计事件写入 slog.Logger。
type LoggerRecorder struct {
	logger *slog.Logger
}

// NewLoggerRecorder 返回记录器，写入指定 logger（为空时丢弃）。
func NewLoggerRecorder(logger *slog.Logger) *LoggerRecorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LoggerRecorder{logger: logger.With("component", "audit")}
}

func (r *LoggerRecorder) Record(ctx context.Context, event Event) {
	if r == nil {
		return
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}
	level := slog.LevelInfo
	if event.Kind == EventLoginFailed || event.Kind == EventLoginThrottled {
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, "audit event",
		"kind", event.Kind,
		"actor_id", event.ActorID,
		"ip", event.IP,
		"ua", event.UserAgent,
		"metadata", event.Metadata,
		"occurred", event.Occurred.Format(time.RFC3339Nano),
	)
}
