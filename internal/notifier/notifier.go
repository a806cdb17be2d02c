// 文件路径: internal/notifier/notifier.go
// 模块说明: 入站被自动停用时的通知出口；默认实现仅写日志。
package notifier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// 停用原因。
const (
	ReasonExpired   = "expired"
	ReasonOverQuota = "over_quota"
)

// InboundDisabled 描述一次自动停用。
type InboundDisabled struct {
	InboundID int64
	UserID    int64
	Tag       string
	Port      int
	Reason    string
}

// Service 接收入站状态变更通知。
type Service interface {
	InboundDisabled(ctx context.Context, notice InboundDisabled) error
}

// LoggerService 将通知写入日志。
type LoggerService struct {
	logger *slog.Logger
}

// NewLoggerService 创建仅记录日志的通知服务。
func NewLoggerService(logger *slog.Logger) *LoggerService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LoggerService{logger: logger.With("component", "notifier")}
}

func (s *LoggerService) InboundDisabled(ctx context.Context, notice InboundDisabled) error {
	if notice.InboundID <= 0 {
		return fmt.Errorf("inbound id is required / 入站 ID 不能为空")
	}
	s.logger.InfoContext(ctx, "inbound disabled",
		"inbound_id", notice.InboundID,
		"user_id", notice.UserID,
		"tag", notice.Tag,
		"port", notice.Port,
		"reason", notice.Reason,
	)
	return nil
}
