package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amiwrpremium/xtls-crud/internal/service"
)

// InboundExpiryJob disables inbounds that expired or used up their quota.
type InboundExpiryJob struct {
	Inbounds service.InboundService
	Logger   *slog.Logger
}

// NewInboundExpiryJob creates a new InboundExpiryJob.
func NewInboundExpiryJob(inbounds service.InboundService, logger *slog.Logger) *InboundExpiryJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &InboundExpiryJob{Inbounds: inbounds, Logger: logger}
}

// Name implements Runnable interface.
func (j *InboundExpiryJob) Name() string {
	return "inbound.expiry"
}

// Run implements Runnable interface.
func (j *InboundExpiryJob) Run(ctx context.Context) error {
	if j == nil || j.Inbounds == nil {
		return fmt.Errorf("inbound expiry job dependencies not configured / 入站到期任务依赖未配置")
	}
	report, err := j.Inbounds.DisableExhausted(ctx)
	if err != nil {
		return fmt.Errorf("inbound expiry job: %w", err)
	}
	if report.Disabled > 0 {
		j.Logger.Info("disabled exhausted inbounds",
			"disabled", report.Disabled,
			"expired", report.Expired,
			"over_quota", report.OverQuota,
		)
	}
	return nil
}
