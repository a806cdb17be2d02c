// 文件路径: internal/service/system.go
// 模块说明: 首页信息：项目名称、版本、文档地址、运行时长与入站统计。
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/amiwrpremium/xtls-crud/internal/cache"
	"github.com/amiwrpremium/xtls-crud/internal/repository"
)

const homeStatsTTL = 30 * time.Second

// SystemService serves the home endpoint payload.
type SystemService interface {
	Home(ctx context.Context) (*HomeInfo, error)
}

// SystemOptions carries project metadata shown on the home endpoint.
type SystemOptions struct {
	Name        string
	Version     string
	Description string
	DocsURL     string
	Environment string
	StartedAt   time.Time
	Inbounds    repository.InboundRepository
	Cache       cache.Store
	Now         func() time.Time
}

// HomeInfo is the payload of GET /api/v1/.
type HomeInfo struct {
	Message       string       `json:"message"`
	Documentation string       `json:"documentation,omitempty"`
	Info          ProjectInfo  `json:"info"`
	Uptime        string       `json:"uptime"`
	StartedAt     time.Time    `json:"started_at"`
	Inbounds      InboundStats `json:"inbounds"`
}

// ProjectInfo describes the running build.
type ProjectInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Environment string `json:"environment,omitempty"`
}

// InboundStats counts inbounds by state.
type InboundStats struct {
	Total    int64 `json:"total"`
	Enabled  int64 `json:"enabled"`
	Disabled int64 `json:"disabled"`
}

type systemService struct {
	opts  SystemOptions
	stats cache.Store
}

// NewSystemService builds the home/info service.
func NewSystemService(opts SystemOptions) SystemService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StartedAt.IsZero() {
		opts.StartedAt = opts.Now()
	}
	var stats cache.Store
	if opts.Cache != nil {
		stats = opts.Cache.Namespace("system")
	}
	return &systemService{opts: opts, stats: stats}
}

func (s *systemService) Home(ctx context.Context) (*HomeInfo, error) {
	stats, err := s.inboundStats(ctx)
	if err != nil {
		return nil, err
	}
	return &HomeInfo{
		Message:       "Hello, World!",
		Documentation: s.opts.DocsURL,
		Info: ProjectInfo{
			Name:        s.opts.Name,
			Description: s.opts.Description,
			Version:     s.opts.Version,
			Environment: s.opts.Environment,
		},
		Uptime:    strings.TrimSpace(humanize.RelTime(s.opts.StartedAt, s.opts.Now(), "", "")),
		StartedAt: s.opts.StartedAt.UTC(),
		Inbounds:  stats,
	}, nil
}

func (s *systemService) inboundStats(ctx context.Context) (InboundStats, error) {
	var stats InboundStats
	if s.opts.Inbounds == nil {
		return stats, nil
	}
	if s.stats != nil {
		if ok, err := s.stats.GetJSON(ctx, "inbound_stats", &stats); err == nil && ok {
			return stats, nil
		}
	}
	total, err := s.opts.Inbounds.Count(ctx, repository.InboundFilter{})
	if err != nil {
		return stats, fmt.Errorf("count inbounds: %w", err)
	}
	enabled := true
	active, err := s.opts.Inbounds.Count(ctx, repository.InboundFilter{Enable: &enabled})
	if err != nil {
		return stats, fmt.Errorf("count enabled inbounds: %w", err)
	}
	stats = InboundStats{Total: total, Enabled: active, Disabled: total - active}
	if s.stats != nil {
		_ = s.stats.SetJSON(ctx, "inbound_stats", stats, homeStatsTTL)
	}
	return stats, nil
}
