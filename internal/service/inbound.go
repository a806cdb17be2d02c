// 文件路径: internal/service/inbound.go
// 模块说明: 入站配置的增删改查、简易构建、启停与到期/超额自动停用。
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amiwrpremium/xtls-crud/internal/inbound"
	"github.com/amiwrpremium/xtls-crud/internal/notifier"
	"github.com/amiwrpremium/xtls-crud/internal/repository"
	"github.com/amiwrpremium/xtls-crud/internal/units"
)

// InboundService exposes inbound CRUD plus the easy builder.
type InboundService interface {
	Create(ctx context.Context, input InboundInput) (*InboundView, error)
	CreateEasy(ctx context.Context, input EasyInboundInput) (*InboundView, error)
	// Preview builds an easy inbound without persisting it.
	Preview(ctx context.Context, input EasyInboundInput) (*InboundView, error)
	Update(ctx context.Context, id int64, input InboundInput) (*InboundView, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*InboundView, error)
	GetByTag(ctx context.Context, tag string) (*InboundView, error)
	GetByPort(ctx context.Context, port int) (*InboundView, error)
	List(ctx context.Context, input InboundListInput) (*InboundList, error)
	SetEnable(ctx context.Context, id int64, enable bool) (*InboundView, error)
	AddTraffic(ctx context.Context, id int64, up, down any) (*InboundView, error)
	DisableExhausted(ctx context.Context) (*DisableReport, error)
}

// InboundInput carries every field of a full inbound. Nil fields are reported
// as missing by the builder. Size and expiry accept integers or unit strings.
type InboundInput struct {
	UserID         *int64                  `json:"user_id"`
	Up             any                     `json:"up"`
	Down           any                     `json:"down"`
	Total          any                     `json:"total"`
	Remark         *string                 `json:"remark"`
	Enable         *bool                   `json:"enable"`
	ExpiryTime     any                     `json:"expiry_time"`
	Listen         *string                 `json:"listen"`
	Port           *int                    `json:"port"`
	Protocol       *string                 `json:"protocol"`
	Tag            *string                 `json:"tag"`
	Settings       *inbound.ClientSetting  `json:"settings"`
	StreamSettings *inbound.StreamSettings `json:"stream_settings"`
	Sniffing       *inbound.Sniffing       `json:"sniffing"`
}

// EasyInboundInput carries the scalars of the easy builder. Nil fields take
// the configured defaults; only port is mandatory.
type EasyInboundInput struct {
	UserID     *int64     `json:"user_id"`
	Up         any        `json:"up"`
	Down       any        `json:"down"`
	Total      any        `json:"total"`
	Remark     *string    `json:"remark"`
	Enable     *bool      `json:"enable"`
	ExpiryTime any        `json:"expiry_time"`
	Listen     *string    `json:"listen"`
	Port       *int       `json:"port"`
	Protocol   *string    `json:"protocol"`
	Tag        *string    `json:"tag"`
	UUID       *uuid.UUID `json:"uuid"`
	Network    *string    `json:"network"`
	Security   *string    `json:"security"`
	ServerName *string    `json:"server_name"`
	WsPath     *string    `json:"ws_path"`
	Sniffing   *bool      `json:"sniffing"`
}

// InboundListInput filters List. Nil pointers are ignored.
type InboundListInput struct {
	UserID   *int64
	Enable   *bool
	Port     *int
	Protocol string
	Tag      string
	Remark   string
	Skip     int
	Limit    int
}

// InboundList is one page of inbounds.
type InboundList struct {
	Items []*InboundView `json:"items"`
	Total int64          `json:"total"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
}

// InboundView re-expands the stored JSON text into nested objects.
type InboundView struct {
	ID             int64                  `json:"id,omitempty" yaml:"id,omitempty"`
	UserID         int64                  `json:"user_id" yaml:"user_id"`
	Up             int64                  `json:"up" yaml:"up"`
	Down           int64                  `json:"down" yaml:"down"`
	Total          int64                  `json:"total" yaml:"total"`
	Remark         string                 `json:"remark" yaml:"remark"`
	Enable         bool                   `json:"enable" yaml:"enable"`
	ExpiryTime     int64                  `json:"expiry_time" yaml:"expiry_time"`
	Listen         string                 `json:"listen" yaml:"listen"`
	Port           int                    `json:"port" yaml:"port"`
	Protocol       inbound.Protocol       `json:"protocol" yaml:"protocol"`
	Settings       inbound.ClientSetting  `json:"settings" yaml:"settings"`
	StreamSettings inbound.StreamSettings `json:"stream_settings" yaml:"stream_settings"`
	Tag            string                 `json:"tag" yaml:"tag"`
	Sniffing       inbound.Sniffing       `json:"sniffing" yaml:"sniffing"`
	CreatedAt      int64                  `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt      int64                  `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// DisableReport summarizes one DisableExhausted sweep.
type DisableReport struct {
	Expired   []int64 `json:"expired"`
	OverQuota []int64 `json:"over_quota"`
	Disabled  int64   `json:"disabled"`
}

// InboundDefaults feed the easy builder when the caller omits a field.
type InboundDefaults struct {
	UserID       int64
	Up           string
	Down         string
	Total        string
	Expiry       string
	Protocol     string
	Network      string
	Security     string
	ServerName   string
	DestOverride []string
	WsPathLength int
	Certificates []inbound.Certificate
}

// InboundOptions wires InboundService.
type InboundOptions struct {
	Inbounds repository.InboundRepository
	Notifier notifier.Service
	Defaults InboundDefaults
	Logger   *slog.Logger
	Now      func() time.Time
}

type inboundService struct {
	inbounds repository.InboundRepository
	notifier notifier.Service
	defaults InboundDefaults
	logger   *slog.Logger
	now      func() time.Time
}

// NewInboundService builds the inbound service.
func NewInboundService(opts InboundOptions) InboundService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &inboundService{
		inbounds: opts.Inbounds,
		notifier: opts.Notifier,
		defaults: withFallbacks(opts.Defaults),
		logger:   logger.With("component", "inbound"),
		now:      now,
	}
}

func withFallbacks(d InboundDefaults) InboundDefaults {
	if d.UserID <= 0 {
		d.UserID = 1
	}
	d.Up = cmp.Or(strings.TrimSpace(d.Up), "100GB")
	d.Down = cmp.Or(strings.TrimSpace(d.Down), "100GB")
	d.Total = cmp.Or(strings.TrimSpace(d.Total), "0")
	d.Expiry = cmp.Or(strings.TrimSpace(d.Expiry), "1MO")
	d.Protocol = cmp.Or(strings.TrimSpace(d.Protocol), string(inbound.ProtocolVMess))
	d.Network = cmp.Or(strings.TrimSpace(d.Network), string(inbound.NetworkWS))
	d.Security = cmp.Or(strings.TrimSpace(d.Security), "tls")
	if d.WsPathLength <= 0 {
		d.WsPathLength = 6
	}
	return d
}

func (s *inboundService) Create(ctx context.Context, input InboundInput) (*InboundView, error) {
	cfg, err := s.buildFull(input)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, cfg)
}

func (s *inboundService) CreateEasy(ctx context.Context, input EasyInboundInput) (*InboundView, error) {
	cfg, err := s.buildEasy(input)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, cfg)
}

func (s *inboundService) Preview(_ context.Context, input EasyInboundInput) (*InboundView, error) {
	cfg, err := s.buildEasy(input)
	if err != nil {
		return nil, err
	}
	return viewOfConfig(cfg)
}

func (s *inboundService) Update(ctx context.Context, id int64, input InboundInput) (*InboundView, error) {
	existing, err := findInbound(ctx, s.inbounds.FindByID, id)
	if err != nil {
		return nil, err
	}
	cfg, err := s.buildFull(input)
	if err != nil {
		return nil, err
	}
	if err := s.checkConflicts(ctx, cfg, id); err != nil {
		return nil, err
	}
	record := recordOf(cfg)
	record.ID = id
	record.CreatedAt = existing.CreatedAt
	if err := s.inbounds.Update(ctx, record); err != nil {
		return nil, s.mapWriteError(ctx, cfg, id, err)
	}
	s.logger.InfoContext(ctx, "inbound updated", "id", id, "port", cfg.Port, "tag", cfg.Tag)
	return viewOf(record)
}

func (s *inboundService) Delete(ctx context.Context, id int64) error {
	if err := s.inbounds.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete inbound: %w", err)
	}
	s.logger.InfoContext(ctx, "inbound deleted", "id", id)
	return nil
}

func (s *inboundService) Get(ctx context.Context, id int64) (*InboundView, error) {
	record, err := findInbound(ctx, s.inbounds.FindByID, id)
	if err != nil {
		return nil, err
	}
	return viewOf(record)
}

func (s *inboundService) GetByTag(ctx context.Context, tag string) (*InboundView, error) {
	record, err := findInbound(ctx, s.inbounds.FindByTag, strings.TrimSpace(tag))
	if err != nil {
		return nil, err
	}
	return viewOf(record)
}

func (s *inboundService) GetByPort(ctx context.Context, port int) (*InboundView, error) {
	record, err := findInbound(ctx, s.inbounds.FindByPort, port)
	if err != nil {
		return nil, err
	}
	return viewOf(record)
}

func (s *inboundService) List(ctx context.Context, input InboundListInput) (*InboundList, error) {
	skip, limit := repository.NormalizePage(input.Skip, input.Limit)
	filter := repository.InboundFilter{
		UserID:   input.UserID,
		Enable:   input.Enable,
		Port:     input.Port,
		Protocol: strings.TrimSpace(input.Protocol),
		Tag:      strings.TrimSpace(input.Tag),
		Remark:   strings.TrimSpace(input.Remark),
		Skip:     skip,
		Limit:    limit,
	}
	records, err := s.inbounds.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list inbounds: %w", err)
	}
	total, err := s.inbounds.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count inbounds: %w", err)
	}
	items := make([]*InboundView, 0, len(records))
	for _, record := range records {
		view, err := viewOf(record)
		if err != nil {
			return nil, err
		}
		items = append(items, view)
	}
	return &InboundList{Items: items, Total: total, Skip: skip, Limit: limit}, nil
}

func (s *inboundService) SetEnable(ctx context.Context, id int64, enable bool) (*InboundView, error) {
	n, err := s.inbounds.SetEnable(ctx, []int64{id}, enable)
	if err != nil {
		return nil, fmt.Errorf("set inbound enable: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	s.logger.InfoContext(ctx, "inbound toggled", "id", id, "enable", enable)
	return s.Get(ctx, id)
}

func (s *inboundService) AddTraffic(ctx context.Context, id int64, up, down any) (*InboundView, error) {
	upBytes, err := trafficDelta("up", up)
	if err != nil {
		return nil, err
	}
	downBytes, err := trafficDelta("down", down)
	if err != nil {
		return nil, err
	}
	if err := s.inbounds.AddTraffic(ctx, id, upBytes, downBytes); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		if errors.Is(err, repository.ErrOverflow) {
			return nil, &inbound.ValidationError{Field: "traffic", Reason: "counter would exceed int64", Err: err}
		}
		return nil, fmt.Errorf("add inbound traffic: %w", err)
	}
	return s.Get(ctx, id)
}

func trafficDelta(field string, v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	n, err := units.CoerceSize(v)
	if err != nil {
		return 0, &inbound.ValidationError{Field: field, Reason: err.Error(), Err: err}
	}
	if n < 0 {
		return 0, &inbound.ValidationError{Field: field, Reason: "must be >= 0"}
	}
	return n, nil
}

// DisableExhausted 停用已过期或流量用尽的入站，并逐条发送通知。
func (s *inboundService) DisableExhausted(ctx context.Context) (*DisableReport, error) {
	expired, err := s.inbounds.ListExpired(ctx, s.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list expired inbounds: %w", err)
	}
	overQuota, err := s.inbounds.ListOverQuota(ctx)
	if err != nil {
		return nil, fmt.Errorf("list over-quota inbounds: %w", err)
	}

	report := &DisableReport{Expired: []int64{}, OverQuota: []int64{}}
	reasons := make(map[int64]string)
	var targets []*repository.Inbound
	for _, in := range expired {
		report.Expired = append(report.Expired, in.ID)
		reasons[in.ID] = notifier.ReasonExpired
		targets = append(targets, in)
	}
	for _, in := range overQuota {
		report.OverQuota = append(report.OverQuota, in.ID)
		if _, seen := reasons[in.ID]; seen {
			continue
		}
		reasons[in.ID] = notifier.ReasonOverQuota
		targets = append(targets, in)
	}
	if len(targets) == 0 {
		return report, nil
	}

	ids := make([]int64, 0, len(targets))
	for _, in := range targets {
		ids = append(ids, in.ID)
	}
	n, err := s.inbounds.SetEnable(ctx, ids, false)
	if err != nil {
		return nil, fmt.Errorf("disable inbounds: %w", err)
	}
	report.Disabled = n

	if s.notifier != nil {
		for _, in := range targets {
			notice := notifier.InboundDisabled{
				InboundID: in.ID,
				UserID:    in.UserID,
				Tag:       in.Tag,
				Port:      in.Port,
				Reason:    reasons[in.ID],
			}
			if err := s.notifier.InboundDisabled(ctx, notice); err != nil {
				s.logger.WarnContext(ctx, "inbound notice failed", "id", in.ID, "error", err)
			}
		}
	}
	return report, nil
}

func (s *inboundService) buildFull(input InboundInput) (inbound.Config, error) {
	b := inbound.NewInboundConfigBuilder(s.now)
	if input.UserID != nil {
		b.WithUserID(*input.UserID)
	}
	if input.Up != nil {
		b.WithUp(input.Up)
	}
	if input.Down != nil {
		b.WithDown(input.Down)
	}
	if input.Total != nil {
		b.WithTotal(input.Total)
	}
	if input.Remark != nil {
		b.WithRemark(sanitizeRemark(*input.Remark))
	}
	if input.Enable != nil {
		b.WithEnable(*input.Enable)
	}
	if input.ExpiryTime != nil {
		b.WithExpiryTime(input.ExpiryTime)
	}
	if input.Listen != nil {
		b.WithListen(strings.TrimSpace(*input.Listen))
	}
	if input.Port != nil {
		b.WithPort(*input.Port)
	}
	if input.Protocol != nil {
		b.WithProtocol(inbound.Protocol(strings.ToLower(strings.TrimSpace(*input.Protocol))))
	}
	if input.Tag != nil {
		b.WithTag(strings.TrimSpace(*input.Tag))
	}
	if input.Settings != nil {
		b.WithSettings(*input.Settings)
	}
	if input.StreamSettings != nil {
		b.WithStreamSettings(*input.StreamSettings)
	}
	if input.Sniffing != nil {
		b.WithSniffing(*input.Sniffing)
	}
	return b.Build()
}

func (s *inboundService) buildEasy(input EasyInboundInput) (inbound.Config, error) {
	d := s.defaults
	b := inbound.NewEasyInboundConfigBuilder(inbound.EasyOptions{
		Clock:        s.now,
		Certificates: d.Certificates,
		DestOverride: d.DestOverride,
	})

	b.WithUserID(valueOr(input.UserID, d.UserID))
	b.WithUp(anyOr(input.Up, d.Up))
	b.WithDown(anyOr(input.Down, d.Down))
	b.WithTotal(anyOr(input.Total, d.Total))
	b.WithRemark(sanitizeRemark(valueOr(input.Remark, "")))
	b.WithEnable(valueOr(input.Enable, true))
	b.WithExpiryTime(anyOr(input.ExpiryTime, d.Expiry))
	b.WithListen(strings.TrimSpace(valueOr(input.Listen, "")))
	if input.Port != nil {
		b.WithPort(*input.Port)
		b.WithTag(strings.TrimSpace(valueOr(input.Tag, "inbound-"+strconv.Itoa(*input.Port))))
	} else if input.Tag != nil {
		b.WithTag(strings.TrimSpace(*input.Tag))
	}
	b.WithProtocol(inbound.Protocol(strings.ToLower(strings.TrimSpace(valueOr(input.Protocol, d.Protocol)))))
	b.WithClientID(valueOr(input.UUID, uuid.Nil))
	b.WithNetwork(inbound.Network(strings.ToLower(strings.TrimSpace(valueOr(input.Network, d.Network)))))
	b.WithSecurity(valueOr(input.Security, d.Security))
	b.WithServerName(strings.TrimSpace(valueOr(input.ServerName, d.ServerName)))
	b.WithWsPath(strings.TrimSpace(valueOr(input.WsPath, inbound.RandomPath(d.WsPathLength))))
	b.WithSniffing(valueOr(input.Sniffing, true))
	return b.Build()
}

func (s *inboundService) persist(ctx context.Context, cfg inbound.Config) (*InboundView, error) {
	if err := s.checkConflicts(ctx, cfg, 0); err != nil {
		return nil, err
	}
	record, err := s.inbounds.Create(ctx, recordOf(cfg))
	if err != nil {
		return nil, s.mapWriteError(ctx, cfg, 0, err)
	}
	s.logger.InfoContext(ctx, "inbound created", "id", record.ID, "port", record.Port, "tag", record.Tag, "protocol", record.Protocol)
	return viewOf(record)
}

// checkConflicts 预先检查端口与 tag 唯一性，excludeID 为正时忽略自身。
func (s *inboundService) checkConflicts(ctx context.Context, cfg inbound.Config, excludeID int64) error {
	if existing, err := s.inbounds.FindByPort(ctx, cfg.Port); err == nil {
		if existing.ID != excludeID {
			return &ConflictError{Field: "port", Value: cfg.Port}
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check inbound port: %w", err)
	}
	if existing, err := s.inbounds.FindByTag(ctx, cfg.Tag); err == nil {
		if existing.ID != excludeID {
			return &ConflictError{Field: "tag", Value: cfg.Tag}
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check inbound tag: %w", err)
	}
	return nil
}

// mapWriteError 处理预检查与写入之间的并发冲突。
func (s *inboundService) mapWriteError(ctx context.Context, cfg inbound.Config, excludeID int64, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		if cerr := s.checkConflicts(ctx, cfg, excludeID); cerr != nil {
			return cerr
		}
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return fmt.Errorf("save inbound: %w", err)
	}
}

func findInbound[K any](ctx context.Context, lookup func(context.Context, K) (*repository.Inbound, error), key K) (*repository.Inbound, error) {
	record, err := lookup(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find inbound: %w", err)
	}
	return record, nil
}

func recordOf(cfg inbound.Config) *repository.Inbound {
	return &repository.Inbound{
		UserID:         cfg.UserID,
		Up:             cfg.Up,
		Down:           cfg.Down,
		Total:          cfg.Total,
		Remark:         cfg.Remark,
		Enable:         cfg.Enable,
		ExpiryTime:     cfg.ExpiryTime,
		Listen:         cfg.Listen,
		Port:           cfg.Port,
		Protocol:       string(cfg.Protocol),
		Settings:       cfg.Settings,
		StreamSettings: cfg.StreamSettings,
		Tag:            cfg.Tag,
		Sniffing:       cfg.Sniffing,
	}
}

func configOf(record *repository.Inbound) inbound.Config {
	return inbound.Config{
		UserID:         record.UserID,
		Up:             record.Up,
		Down:           record.Down,
		Total:          record.Total,
		Remark:         record.Remark,
		Enable:         record.Enable,
		ExpiryTime:     record.ExpiryTime,
		Listen:         record.Listen,
		Port:           record.Port,
		Protocol:       inbound.Protocol(record.Protocol),
		Settings:       record.Settings,
		StreamSettings: record.StreamSettings,
		Tag:            record.Tag,
		Sniffing:       record.Sniffing,
	}
}

func viewOf(record *repository.Inbound) (*InboundView, error) {
	view, err := viewOfConfig(configOf(record))
	if err != nil {
		return nil, fmt.Errorf("inbound %d: %w", record.ID, err)
	}
	view.ID = record.ID
	view.CreatedAt = record.CreatedAt
	view.UpdatedAt = record.UpdatedAt
	return view, nil
}

func viewOfConfig(cfg inbound.Config) (*InboundView, error) {
	settings, err := cfg.DecodeSettings()
	if err != nil {
		return nil, err
	}
	stream, err := cfg.DecodeStreamSettings()
	if err != nil {
		return nil, err
	}
	sniffing, err := cfg.DecodeSniffing()
	if err != nil {
		return nil, err
	}
	return &InboundView{
		UserID:         cfg.UserID,
		Up:             cfg.Up,
		Down:           cfg.Down,
		Total:          cfg.Total,
		Remark:         cfg.Remark,
		Enable:         cfg.Enable,
		ExpiryTime:     cfg.ExpiryTime,
		Listen:         cfg.Listen,
		Port:           cfg.Port,
		Protocol:       cfg.Protocol,
		Settings:       settings,
		StreamSettings: stream,
		Tag:            cfg.Tag,
		Sniffing:       sniffing,
	}, nil
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func anyOr(v any, def string) any {
	if v == nil {
		return def
	}
	return v
}
