package inbound

import (
	"strings"
	"time"

	"github.com/amiwrpremium/xtls-crud/internal/units"
)

// Clock supplies "now" for relative expiry values.
type Clock func() time.Time

// InboundConfigBuilder assembles a Config from scalar fields and pre-built
// sub-objects. Size and expiry setters coerce immediately; the first coercion
// error is kept and returned by Build.
type InboundConfigBuilder struct {
	clock Clock
	err   error

	userID         slot[int64]
	up             slot[int64]
	down           slot[int64]
	total          slot[int64]
	remark         slot[string]
	enable         slot[bool]
	expiryTime     slot[int64]
	listen         slot[string]
	port           slot[int]
	protocol       slot[Protocol]
	tag            slot[string]
	settings       slot[ClientSetting]
	streamSettings slot[StreamSettings]
	sniffing       slot[Sniffing]
}

// NewInboundConfigBuilder 创建构建器；clock 为空时使用 time.Now。
func NewInboundConfigBuilder(clock Clock) *InboundConfigBuilder {
	if clock == nil {
		clock = time.Now
	}
	return &InboundConfigBuilder{clock: clock}
}

// Err returns the first coercion error recorded by a setter.
func (b *InboundConfigBuilder) Err() error {
	return b.err
}

func (b *InboundConfigBuilder) fail(field string, err error) {
	if b.err == nil {
		b.err = &ValidationError{Field: field, Reason: err.Error(), Err: err}
	}
}

func (b *InboundConfigBuilder) WithUserID(id int64) *InboundConfigBuilder {
	b.userID.put(id)
	return b
}

// WithUp accepts anything units.CoerceSize understands.
func (b *InboundConfigBuilder) WithUp(v any) *InboundConfigBuilder {
	b.putSize("up", &b.up, v)
	return b
}

func (b *InboundConfigBuilder) WithDown(v any) *InboundConfigBuilder {
	b.putSize("down", &b.down, v)
	return b
}

func (b *InboundConfigBuilder) WithTotal(v any) *InboundConfigBuilder {
	b.putSize("total", &b.total, v)
	return b
}

func (b *InboundConfigBuilder) putSize(field string, dst *slot[int64], v any) {
	n, err := units.CoerceSize(v)
	if err != nil {
		b.fail(field, err)
		return
	}
	dst.put(n)
}

func (b *InboundConfigBuilder) WithRemark(remark string) *InboundConfigBuilder {
	b.remark.put(strings.TrimSpace(remark))
	return b
}

func (b *InboundConfigBuilder) WithEnable(enable bool) *InboundConfigBuilder {
	b.enable.put(enable)
	return b
}

// WithExpiryTime accepts anything units.CoerceExpiry understands.
func (b *InboundConfigBuilder) WithExpiryTime(v any) *InboundConfigBuilder {
	millis, err := units.CoerceExpiry(v, b.clock())
	if err != nil {
		b.fail("expiry_time", err)
		return b
	}
	b.expiryTime.put(millis)
	return b
}

func (b *InboundConfigBuilder) WithListen(listen string) *InboundConfigBuilder {
	b.listen.put(strings.TrimSpace(listen))
	return b
}

func (b *InboundConfigBuilder) WithPort(port int) *InboundConfigBuilder {
	b.port.put(port)
	return b
}

func (b *InboundConfigBuilder) WithProtocol(protocol Protocol) *InboundConfigBuilder {
	b.protocol.put(Protocol(strings.ToLower(strings.TrimSpace(string(protocol)))))
	return b
}

func (b *InboundConfigBuilder) WithTag(tag string) *InboundConfigBuilder {
	b.tag.put(strings.TrimSpace(tag))
	return b
}

func (b *InboundConfigBuilder) WithSettings(settings ClientSetting) *InboundConfigBuilder {
	b.settings.put(settings.clone())
	return b
}

func (b *InboundConfigBuilder) WithStreamSettings(settings StreamSettings) *InboundConfigBuilder {
	b.streamSettings.put(settings.clone())
	return b
}

func (b *InboundConfigBuilder) WithSniffing(sniffing Sniffing) *InboundConfigBuilder {
	sniffing.DestOverride = append([]string{}, sniffing.DestOverride...)
	b.sniffing.put(sniffing)
	return b
}

// Build validates every field and serializes the sub-objects. Nothing is
// returned unless the whole record is valid.
func (b *InboundConfigBuilder) Build() (Config, error) {
	if b.err != nil {
		return Config{}, b.err
	}
	if err := checkSlots("InboundConfigBuilder",
		required("user_id", b.userID),
		required("up", b.up),
		required("down", b.down),
		required("total", b.total),
		required("remark", b.remark),
		required("enable", b.enable),
		required("expiry_time", b.expiryTime),
		required("listen", b.listen),
		required("port", b.port),
		required("protocol", b.protocol),
		required("tag", b.tag),
		required("settings", b.settings),
		required("stream_settings", b.streamSettings),
		required("sniffing", b.sniffing),
	); err != nil {
		return Config{}, err
	}

	if err := b.settings.value.Validate(); err != nil {
		return Config{}, nested("settings", err)
	}
	if err := b.streamSettings.value.Validate(); err != nil {
		return Config{}, nested("stream_settings", err)
	}
	if err := b.sniffing.value.Validate(); err != nil {
		return Config{}, nested("sniffing", err)
	}

	cfg := Config{
		UserID:     b.userID.value,
		Up:         b.up.value,
		Down:       b.down.value,
		Total:      b.total.value,
		Remark:     b.remark.value,
		Enable:     b.enable.value,
		ExpiryTime: b.expiryTime.value,
		Listen:     b.listen.value,
		Port:       b.port.value,
		Protocol:   b.protocol.value,
		Tag:        b.tag.value,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	var err error
	if cfg.Settings, err = encodeEmbedded("settings", b.settings.value); err != nil {
		return Config{}, err
	}
	if cfg.StreamSettings, err = encodeEmbedded("stream_settings", b.streamSettings.value); err != nil {
		return Config{}, err
	}
	if cfg.Sniffing, err = encodeEmbedded("sniffing", b.sniffing.value); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
