// 文件路径: internal/inbound/easy.go
// 模块说明: 简化版入站构建器，由少量标量推导出 settings/stream_settings/sniffing。
package inbound

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

const pathLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomPath returns "/" followed by n random ASCII letters.
func RandomPath(n int) string {
	var sb strings.Builder
	sb.Grow(n + 1)
	sb.WriteByte('/')
	for range n {
		sb.WriteByte(pathLetters[rand.IntN(len(pathLetters))])
	}
	return sb.String()
}

// EasyOptions carries the values the easy builder does not expose as setters.
type EasyOptions struct {
	Clock        Clock
	Certificates []Certificate
	DestOverride []string
	WsHeaders    map[string]string
}

// EasyInboundConfigBuilder accepts scalars only and derives the nested blocks.
type EasyInboundConfigBuilder struct {
	opts  EasyOptions
	inner *InboundConfigBuilder

	clientID   slot[uuid.UUID]
	network    slot[Network]
	security   slot[string]
	serverName slot[string]
	wsPath     slot[string]
	sniffing   slot[bool]
}

func NewEasyInboundConfigBuilder(opts EasyOptions) *EasyInboundConfigBuilder {
	if len(opts.Certificates) == 0 {
		opts.Certificates = []Certificate{DefaultCertificate()}
	}
	if opts.DestOverride == nil {
		opts.DestOverride = DefaultDestOverride()
	}
	return &EasyInboundConfigBuilder{
		opts:  opts,
		inner: NewInboundConfigBuilder(opts.Clock),
	}
}

func (b *EasyInboundConfigBuilder) WithUserID(id int64) *EasyInboundConfigBuilder {
	b.inner.WithUserID(id)
	return b
}

func (b *EasyInboundConfigBuilder) WithUp(v any) *EasyInboundConfigBuilder {
	b.inner.WithUp(v)
	return b
}

func (b *EasyInboundConfigBuilder) WithDown(v any) *EasyInboundConfigBuilder {
	b.inner.WithDown(v)
	return b
}

func (b *EasyInboundConfigBuilder) WithTotal(v any) *EasyInboundConfigBuilder {
	b.inner.WithTotal(v)
	return b
}

func (b *EasyInboundConfigBuilder) WithRemark(remark string) *EasyInboundConfigBuilder {
	b.inner.WithRemark(remark)
	return b
}

func (b *EasyInboundConfigBuilder) WithEnable(enable bool) *EasyInboundConfigBuilder {
	b.inner.WithEnable(enable)
	return b
}

func (b *EasyInboundConfigBuilder) WithExpiryTime(v any) *EasyInboundConfigBuilder {
	b.inner.WithExpiryTime(v)
	return b
}

func (b *EasyInboundConfigBuilder) WithListen(listen string) *EasyInboundConfigBuilder {
	b.inner.WithListen(listen)
	return b
}

func (b *EasyInboundConfigBuilder) WithPort(port int) *EasyInboundConfigBuilder {
	b.inner.WithPort(port)
	return b
}

func (b *EasyInboundConfigBuilder) WithProtocol(protocol Protocol) *EasyInboundConfigBuilder {
	b.inner.WithProtocol(protocol)
	return b
}

func (b *EasyInboundConfigBuilder) WithTag(tag string) *EasyInboundConfigBuilder {
	b.inner.WithTag(tag)
	return b
}

// WithClientID sets the single client of the inbound; uuid.Nil generates one.
func (b *EasyInboundConfigBuilder) WithClientID(id uuid.UUID) *EasyInboundConfigBuilder {
	b.clientID.put(NewClient(id).ID)
	return b
}

func (b *EasyInboundConfigBuilder) WithNetwork(network Network) *EasyInboundConfigBuilder {
	b.network.put(network)
	return b
}

func (b *EasyInboundConfigBuilder) WithSecurity(security string) *EasyInboundConfigBuilder {
	b.security.put(security)
	return b
}

func (b *EasyInboundConfigBuilder) WithServerName(name string) *EasyInboundConfigBuilder {
	b.serverName.put(name)
	return b
}

func (b *EasyInboundConfigBuilder) WithWsPath(path string) *EasyInboundConfigBuilder {
	b.wsPath.put(path)
	return b
}

func (b *EasyInboundConfigBuilder) WithSniffing(enabled bool) *EasyInboundConfigBuilder {
	b.sniffing.put(enabled)
	return b
}

// Build runs the sub-object builders and hands the result to InboundConfigBuilder.
func (b *EasyInboundConfigBuilder) Build() (Config, error) {
	if err := b.inner.Err(); err != nil {
		return Config{}, err
	}
	in := b.inner
	if err := checkSlots("EasyInboundConfigBuilder",
		required("user_id", in.userID),
		required("up", in.up),
		required("down", in.down),
		required("total", in.total),
		required("remark", in.remark),
		required("enable", in.enable),
		required("expiry_time", in.expiryTime),
		required("listen", in.listen),
		required("port", in.port),
		required("protocol", in.protocol),
		required("tag", in.tag),
		required("client_id", b.clientID),
		required("network", b.network),
		required("security", b.security),
		required("server_name", b.serverName),
		required("ws_path", b.wsPath),
		required("sniffing", b.sniffing),
	); err != nil {
		return Config{}, err
	}

	settings, err := NewClientSettingBuilder().
		WithClients(Client{ID: b.clientID.value}).
		WithDisableInsecureEncryption(false).
		Build()
	if err != nil {
		return Config{}, nested("settings", err)
	}

	tls, err := NewTLSSettingsBuilder().
		WithServerName(b.serverName.value).
		WithCertificates(b.opts.Certificates...).
		Build()
	if err != nil {
		return Config{}, nested("stream_settings.tlsSettings", err)
	}
	ws, err := NewWsSettingsBuilder().
		WithPath(b.wsPath.value).
		WithHeaders(b.opts.WsHeaders).
		Build()
	if err != nil {
		return Config{}, nested("stream_settings.wsSettings", err)
	}
	stream, err := NewStreamSettingsBuilder().
		WithNetwork(b.network.value).
		WithSecurity(b.security.value).
		WithTLSSettings(tls).
		WithWsSettings(ws).
		Build()
	if err != nil {
		return Config{}, nested("stream_settings", err)
	}

	sniffing, err := NewSniffingBuilder().
		WithEnabled(b.sniffing.value).
		WithDestOverride(b.opts.DestOverride...).
		Build()
	if err != nil {
		return Config{}, nested("sniffing", err)
	}

	return in.WithSettings(settings).
		WithStreamSettings(stream).
		WithSniffing(sniffing).
		Build()
}
