// 文件路径: internal/inbound/stream.go
// 模块说明: 传输层配置（TLS、WebSocket）及其构建器。
package inbound

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Network is the transport an inbound listens with.
type Network string

const (
	NetworkWS   Network = "ws"
	NetworkTCP  Network = "tcp"
	NetworkKCP  Network = "kcp"
	NetworkQUIC Network = "quic"
	NetworkHTTP Network = "http"
	NetworkGRPC Network = "grpc"
)

// Networks lists every supported transport.
var Networks = []Network{NetworkWS, NetworkTCP, NetworkKCP, NetworkQUIC, NetworkHTTP, NetworkGRPC}

func (n Network) Valid() bool {
	return slices.Contains(Networks, n)
}

// 默认证书路径，与面板部署脚本保持一致。
const (
	DefaultCertificateFile = "/root/cert.crt"
	DefaultKeyFile         = "/root/private.key"
)

type Certificate struct {
	CertificateFile string `json:"certificateFile"`
	KeyFile         string `json:"keyFile"`
}

// DefaultCertificate points at the panel's default certificate pair.
func DefaultCertificate() Certificate {
	return Certificate{CertificateFile: DefaultCertificateFile, KeyFile: DefaultKeyFile}
}

func (c Certificate) Validate() error {
	if strings.TrimSpace(c.CertificateFile) == "" {
		return invalid("certificateFile", "path is required")
	}
	if strings.TrimSpace(c.KeyFile) == "" {
		return invalid("keyFile", "path is required")
	}
	return nil
}

type TLSSettings struct {
	ServerName   string        `json:"serverName"`
	Certificates []Certificate `json:"certificates"`
}

// UnmarshalJSON adds DefaultCertificate when certificates is absent or null.
func (t *TLSSettings) UnmarshalJSON(data []byte) error {
	type plain TLSSettings
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Certificates == nil {
		raw.Certificates = []Certificate{DefaultCertificate()}
	}
	*t = TLSSettings(raw)
	return nil
}

func (t TLSSettings) Validate() error {
	if strings.ContainsAny(t.ServerName, " \t\r\n/") {
		return invalid("serverName", "must be a bare host name, got %q", t.ServerName)
	}
	if len(t.Certificates) == 0 {
		return invalid("certificates", "at least one certificate is required")
	}
	for i, cert := range t.Certificates {
		if err := cert.Validate(); err != nil {
			return nested(fmt.Sprintf("certificates[%d]", i), err)
		}
	}
	return nil
}

type WsSettings struct {
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
}

func (w WsSettings) Validate() error {
	if !strings.HasPrefix(w.Path, "/") {
		return invalid("path", "must start with \"/\", got %q", w.Path)
	}
	return nil
}

type StreamSettings struct {
	Network     Network     `json:"network"`
	Security    string      `json:"security"`
	TLSSettings TLSSettings `json:"tlsSettings"`
	WsSettings  WsSettings  `json:"wsSettings"`
}

func (s StreamSettings) Validate() error {
	if !s.Network.Valid() {
		return invalid("network", "unsupported network %q", s.Network)
	}
	if strings.TrimSpace(s.Security) == "" {
		return invalid("security", "is required")
	}
	if err := s.TLSSettings.Validate(); err != nil {
		return nested("tlsSettings", err)
	}
	if err := s.WsSettings.Validate(); err != nil {
		return nested("wsSettings", err)
	}
	return nil
}

func (s StreamSettings) clone() StreamSettings {
	s.TLSSettings.Certificates = append([]Certificate(nil), s.TLSSettings.Certificates...)
	s.WsSettings.Headers = cloneHeaders(s.WsSettings.Headers)
	return s
}

func cloneHeaders(src map[string]string) map[string]string {
	if src == nil {
		return map[string]string{}
	}
	return maps.Clone(src)
}

// TLSSettingsBuilder accumulates TLS settings.
type TLSSettingsBuilder struct {
	serverName   slot[string]
	certificates slot[[]Certificate]
}

func NewTLSSettingsBuilder() *TLSSettingsBuilder {
	return &TLSSettingsBuilder{}
}

func (b *TLSSettingsBuilder) WithServerName(name string) *TLSSettingsBuilder {
	b.serverName.put(strings.TrimSpace(name))
	return b
}

func (b *TLSSettingsBuilder) WithCertificates(certs ...Certificate) *TLSSettingsBuilder {
	b.certificates.put(append([]Certificate(nil), certs...))
	return b
}

func (b *TLSSettingsBuilder) Build() (TLSSettings, error) {
	if err := checkSlots("TLSSettingsBuilder",
		required("serverName", b.serverName),
		required("certificates", b.certificates),
	); err != nil {
		return TLSSettings{}, err
	}
	settings := TLSSettings{
		ServerName:   b.serverName.value,
		Certificates: append([]Certificate(nil), b.certificates.value...),
	}
	if err := settings.Validate(); err != nil {
		return TLSSettings{}, err
	}
	return settings, nil
}

// WsSettingsBuilder accumulates WebSocket transport settings.
type WsSettingsBuilder struct {
	path    slot[string]
	headers slot[map[string]string]
}

func NewWsSettingsBuilder() *WsSettingsBuilder {
	return &WsSettingsBuilder{}
}

func (b *WsSettingsBuilder) WithPath(path string) *WsSettingsBuilder {
	b.path.put(path)
	return b
}

func (b *WsSettingsBuilder) WithHeaders(headers map[string]string) *WsSettingsBuilder {
	b.headers.put(cloneHeaders(headers))
	return b
}

func (b *WsSettingsBuilder) Build() (WsSettings, error) {
	if err := checkSlots("WsSettingsBuilder",
		required("path", b.path),
		required("headers", b.headers),
	); err != nil {
		return WsSettings{}, err
	}
	settings := WsSettings{Path: b.path.value, Headers: cloneHeaders(b.headers.value)}
	if err := settings.Validate(); err != nil {
		return WsSettings{}, err
	}
	return settings, nil
}

// StreamSettingsBuilder accumulates the transport block of an inbound.
type StreamSettingsBuilder struct {
	network     slot[Network]
	security    slot[string]
	tlsSettings slot[TLSSettings]
	wsSettings  slot[WsSettings]
}

func NewStreamSettingsBuilder() *StreamSettingsBuilder {
	return &StreamSettingsBuilder{}
}

func (b *StreamSettingsBuilder) WithNetwork(network Network) *StreamSettingsBuilder {
	b.network.put(Network(strings.ToLower(strings.TrimSpace(string(network)))))
	return b
}

func (b *StreamSettingsBuilder) WithSecurity(security string) *StreamSettingsBuilder {
	b.security.put(strings.ToLower(strings.TrimSpace(security)))
	return b
}

func (b *StreamSettingsBuilder) WithTLSSettings(settings TLSSettings) *StreamSettingsBuilder {
	b.tlsSettings.put(settings)
	return b
}

func (b *StreamSettingsBuilder) WithWsSettings(settings WsSettings) *StreamSettingsBuilder {
	b.wsSettings.put(settings)
	return b
}

func (b *StreamSettingsBuilder) Build() (StreamSettings, error) {
	if err := checkSlots("StreamSettingsBuilder",
		required("network", b.network),
		required("security", b.security),
		required("tlsSettings", b.tlsSettings),
		required("wsSettings", b.wsSettings),
	); err != nil {
		return StreamSettings{}, err
	}
	settings := StreamSettings{
		Network:     b.network.value,
		Security:    b.security.value,
		TLSSettings: b.tlsSettings.value,
		WsSettings:  b.wsSettings.value,
	}.clone()
	if err := settings.Validate(); err != nil {
		return StreamSettings{}, err
	}
	return settings, nil
}
