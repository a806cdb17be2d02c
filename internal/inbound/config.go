// 文件路径: internal/inbound/config.go
// 模块说明: 入站配置记录，嵌套对象以 JSON 文本形式保存。
package inbound

import (
	"encoding/json"
	"fmt"
	"net"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Protocol is the proxy protocol an inbound speaks.
type Protocol string

const (
	ProtocolVMess        Protocol = "vmess"
	ProtocolVLESS        Protocol = "vless"
	ProtocolTrojan       Protocol = "trojan"
	ProtocolSocks        Protocol = "socks"
	ProtocolHTTP         Protocol = "http"
	ProtocolShadowsocks  Protocol = "shadowsocks"
	ProtocolDokodemoDoor Protocol = "dokodemo-door"
)

var Protocols = []Protocol{
	ProtocolVMess, ProtocolVLESS, ProtocolTrojan, ProtocolSocks,
	ProtocolHTTP, ProtocolShadowsocks, ProtocolDokodemoDoor,
}

func (p Protocol) Valid() bool {
	return slices.Contains(Protocols, p)
}

const (
	MinPort        = 1
	MaxPort        = 65535
	MaxRemarkRunes = 255
)

var remarkPattern = regexp.MustCompile(`^[\p{L}\p{N}_\-\s]*$`)

// Config is the canonical inbound record handed to persistence.
// Total == 0 means the inbound has no traffic quota.
type Config struct {
	UserID         int64    `json:"user_id"`
	Up             int64    `json:"up"`
	Down           int64    `json:"down"`
	Total          int64    `json:"total"`
	Remark         string   `json:"remark"`
	Enable         bool     `json:"enable"`
	ExpiryTime     int64    `json:"expiry_time"`
	Listen         string   `json:"listen"`
	Port           int      `json:"port"`
	Protocol       Protocol `json:"protocol"`
	Settings       string   `json:"settings"`
	StreamSettings string   `json:"stream_settings"`
	Tag            string   `json:"tag"`
	Sniffing       string   `json:"sniffing"`
}

// Validate checks the scalar invariants of the record.
func (c Config) Validate() error {
	if c.UserID <= 0 {
		return invalid("user_id", "must be positive, got %d", c.UserID)
	}
	if c.Up < 0 {
		return invalid("up", "must be >= 0, got %d", c.Up)
	}
	if c.Down < 0 {
		return invalid("down", "must be >= 0, got %d", c.Down)
	}
	if c.Total < 0 {
		return invalid("total", "must be >= 0, got %d", c.Total)
	}
	if c.ExpiryTime < 0 {
		return invalid("expiry_time", "must be >= 0, got %d", c.ExpiryTime)
	}
	if err := ValidateRemark(c.Remark); err != nil {
		return err
	}
	if c.Listen != "" && net.ParseIP(c.Listen) == nil {
		return invalid("listen", "must be empty or an IP address, got %q", c.Listen)
	}
	if c.Port < MinPort || c.Port > MaxPort {
		return invalid("port", "must be within %d-%d, got %d", MinPort, MaxPort, c.Port)
	}
	if !c.Protocol.Valid() {
		return invalid("protocol", "unsupported protocol %q", c.Protocol)
	}
	if strings.TrimSpace(c.Tag) == "" {
		return invalid("tag", "is required")
	}
	return nil
}

// ValidateRemark enforces the remark length and character set.
func ValidateRemark(remark string) error {
	if utf8.RuneCountInString(remark) > MaxRemarkRunes {
		return invalid("remark", "must be at most %d characters", MaxRemarkRunes)
	}
	if !remarkPattern.MatchString(remark) {
		return invalid("remark", "only letters, digits, '_', '-' and spaces are allowed")
	}
	return nil
}

// DecodeSettings parses the embedded settings text.
func (c Config) DecodeSettings() (ClientSetting, error) {
	var out ClientSetting
	if err := decodeEmbedded("settings", c.Settings, &out); err != nil {
		return ClientSetting{}, err
	}
	return out, nil
}

// DecodeStreamSettings parses the embedded stream_settings text.
func (c Config) DecodeStreamSettings() (StreamSettings, error) {
	var out StreamSettings
	if err := decodeEmbedded("stream_settings", c.StreamSettings, &out); err != nil {
		return StreamSettings{}, err
	}
	return out, nil
}

// DecodeSniffing parses the embedded sniffing text.
func (c Config) DecodeSniffing() (Sniffing, error) {
	var out Sniffing
	if err := decodeEmbedded("sniffing", c.Sniffing, &out); err != nil {
		return Sniffing{}, err
	}
	return out, nil
}

func encodeEmbedded(field string, v any) (string, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", field, err)
	}
	return string(buf), nil
}

func decodeEmbedded(field, raw string, dest any) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("decode %s: empty document", field)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("decode %s: %w", field, err)
	}
	return nil
}
