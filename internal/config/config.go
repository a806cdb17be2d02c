package config

import (
	"log/slog"
	"time"
)

// Config 汇总应用的全部配置。
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Inbound   InboundConfig   `mapstructure:"inbound"`
	Project   ProjectConfig   `mapstructure:"project"`
	I18n      I18nConfig      `mapstructure:"i18n"`
}

// HTTPConfig 定义 HTTP 服务配置。
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	BodyLimit       string        `mapstructure:"body_limit"`
}

// LogConfig 定义日志配置。
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	AddSource   bool   `mapstructure:"add_source"`
	Environment string `mapstructure:"environment"`
}

// DBConfig 定义数据库配置。
type DBConfig struct {
	Path           string        `mapstructure:"path"`
	ConnectRetries uint64        `mapstructure:"connect_retries"`
	ConnectBackoff time.Duration `mapstructure:"connect_backoff"`
}

// AuthConfig 定义认证配置。AdminToken 非空时可直接作为 Bearer 令牌使用。
type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	Leeway     time.Duration `mapstructure:"leeway"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
	AdminToken string        `mapstructure:"admin_token"`

	// FirstSuperuser 在 serve 启动时确保存在，也是管理令牌对应的账号。
	FirstSuperuser         string `mapstructure:"first_superuser"`
	FirstSuperuserPassword string `mapstructure:"first_superuser_password"`
}

// MetricsConfig 定义 Prometheus 指标配置。
type MetricsConfig struct {
	Enabled   bool      `mapstructure:"enabled"`
	Namespace string    `mapstructure:"namespace"`
	Subsystem string    `mapstructure:"subsystem"`
	Token     string    `mapstructure:"token"`
	Buckets   []float64 `mapstructure:"buckets"`
}

// RateLimitConfig 定义全局与接口级限流。
type RateLimitConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Limit        int           `mapstructure:"limit"`
	Window       time.Duration `mapstructure:"window"`
	BuilderLimit int           `mapstructure:"builder_limit"`
	LoginLimit   int           `mapstructure:"login_limit"`
}

// InboundConfig 定义简易构建器的默认值。大小与有效期使用单位字符串，例如 "100GB"、"1MO"。
type InboundConfig struct {
	SiteURL          string   `mapstructure:"site_url"`
	CertificateFile  string   `mapstructure:"certificate_file"`
	KeyFile          string   `mapstructure:"key_file"`
	DefaultUp        string   `mapstructure:"default_up"`
	DefaultDown      string   `mapstructure:"default_down"`
	DefaultTotal     string   `mapstructure:"default_total"`
	DefaultExpiry    string   `mapstructure:"default_expiry"`
	DefaultProtocol  string   `mapstructure:"default_protocol"`
	DefaultNetwork   string   `mapstructure:"default_network"`
	DefaultSecurity  string   `mapstructure:"default_security"`
	DestOverride     []string `mapstructure:"dest_override"`
	WsPathLength     int      `mapstructure:"ws_path_length"`
	ExpiryJobSpec    string   `mapstructure:"expiry_job_spec"`
	ExpiryJobEnabled bool     `mapstructure:"expiry_job_enabled"`
}

// ProjectConfig 定义首页展示的项目信息。
type ProjectConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Description string `mapstructure:"description"`
	DocsURL     string `mapstructure:"docs_url"`
}

// I18nConfig 定义错误信息翻译配置。
type I18nConfig struct {
	DefaultLang string `mapstructure:"default_lang"`
	Dir         string `mapstructure:"dir"`
}

func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
