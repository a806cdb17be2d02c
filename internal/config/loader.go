package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 为环境变量前缀，例如 XTLS_CRUD_HTTP_ADDR。
const EnvPrefix = "XTLS_CRUD"

// Load 读取配置。file 非空时只读取该文件，否则在当前目录与 /etc/xtls-crud/ 中查找 config.yaml。
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/xtls-crud/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// 没有配置文件时依赖默认值与环境变量。
	}

	if err := loadDotEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "0.0.0.0:8000")
	v.SetDefault("http.shutdown_timeout", "15s")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.body_limit", "1MB")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "production")

	v.SetDefault("database.path", "data/xtls-crud.db")
	v.SetDefault("database.connect_retries", 5)
	v.SetDefault("database.connect_backoff", "200ms")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", "8h")
	v.SetDefault("auth.refresh_ttl", "720h")
	v.SetDefault("auth.issuer", "xtls-crud")
	v.SetDefault("auth.audience", "xtls-crud-api")
	v.SetDefault("auth.leeway", "30s")
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.admin_token", "")
	v.SetDefault("auth.first_superuser", "admin@example.com")
	v.SetDefault("auth.first_superuser_password", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "xtls_crud")
	v.SetDefault("metrics.subsystem", "http")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.limit", 120)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.builder_limit", 10)
	v.SetDefault("rate_limit.login_limit", 5)

	v.SetDefault("inbound.site_url", "")
	v.SetDefault("inbound.certificate_file", "/root/cert.crt")
	v.SetDefault("inbound.key_file", "/root/private.key")
	v.SetDefault("inbound.default_up", "100GB")
	v.SetDefault("inbound.default_down", "100GB")
	v.SetDefault("inbound.default_total", "0")
	v.SetDefault("inbound.default_expiry", "1MO")
	v.SetDefault("inbound.default_protocol", "vmess")
	v.SetDefault("inbound.default_network", "ws")
	v.SetDefault("inbound.default_security", "tls")
	v.SetDefault("inbound.dest_override", []string{"http", "tls"})
	v.SetDefault("inbound.ws_path_length", 6)
	v.SetDefault("inbound.expiry_job_spec", "@every 1m")
	v.SetDefault("inbound.expiry_job_enabled", true)

	v.SetDefault("project.name", "xtls-crud")
	v.SetDefault("project.version", "0.1.0")
	v.SetDefault("project.description", "CRUD API for Xray inbound configurations")
	v.SetDefault("project.docs_url", "/docs")

	v.SetDefault("i18n.default_lang", "en-US")
	v.SetDefault("i18n.dir", "")
}

func loadDotEnv(v *viper.Viper) error {
	candidates := []string{".", ".."}
	for _, path := range candidates {
		file := filepath.Clean(filepath.Join(path, ".env"))
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat .env: %w", err)
		}

		envViper := viper.New()
		envViper.SetConfigFile(file)
		envViper.SetConfigType("env")
		if err := envViper.ReadInConfig(); err != nil {
			return fmt.Errorf("read .env: %w", err)
		}
		bindFlatEnv(v, envViper)
	}
	return nil
}

// flatEnvKeys 将部署脚本常用的扁平变量名映射到层级配置。
var flatEnvKeys = map[string]string{
	"HTTP_ADDR":                "http.addr",
	"SHUTDOWN_TIMEOUT":         "http.shutdown_timeout",
	"LOG_LEVEL":                "log.level",
	"LOG_FORMAT":               "log.format",
	"APP_ENV":                  "log.environment",
	"DB_PATH":                  "database.path",
	"SECRET_KEY":               "auth.signing_key",
	"ADMIN_TOKEN":              "auth.admin_token",
	"TOKEN_TTL":                "auth.token_ttl",
	"FIRST_SUPERUSER":          "auth.first_superuser",
	"FIRST_SUPERUSER_PASSWORD": "auth.first_superuser_password",
	"SITE_URL":                 "inbound.site_url",
	"CERT_FILE":                "inbound.certificate_file",
	"KEY_FILE":                 "inbound.key_file",
	"PROJECT_NAME":             "project.name",
	"PROJECT_VERSION":          "project.version",
}

func bindFlatEnv(target *viper.Viper, source *viper.Viper) {
	for oldKey, newKey := range flatEnvKeys {
		val := source.GetString(oldKey)
		if val == "" {
			continue
		}
		// Set 的优先级高于环境变量，已显式设置环境变量的键跳过。
		if _, ok := os.LookupEnv(envName(newKey)); ok {
			continue
		}
		target.Set(newKey, val)
	}
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
