package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8000", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "100GB", cfg.Inbound.DefaultUp)
	assert.Equal(t, "1MO", cfg.Inbound.DefaultExpiry)
	assert.Equal(t, []string{"http", "tls"}, cfg.Inbound.DestOverride)
	assert.Equal(t, 10, cfg.RateLimit.BuilderLimit)
	assert.Equal(t, "@every 1m", cfg.Inbound.ExpiryJobSpec)
}

func TestLoadExplicitFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	file := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
http:
  addr: 127.0.0.1:9000
inbound:
  site_url: panel.example.com
  default_protocol: vless
auth:
  token_ttl: 2h
`), 0o600))
	t.Setenv("XTLS_CRUD_INBOUND_DEFAULT_PROTOCOL", "trojan")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, "panel.example.com", cfg.Inbound.SiteURL)
	assert.Equal(t, "trojan", cfg.Inbound.DefaultProtocol)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestDotEnvFlatKeys(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SITE_URL=env.example.com\nADMIN_TOKEN=s3cret\nDB_PATH=/tmp/x.db\n"), 0o600))
	t.Setenv("XTLS_CRUD_DATABASE_PATH", "/srv/real.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env.example.com", cfg.Inbound.SiteURL)
	assert.Equal(t, "s3cret", cfg.Auth.AdminToken)
	assert.Equal(t, "/srv/real.db", cfg.DB.Path)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", LogConfig{Level: "debug"}.SlogLevel().String())
	assert.Equal(t, "WARN", LogConfig{Level: "warning"}.SlogLevel().String())
	assert.Equal(t, "INFO", LogConfig{Level: "nope"}.SlogLevel().String())
}
