package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amiwrpremium/xtls-crud/internal/config"
	"github.com/amiwrpremium/xtls-crud/internal/repository"
)

type memSettings struct {
	values map[string]repository.Setting
	getErr error
}

func newMemSettings() *memSettings {
	return &memSettings{values: map[string]repository.Setting{}}
}

func (m *memSettings) Get(_ context.Context, key string) (*repository.Setting, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.values[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m *memSettings) Upsert(_ context.Context, s *repository.Setting) error {
	m.values[s.Key] = *s
	return nil
}

func (m *memSettings) InsertIfAbsent(_ context.Context, s *repository.Setting) error {
	if cur, ok := m.values[s.Key]; ok && strings.TrimSpace(cur.Value) != "" {
		return nil
	}
	m.values[s.Key] = *s
	return nil
}

func (m *memSettings) List(context.Context) ([]repository.Setting, error) {
	return nil, nil
}

func TestResolveJWTSigningKeyPriority(t *testing.T) {
	ctx := context.Background()
	settings := newMemSettings()

	key, src, err := ResolveJWTSigningKey(ctx, settings, " configured ", nil)
	require.NoError(t, err)
	assert.Equal(t, "configured", key)
	assert.Equal(t, JWTSigningKeySourceConfig, src)

	random := bytes.NewReader(bytes.Repeat([]byte{0xab}, jwtSigningKeyBytes))
	key, src, err = resolveJWTSigningKey(ctx, settings, "", time.Now, random)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("ab", jwtSigningKeyBytes), key)
	assert.Equal(t, JWTSigningKeySourceGenerated, src)

	again, src, err := ResolveJWTSigningKey(ctx, settings, "", nil)
	require.NoError(t, err)
	assert.Equal(t, key, again)
	assert.Equal(t, JWTSigningKeySourceSettings, src)
}

func TestResolveJWTSigningKeyErrors(t *testing.T) {
	_, _, err := ResolveJWTSigningKey(context.Background(), nil, "", nil)
	assert.Error(t, err)

	settings := newMemSettings()
	settings.getErr = errors.New("disk on fire")
	_, _, err = ResolveJWTSigningKey(context.Background(), settings, "", nil)
	assert.ErrorContains(t, err, "disk on fire")
}

func TestOpenSQLite(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "", DBOptions{})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "nested", "app.db")
	db, err := OpenSQLite(context.Background(), path, DBOptions{Retries: 1})
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode;").Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))
}

func TestBuildInfrastructure(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{Issuer: "i", Audience: "a", TokenTTL: time.Hour, BcryptCost: 4}}
	infra, err := BuildInfrastructure(cfg, "secret", nil)
	require.NoError(t, err)
	assert.NotNil(t, infra.Token)
	assert.NotNil(t, infra.RateLimiter)

	_, err = BuildInfrastructure(cfg, "", nil)
	assert.Error(t, err)

	cfg.Auth.BcryptCost = 99
	_, err = BuildInfrastructure(cfg, "secret", nil)
	assert.Error(t, err)

	_, err = BuildInfrastructure(nil, "secret", nil)
	assert.Error(t, err)
}

func TestNewHTTPServer(t *testing.T) {
	srv := NewHTTPServer(config.HTTPConfig{Addr: ":0"}, nil)
	assert.Equal(t, ":0", srv.Addr)
	assert.Equal(t, 10*time.Second, srv.ReadHeaderTimeout)
}
