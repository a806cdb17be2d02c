// 文件路径: internal/bootstrap/jwt_signing_key.go
// 模块说明: 解析 JWT 签名密钥，优先级：配置/环境变量 > settings 表 > 自动生成并持久化。
package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/amiwrpremium/xtls-crud/internal/repository"
)

type JWTSigningKeySource string

const (
	jwtSigningKeySettingKey = "auth_signing_key"
	jwtSigningKeyCategory   = "security"
	jwtSigningKeyBytes      = 32
	signingKeyHint          = "you can set XTLS_CRUD_AUTH_SIGNING_KEY"

	JWTSigningKeySourceConfig    JWTSigningKeySource = "config"
	JWTSigningKeySourceSettings  JWTSigningKeySource = "settings"
	JWTSigningKeySourceGenerated JWTSigningKeySource = "generated"
)

// ResolveJWTSigningKey returns the key to sign access tokens with and where it came from.
func ResolveJWTSigningKey(ctx context.Context, settings repository.SettingRepository, configuredKey string, now func() time.Time) (string, JWTSigningKeySource, error) {
	return resolveJWTSigningKey(ctx, settings, configuredKey, now, rand.Reader)
}

func resolveJWTSigningKey(ctx context.Context, settings repository.SettingRepository, configuredKey string, now func() time.Time, random io.Reader) (string, JWTSigningKeySource, error) {
	if key := strings.TrimSpace(configuredKey); key != "" {
		return key, JWTSigningKeySourceConfig, nil
	}
	if settings == nil {
		return "", "", fmt.Errorf("resolve jwt signing key: settings repository is required; %s", signingKeyHint)
	}
	if now == nil {
		now = time.Now
	}

	existing, err := readSigningKey(ctx, settings)
	if err != nil {
		return "", "", fmt.Errorf("read jwt signing key: %w; %s", err, signingKeyHint)
	}
	if existing != "" {
		return existing, JWTSigningKeySourceSettings, nil
	}

	buf := make([]byte, jwtSigningKeyBytes)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", "", fmt.Errorf("generate jwt signing key: %w; %s", err, signingKeyHint)
	}
	generated := hex.EncodeToString(buf)

	if err := settings.InsertIfAbsent(ctx, &repository.Setting{
		Key:       jwtSigningKeySettingKey,
		Value:     generated,
		Category:  jwtSigningKeyCategory,
		UpdatedAt: now().Unix(),
	}); err != nil {
		return "", "", fmt.Errorf("persist jwt signing key: %w; %s", err, signingKeyHint)
	}

	// 并发启动时以先写入者为准。
	resolved, err := readSigningKey(ctx, settings)
	if err != nil {
		return "", "", fmt.Errorf("read jwt signing key after persistence: %w", err)
	}
	if resolved == "" {
		return "", "", fmt.Errorf("jwt signing key not found after persistence; %s", signingKeyHint)
	}
	if resolved == generated {
		return resolved, JWTSigningKeySourceGenerated, nil
	}
	return resolved, JWTSigningKeySourceSettings, nil
}

func readSigningKey(ctx context.Context, settings repository.SettingRepository) (string, error) {
	s, err := settings.Get(ctx, jwtSigningKeySettingKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(s.Value), nil
}
