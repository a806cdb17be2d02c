// 文件路径: internal/repository/sqlite/token.go
// 模块说明: refresh_tokens 表，保存登录签发的刷新令牌。
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/amiwrpremium/xtls-crud/internal/repository"
)

type tokenRepo struct {
	db *sql.DB
}

func (r *tokenRepo) Create(ctx context.Context, token *repository.AccessToken) (*repository.AccessToken, error) {
	if token == nil {
		return nil, fmt.Errorf("refresh token 数据为空 / token is nil")
	}
	if token.UserID == 0 || strings.TrimSpace(token.RefreshToken) == "" {
		return nil, fmt.Errorf("userID 和 refresh token 不能为空 / user id and refresh token are required")
	}
	if token.CreatedAt == 0 {
		token.CreatedAt = time.Now().Unix()
	}
	const stmt = `INSERT INTO refresh_tokens(user_id, token, refresh_token, expires_at, refresh_expires_at, ip, user_agent, created_at)
                  VALUES(?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt,
		token.UserID,
		token.Token,
		token.RefreshToken,
		token.ExpiresAt,
		token.RefreshExpiresAt,
		nullableString(token.IP),
		nullableString(token.UserAgent),
		token.CreatedAt,
	)
	if err != nil {
		return nil, mapWriteError("create refresh token", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		token.ID = id
	}
	return token, nil
}

func (r *tokenRepo) FindByRefreshToken(ctx context.Context, refreshToken string) (*repository.AccessToken, error) {
	trimmed := strings.TrimSpace(refreshToken)
	if trimmed == "" {
		return nil, repository.ErrNotFound
	}
	const query = `SELECT id, user_id, token, refresh_token, expires_at, refresh_expires_at, ip, user_agent, created_at
                   FROM refresh_tokens WHERE refresh_token = ? LIMIT 1`
	var (
		rec repository.AccessToken
		ip  sql.NullString
		ua  sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, trimmed).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Token,
		&rec.RefreshToken,
		&rec.ExpiresAt,
		&rec.RefreshExpiresAt,
		&ip,
		&ua,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	rec.IP = ip.String
	rec.UserAgent = ua.String
	return &rec, nil
}

func (r *tokenRepo) DeleteByRefreshToken(ctx context.Context, refreshToken string) error {
	trimmed := strings.TrimSpace(refreshToken)
	if trimmed == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE refresh_token = ?`, trimmed)
	return err
}

func (r *tokenRepo) DeleteByUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	return err
}
