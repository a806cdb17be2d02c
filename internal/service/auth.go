// 文件路径: internal/service/auth.go
// 模块说明: 登录、令牌校验、刷新与注销；支持静态管理令牌。
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amiwrpremium/xtls-crud/internal/auth/token"
	"github.com/amiwrpremium/xtls-crud/internal/cache"
	"github.com/amiwrpremium/xtls-crud/internal/repository"
	"github.com/amiwrpremium/xtls-crud/internal/security"
	"github.com/amiwrpremium/xtls-crud/internal/support/hash"
)

// AuthService coordinates login and session issuance.
type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Verify(ctx context.Context, rawToken string) (*Principal, error)
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// LoginInput represents the payload required for user login.
type LoginInput struct {
	Identifier string
	Password   string
	IP         string
	UserAgent  string
}

// LoginResult returns issued token information.
type LoginResult struct {
	AccessToken      string    `json:"access_token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshToken     string    `json:"refresh_token,omitempty"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at,omitzero"`
	UserID           int64     `json:"user_id"`
	Email            string    `json:"email"`
	IsSuperuser      bool      `json:"is_superuser"`
}

// Principal is the authenticated caller behind a request.
type Principal struct {
	UserID      int64  `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name,omitempty"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
	// AdminToken is set when the static admin token authenticated the call.
	AdminToken bool `json:"admin_token,omitempty"`
}

// AuthOptions tunes login throttling and the static admin token.
type AuthOptions struct {
	AdminToken    string
	AdminEmail    string
	LoginLimit    int
	LoginWindow   time.Duration
	FailureLimit  int
	FailureWindow time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

const (
	defaultLoginLimit    = 100
	defaultFailureLimit  = 5
	defaultRefreshTTL    = 30 * 24 * time.Hour
	defaultFailureWindow = time.Hour
)

type authService struct {
	users         repository.UserRepository
	tokens        repository.TokenRepository
	hasher        hash.Hasher
	tokenMgr      *token.Manager
	rate          *security.RateLimiter
	audit         security.Recorder
	loginFailures cache.Store
	opts          AuthOptions
}

// NewAuthService wires repository + infrastructure helpers.
func NewAuthService(users repository.UserRepository, tokens repository.TokenRepository, hasher hash.Hasher, tokenMgr *token.Manager, rate *security.RateLimiter, audit security.Recorder, cacheStore cache.Store, opts AuthOptions) AuthService {
	var loginFailures cache.Store
	if cacheStore != nil {
		loginFailures = cacheStore.Namespace("auth").Namespace("password_fail")
	}
	if opts.LoginLimit <= 0 {
		opts.LoginLimit = defaultLoginLimit
	}
	if opts.LoginWindow <= 0 {
		opts.LoginWindow = time.Minute
	}
	if opts.FailureLimit <= 0 {
		opts.FailureLimit = defaultFailureLimit
	}
	if opts.FailureWindow <= 0 {
		opts.FailureWindow = defaultFailureWindow
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = defaultRefreshTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.AdminToken = strings.TrimSpace(opts.AdminToken)
	opts.AdminEmail = normalizeEmail(opts.AdminEmail)
	return &authService{
		users:         users,
		tokens:        tokens,
		hasher:        hasher,
		tokenMgr:      tokenMgr,
		rate:          rate,
		audit:         audit,
		loginFailures: loginFailures,
		opts:          opts,
	}
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if s == nil || s.users == nil || s.tokenMgr == nil || s.hasher == nil {
		return nil, fmt.Errorf("auth service not fully configured / 认证服务未完整配置")
	}
	identifier := normalizeEmail(input.Identifier)
	if identifier == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.ensurePasswordLimit(ctx, identifier); err != nil {
		s.recordAudit(ctx, security.EventLoginThrottled, identifier, input, map[string]any{"reason": "password_limit"})
		return nil, err
	}
	if s.rate != nil {
		res, err := s.rate.Allow(ctx, "login:"+identifier, s.opts.LoginLimit, s.opts.LoginWindow)
		if err != nil {
			return nil, err
		}
		if !res.Allowed {
			s.recordAudit(ctx, security.EventLoginThrottled, identifier, input, map[string]any{"limit": s.opts.LoginLimit})
			return nil, ErrRateLimited
		}
	}

	user, err := s.users.FindByEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.bumpLoginFailure(ctx, identifier)
			s.recordAudit(ctx, security.EventLoginFailed, identifier, input, map[string]any{"reason": "not_found"})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.Password, input.Password); err != nil {
		if errors.Is(err, hash.ErrPasswordMismatch) {
			s.bumpLoginFailure(ctx, identifier)
			s.recordAudit(ctx, security.EventLoginFailed, identifier, input, map[string]any{"reason": "password"})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		s.recordAudit(ctx, security.EventLoginFailed, identifier, input, map[string]any{"reason": "inactive"})
		return nil, ErrAccountDisabled
	}

	result, err := s.issueTokens(ctx, user, input)
	if err != nil {
		return nil, err
	}
	s.rehash(ctx, user, input.Password)
	s.clearLoginFailure(ctx, identifier)
	s.recordAudit(ctx, security.EventLoginSucceeded, identifier, input, map[string]any{"user_id": user.ID})
	return result, nil
}

// rehash 在成本参数变化后顺带升级密码哈希，失败不影响登录。
func (s *authService) rehash(ctx context.Context, user *repository.User, password string) {
	if !s.hasher.NeedsRehash(user.Password) {
		return
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return
	}
	user.Password = hashed
	user.UpdatedAt = s.opts.Now().Unix()
	_ = s.users.Save(ctx, user)
}

func (s *authService) Verify(ctx context.Context, rawToken string) (*Principal, error) {
	if s == nil || s.users == nil || s.tokenMgr == nil {
		return nil, fmt.Errorf("auth service not fully configured / 认证服务未完整配置")
	}
	tokenStr := strings.TrimSpace(rawToken)
	if tokenStr == "" {
		return nil, ErrUnauthorized
	}
	if s.opts.AdminToken != "" && subtle.ConstantTimeCompare([]byte(tokenStr), []byte(s.opts.AdminToken)) == 1 {
		return s.adminPrincipal(ctx), nil
	}

	claims, err := s.tokenMgr.Parse(tokenStr)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if claims.TokenType != token.TokenTypeAccess {
		return nil, ErrUnauthorized
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return principalOf(user), nil
}

func (s *authService) adminPrincipal(ctx context.Context) *Principal {
	s.recordAudit(ctx, security.EventAdminToken, s.opts.AdminEmail, LoginInput{}, nil)
	if s.opts.AdminEmail != "" {
		if user, err := s.users.FindByEmail(ctx, s.opts.AdminEmail); err == nil {
			p := principalOf(user)
			p.IsSuperuser = true
			p.AdminToken = true
			return p
		}
	}
	return &Principal{Email: s.opts.AdminEmail, IsActive: true, IsSuperuser: true, AdminToken: true}
}

func principalOf(user *repository.User) *Principal {
	return &Principal{
		UserID:      user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
	}
}

func (s *authService) ensurePasswordLimit(ctx context.Context, identifier string) error {
	if s.loginFailures == nil {
		return nil
	}
	if s.loginFailureCount(ctx, identifier) >= s.opts.FailureLimit {
		minutes := int(s.opts.FailureWindow.Minutes())
		return fmt.Errorf("%w: retry after %d minutes / 请在 %d 分钟后重试", ErrRateLimited, minutes, minutes)
	}
	return nil
}

func (s *authService) loginFailureCount(ctx context.Context, identifier string) int {
	raw, ok := s.loginFailures.Get(ctx, loginFailureKey(identifier))
	if !ok {
		return 0
	}
	switch v := raw.(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (s *authService) bumpLoginFailure(ctx context.Context, identifier string) {
	if s.loginFailures == nil {
		return
	}
	_, _ = s.loginFailures.Increment(ctx, loginFailureKey(identifier), 1, s.opts.FailureWindow)
}

func (s *authService) clearLoginFailure(ctx context.Context, identifier string) {
	if s.loginFailures == nil {
		return
	}
	s.loginFailures.Delete(ctx, loginFailureKey(identifier))
}

func loginFailureKey(identifier string) string {
	return "PASSWORD_ERROR_LIMIT_" + identifier
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if s == nil || s.tokens == nil {
		return nil, fmt.Errorf("refresh not supported / 不支持刷新令牌")
	}
	trimmed := strings.TrimSpace(refreshToken)
	if trimmed == "" {
		return nil, ErrInvalidRefreshToken
	}
	record, err := s.tokens.FindByRefreshToken(ctx, trimmed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if record.RefreshExpiresAt <= s.opts.Now().Unix() {
		_ = s.tokens.DeleteByRefreshToken(ctx, trimmed)
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		_ = s.tokens.DeleteByRefreshToken(ctx, trimmed)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if err := s.tokens.DeleteByRefreshToken(ctx, trimmed); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	meta := LoginInput{Identifier: user.Email, IP: record.IP, UserAgent: record.UserAgent}
	result, err := s.issueTokens(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, security.EventTokenRefreshed, user.Email, meta, map[string]any{"user_id": user.ID})
	return result, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if s == nil || s.tokens == nil {
		return nil
	}
	trimmed := strings.TrimSpace(refreshToken)
	if trimmed == "" {
		return nil
	}
	err := s.tokens.DeleteByRefreshToken(ctx, trimmed)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

func (s *authService) issueTokens(ctx context.Context, user *repository.User, meta LoginInput) (*LoginResult, error) {
	tokenStr, claims, err := s.tokenMgr.Issue(token.IssueInput{
		Subject:   strconv.FormatInt(user.ID, 10),
		TokenType: token.TokenTypeAccess,
		Email:     user.Email,
		Superuser: user.IsSuperuser,
	})
	if err != nil {
		return nil, err
	}
	result := &LoginResult{
		AccessToken: tokenStr,
		TokenType:   "bearer",
		ExpiresAt:   claims.ExpiresAt.Time,
		UserID:      user.ID,
		Email:       user.Email,
		IsSuperuser: user.IsSuperuser,
	}
	if s.tokens == nil {
		return result, nil
	}
	now := s.opts.Now().UTC()
	refresh := uuid.NewString()
	expires := now.Add(s.opts.RefreshTTL)
	record := &repository.AccessToken{
		UserID:           user.ID,
		Token:            tokenStr,
		RefreshToken:     refresh,
		ExpiresAt:        result.ExpiresAt.Unix(),
		RefreshExpiresAt: expires.Unix(),
		IP:               strings.TrimSpace(meta.IP),
		UserAgent:        strings.TrimSpace(meta.UserAgent),
		CreatedAt:        now.Unix(),
	}
	if _, err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token / 刷新令牌写入失败: %w", err)
	}
	result.RefreshToken = refresh
	result.RefreshExpiresAt = expires
	return result, nil
}

func (s *authService) recordAudit(ctx context.Context, kind string, identifier string, input LoginInput, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	payload := map[string]any{"identifier": identifier}
	for k, v := range metadata {
		payload[k] = v
	}
	s.audit.Record(ctx, security.Event{
		Kind:      kind,
		ActorID:   identifier,
		IP:        input.IP,
		UserAgent: input.UserAgent,
		Metadata:  payload,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
