package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amiwrpremium/xtls-crud/internal/auth/token"
	"github.com/amiwrpremium/xtls-crud/internal/security"
)

func seedUser(t *testing.T, f *authFixture, email string, superuser bool) *UserView {
	t.Helper()
	u, err := f.users.Create(context.Background(), CreateUserInput{Email: email, Password: "correct-horse", IsSuperuser: superuser})
	require.NoError(t, err)
	return u
}

func TestLoginIssuesTokens(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AuthOptions{})
	u := seedUser(t, f, "admin@example.com", true)

	res, err := f.auth.Login(ctx, LoginInput{Identifier: " Admin@Example.com ", Password: "correct-horse", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", res.TokenType)
	assert.Equal(t, u.ID, res.UserID)
	assert.True(t, res.IsSuperuser)
	assert.NotEmpty(t, res.RefreshToken)

	claims, err := f.tokens.Parse(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, token.TokenTypeAccess, claims.TokenType)

	p, err := f.auth.Verify(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.True(t, p.IsSuperuser)
	assert.False(t, p.AdminToken)

	assert.Contains(t, f.audit.kinds(), security.EventLoginSucceeded)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AuthOptions{})
	seedUser(t, f, "user@example.com", false)

	_, err := f.auth.Login(ctx, LoginInput{Identifier: "user@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, LoginInput{Identifier: "ghost@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login(ctx, LoginInput{Identifier: "", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Contains(t, f.audit.kinds(), security.EventLoginFailed)
}

func TestLoginFailureLimit(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AuthOptions{FailureLimit: 2, FailureWindow: time.Minute})
	seedUser(t, f, "user@example.com", false)

	for range 2 {
		_, err := f.auth.Login(ctx, LoginInput{Identifier: "user@example.com", Password: "wrong-password"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := f.auth.Login(ctx, LoginInput{Identifier: "user@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, f.audit.kinds(), security.EventLoginThrottled)
}

func TestLoginRateLimit(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AuthOptions{LoginLimit: 1})
	seedUser(t, f, "user@example.com", false)

	_, err := f.auth.Login(ctx, LoginInput{Identifier: "user@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, LoginInput{Identifier: "user@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestLoginInactiveUser(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AuthOptions{})
	_, err := f.users.Create(ctx, CreateUserInput{Email: "off@example.com", Password: "correct-horse", IsActive: ptr(false)})
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, LoginInput{Identifier: "off@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestVerifyAdminToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AuthOptions{AdminToken: "static-token", AdminEmail: "admin@example.com"})

	p, err := f.auth.Verify(ctx, "static-token")
	require.NoError(t, err)
	assert.True(t, p.AdminToken)
	assert.True(t, p.IsSuperuser)
	assert.Zero(t, p.UserID)

	u := seedUser(t, f, "admin@example.com", false)
	p, err = f.auth.Verify(ctx, "static-token")
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.True(t, p.IsSuperuser)
	assert.Contains(t, f.audit.kinds(), security.EventAdminToken)

	_, err = f.auth.Verify(ctx, "static-token-nope")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.auth.Verify(ctx, "  ")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefreshRotatesToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AuthOptions{})
	seedUser(t, f, "user@example.com", false)

	first, err := f.auth.Login(ctx, LoginInput{Identifier: "user@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	second, err := f.auth.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.auth.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	require.NoError(t, f.auth.Logout(ctx, second.RefreshToken))
	_, err = f.auth.Refresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.NoError(t, f.auth.Logout(ctx, "unknown"))
}

func TestRefreshExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	f := newAuthFixture(t, AuthOptions{RefreshTTL: time.Hour, Now: func() time.Time { return now }})
	seedUser(t, f, "user@example.com", false)

	res, err := f.auth.Login(ctx, LoginInput{Identifier: "user@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = f.auth.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
