package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AuthOptions{})

	_, err := f.users.Create(ctx, CreateUserInput{Email: "not-an-email", Password: "long-enough"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = f.users.Create(ctx, CreateUserInput{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidPassword)

	u, err := f.users.Create(ctx, CreateUserInput{Email: "A@Example.com", Password: "long-enough", FullName: " Ann "})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)
	assert.Equal(t, "Ann", u.FullName)
	assert.True(t, u.IsActive)

	_, err = f.users.Create(ctx, CreateUserInput{Email: "a@example.com", Password: "long-enough"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserList(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AuthOptions{})
	for _, email := range []string{"a@example.com", "b@example.com", "c@test.org"} {
		_, err := f.users.Create(ctx, CreateUserInput{Email: email, Password: "long-enough"})
		require.NoError(t, err)
	}

	list, err := f.users.List(ctx, UserListInput{Keyword: "example"})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
	assert.Equal(t, int64(3), list.Total)
}

func TestUserResetPasswordRevokesSessions(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AuthOptions{})
	seedUser(t, f, "user@example.com", false)
	res, err := f.auth.Login(ctx, LoginInput{Identifier: "user@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, f.users.ResetPassword(ctx, "user@example.com", "battery-staple"))

	_, err = f.auth.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = f.auth.Login(ctx, LoginInput{Identifier: "user@example.com", Password: "battery-staple"})
	assert.NoError(t, err)

	assert.ErrorIs(t, f.users.ResetPassword(ctx, "ghost@example.com", "battery-staple"), ErrNotFound)
}

func TestEnsureSuperuser(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, AuthOptions{})

	_, err := f.users.EnsureSuperuser(ctx, "root@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	created, err := f.users.EnsureSuperuser(ctx, "root@example.com", "long-enough")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.users.EnsureSuperuser(ctx, "root@example.com", "long-enough")
	require.NoError(t, err)
	assert.False(t, created)

	res, err := f.auth.Login(ctx, LoginInput{Identifier: "root@example.com", Password: "long-enough"})
	require.NoError(t, err)
	assert.True(t, res.IsSuperuser)
}
