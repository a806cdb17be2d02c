package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager(Options{
		SigningKey: []byte("test-secret"),
		Issuer:     "xtls-crud",
		Audience:   "api",
		TTL:        time.Hour,
		Now:        now,
	})
	require.NoError(t, err)
	return m
}

func TestIssueAndParse(t *testing.T) {
	m := newManager(t, nil)
	signed, issued, err := m.Issue(IssueInput{Subject: "7", Email: "a@b.c", Superuser: true})
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAccess, issued.TokenType)

	claims, err := m.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.True(t, claims.Superuser)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	old := newManager(t, func() time.Time { return past })
	signed, _, err := old.Issue(IssueInput{Subject: "1"})
	require.NoError(t, err)

	_, err = newManager(t, nil).Parse(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other, err := NewManager(Options{SigningKey: []byte("other"), Issuer: "xtls-crud", Audience: "api"})
	require.NoError(t, err)
	foreign, _, err := other.Issue(IssueInput{Subject: "1"})
	require.NoError(t, err)
	_, err = newManager(t, nil).Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = newManager(t, nil).Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseChecksAudience(t *testing.T) {
	other, err := NewManager(Options{SigningKey: []byte("test-secret"), Issuer: "xtls-crud", Audience: "elsewhere"})
	require.NoError(t, err)
	signed, _, err := other.Issue(IssueInput{Subject: "1"})
	require.NoError(t, err)

	_, err = newManager(t, nil).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshKeepsIdentity(t *testing.T) {
	m := newManager(t, nil)
	_, claims, err := m.Issue(IssueInput{Subject: "3", Email: "x@y.z"})
	require.NoError(t, err)

	signed, refreshed, err := m.Refresh(claims, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "3", refreshed.Subject)
	assert.Equal(t, "x@y.z", refreshed.Email)

	parsed, err := m.Parse(signed)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), parsed.ExpiresAt.Time, 5*time.Second)
}

func TestNewManagerRequiresKey(t *testing.T) {
	_, err := NewManager(Options{})
	assert.Error(t, err)
}
