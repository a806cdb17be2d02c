package sqlite

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amiwrpremium/xtls-crud/internal/bootstrap"
	"github.com/amiwrpremium/xtls-crud/internal/migrations"
	"github.com/amiwrpremium/xtls-crud/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := bootstrap.OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"), bootstrap.DBOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(ctx, db))
	return NewStore(db)
}

func sampleInbound(port int, tag string) *repository.Inbound {
	return &repository.Inbound{
		UserID:         1,
		Up:             10,
		Down:           20,
		Total:          0,
		Remark:         "node " + tag,
		Enable:         true,
		ExpiryTime:     0,
		Port:           port,
		Protocol:       "vmess",
		Settings:       `{"clients":[]}`,
		StreamSettings: `{"network":"ws"}`,
		Tag:            tag,
		Sniffing:       `{"enabled":true}`,
	}
}

func TestInboundCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Inbounds()

	created, err := repo.Create(ctx, sampleInbound(443, "a"))
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", byID.Tag)
	assert.True(t, byID.Enable)
	assert.Equal(t, `{"network":"ws"}`, byID.StreamSettings)

	byPort, err := repo.FindByPort(ctx, 443)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byPort.ID)

	byTag, err := repo.FindByTag(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byTag.ID)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInboundUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Inbounds()

	_, err := repo.Create(ctx, sampleInbound(443, "a"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, sampleInbound(443, "b"))
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = repo.Create(ctx, sampleInbound(8443, "a"))
	assert.ErrorIs(t, err, repository.ErrConflict)

	second, err := repo.Create(ctx, sampleInbound(8443, "b"))
	require.NoError(t, err)
	second.Port = 443
	assert.ErrorIs(t, repo.Update(ctx, second), repository.ErrConflict)
}

func TestInboundListFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Inbounds()
	for i, tag := range []string{"a", "b", "c"} {
		in := sampleInbound(1000+i, tag)
		if tag == "b" {
			in.Enable = false
			in.Protocol = "trojan"
			in.UserID = 2
		}
		_, err := repo.Create(ctx, in)
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, repository.InboundFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Tag)

	enabled := true
	list, err := repo.List(ctx, repository.InboundFilter{Enable: &enabled})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = repo.List(ctx, repository.InboundFilter{Protocol: "TROJAN"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].Tag)

	uid := int64(2)
	n, err := repo.Count(ctx, repository.InboundFilter{UserID: &uid})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err = repo.List(ctx, repository.InboundFilter{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b", list[0].Tag)

	port := 1002
	list, err = repo.List(ctx, repository.InboundFilter{Port: &port, Remark: "node"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c", list[0].Tag)
}

func TestInboundUpdateDeleteAndTraffic(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Inbounds()
	in, err := repo.Create(ctx, sampleInbound(443, "a"))
	require.NoError(t, err)

	in.Remark = "renamed"
	in.Total = 100
	require.NoError(t, repo.Update(ctx, in))

	require.NoError(t, repo.AddTraffic(ctx, in.ID, 30, 40))
	got, err := repo.FindByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Remark)
	assert.Equal(t, int64(40), got.Up)
	assert.Equal(t, int64(60), got.Down)

	over, err := repo.ListOverQuota(ctx)
	require.NoError(t, err)
	require.Len(t, over, 1)

	changed, err := repo.SetEnable(ctx, []int64{in.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)
	over, err = repo.ListOverQuota(ctx)
	require.NoError(t, err)
	assert.Empty(t, over)

	require.NoError(t, repo.Delete(ctx, in.ID))
	assert.ErrorIs(t, repo.Delete(ctx, in.ID), repository.ErrNotFound)
	assert.ErrorIs(t, repo.AddTraffic(ctx, in.ID, 1, 1), repository.ErrNotFound)
}

func TestInboundAddTrafficRejectsOverflow(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Inbounds()
	in, err := repo.Create(ctx, sampleInbound(443, "a"))
	require.NoError(t, err)

	in.Up = math.MaxInt64 - 5
	require.NoError(t, repo.Update(ctx, in))

	assert.ErrorIs(t, repo.AddTraffic(ctx, in.ID, 6, 0), repository.ErrOverflow)
	got, err := repo.FindByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64-5), got.Up)
	assert.Equal(t, int64(20), got.Down)

	require.NoError(t, repo.AddTraffic(ctx, in.ID, 5, 1))
	got, err = repo.FindByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got.Up)
	assert.Equal(t, int64(21), got.Down)

	assert.ErrorIs(t, repo.AddTraffic(ctx, in.ID, 0, math.MaxInt64), repository.ErrOverflow)
}

func TestInboundRemarkFilterMatchesWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Inbounds()
	for i, remark := range []string{"50% off", "500 off", "a_b", "axb", `c\d`} {
		in := sampleInbound(2000+i, fmt.Sprintf("t%d", i))
		in.Remark = remark
		_, err := repo.Create(ctx, in)
		require.NoError(t, err)
	}

	list, err := repo.List(ctx, repository.InboundFilter{Remark: "50%"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "50% off", list[0].Remark)

	list, err = repo.List(ctx, repository.InboundFilter{Remark: "a_b"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a_b", list[0].Remark)

	list, err = repo.List(ctx, repository.InboundFilter{Remark: `c\d`})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = repo.List(ctx, repository.InboundFilter{Remark: "%"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "50% off", list[0].Remark)
}

func TestInboundListExpired(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Inbounds()
	now := time.Now().UnixMilli()

	past := sampleInbound(1, "past")
	past.ExpiryTime = now - 1000
	future := sampleInbound(2, "future")
	future.ExpiryTime = now + 60_000
	never := sampleInbound(3, "never")
	for _, in := range []*repository.Inbound{past, future, never} {
		_, err := repo.Create(ctx, in)
		require.NoError(t, err)
	}

	expired, err := repo.ListExpired(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "past", expired[0].Tag)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Users()

	u, err := repo.Create(ctx, &repository.User{Email: " Admin@Example.com ", Password: "hash", IsActive: true, IsSuperuser: true})
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", u.Email)

	_, err = repo.Create(ctx, &repository.User{Email: "admin@example.com", Password: "x"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	found, err := repo.FindByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.True(t, found.IsSuperuser)

	found.FullName = "Root"
	found.IsActive = false
	require.NoError(t, repo.Save(ctx, found))
	again, err := repo.FindByID(ctx, found.ID)
	require.NoError(t, err)
	assert.Equal(t, "Root", again.FullName)
	assert.False(t, again.IsActive)

	list, err := repo.List(ctx, repository.UserFilter{Keyword: "root"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, found.ID))
	_, err = repo.FindByID(ctx, found.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSettingRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestStore(t).Settings()

	_, err := repo.Get(ctx, "k")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.InsertIfAbsent(ctx, &repository.Setting{Key: "k", Value: "first", Category: "c", UpdatedAt: 1}))
	require.NoError(t, repo.InsertIfAbsent(ctx, &repository.Setting{Key: "k", Value: "second", Category: "c", UpdatedAt: 2}))
	s, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "first", s.Value)

	require.NoError(t, repo.Upsert(ctx, &repository.Setting{Key: "k", Value: "third", Category: "c", UpdatedAt: 3}))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "third", list[0].Value)
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	user, err := store.Users().Create(ctx, &repository.User{Email: "a@b.c", Password: "x", IsActive: true})
	require.NoError(t, err)

	repo := store.Tokens()
	_, err = repo.Create(ctx, &repository.AccessToken{UserID: user.ID, RefreshToken: "r1", ExpiresAt: 1, RefreshExpiresAt: 2, IP: "127.0.0.1"})
	require.NoError(t, err)

	got, err := repo.FindByRefreshToken(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", got.IP)
	assert.Empty(t, got.UserAgent)

	require.NoError(t, repo.DeleteByRefreshToken(ctx, "r1"))
	_, err = repo.FindByRefreshToken(ctx, "r1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.Create(ctx, &repository.AccessToken{UserID: user.ID, RefreshToken: "r2"})
	require.NoError(t, err)
	require.NoError(t, repo.DeleteByUser(ctx, user.ID))
	_, err = repo.FindByRefreshToken(ctx, "r2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
