package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amiwrpremium/xtls-crud/internal/cache"
)

func TestSystemHome(t *testing.T) {
	ctx := context.Background()
	inbounds, store, _ := newInboundService(t)
	_, err := inbounds.Create(ctx, fullInput(443, "a"))
	require.NoError(t, err)
	disabled := fullInput(444, "b")
	disabled.Enable = ptr(false)
	_, err = inbounds.Create(ctx, disabled)
	require.NoError(t, err)

	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewSystemService(SystemOptions{
		Name:        "xtls-crud",
		Version:     "0.1.0",
		Description: "CRUD",
		DocsURL:     "/docs",
		StartedAt:   started,
		Inbounds:    store.Inbounds(),
		Cache:       cache.NewStore(cache.Options{}),
		Now:         func() time.Time { return started.Add(3 * time.Hour) },
	})

	home, err := svc.Home(ctx)
	require.NoError(t, err)
	assert.Equal(t, "xtls-crud", home.Info.Name)
	assert.Equal(t, "/docs", home.Documentation)
	assert.Equal(t, "3 hours", home.Uptime)
	assert.Equal(t, InboundStats{Total: 2, Enabled: 1, Disabled: 1}, home.Inbounds)

	// 统计结果被缓存。
	_, err = inbounds.Create(ctx, fullInput(445, "c"))
	require.NoError(t, err)
	home, err = svc.Home(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), home.Inbounds.Total)
}
