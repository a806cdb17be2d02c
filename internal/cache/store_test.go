package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementKeepsWindow(t *testing.T) {
	ctx := context.Background()
	s := NewStore(Options{Prefix: "test"})

	n, err := s.Increment(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.Increment(ctx, "k", 2, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	ttl, ok := s.TTL(ctx, "k")
	require.True(t, ok)
	assert.LessOrEqual(t, ttl, time.Minute)

	_, err = s.Increment(ctx, " ", 1, time.Minute)
	assert.Error(t, err)
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	root := NewStore(Options{})
	a := root.Namespace("a")
	b := root.Namespace("b")

	require.NoError(t, a.Set(ctx, "k", "va", 0))
	_, ok := b.Get(ctx, "k")
	assert.False(t, ok)

	v, ok := root.Get(ctx, "a:k")
	require.True(t, ok)
	assert.Equal(t, "va", v)

	a.Delete(ctx, "k")
	_, ok = a.Get(ctx, "k")
	assert.False(t, ok)
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(Options{})
	require.NoError(t, s.SetJSON(ctx, "home", map[string]string{"name": "x"}, time.Minute))

	var out map[string]string
	ok, err := s.GetJSON(ctx, "home", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", out["name"])

	ok, err = s.GetJSON(ctx, "missing", &out)
	assert.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "raw", 5, time.Minute))
	_, err = s.GetJSON(ctx, "raw", &out)
	assert.Error(t, err)
}
