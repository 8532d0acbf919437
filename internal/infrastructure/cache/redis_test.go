package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestViewCacheAndRevalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.GetView(ctx, "/api/v1/families/1/registrations")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetView(ctx, "/api/v1/families/1/registrations", `{"success":true}`, time.Minute))
	require.NoError(t, c.SetView(ctx, "/api/v1/families/2/registrations", `{"success":true}`, time.Minute))
	assert.True(t, mr.Exists("view:/api/v1/families/1/registrations"))

	body, ok, err := c.GetView(ctx, "/api/v1/families/1/registrations")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"success":true}`, body)

	require.NoError(t, c.Revalidate(ctx, "/api/v1/families/1/registrations", "/api/v1/admin/families/1/balances"))
	_, ok, err = c.GetView(ctx, "/api/v1/families/1/registrations")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.GetView(ctx, "/api/v1/families/2/registrations")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.GetView(ctx, "/api/v1/families/2/registrations")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIdempotentKeepsFirstValue(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetIdempotent(ctx, "k", "first", time.Hour))
	require.NoError(t, c.SetIdempotent(ctx, "k", "second", time.Hour))

	val, ok, err := c.GetIdempotent(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "first", val)
}

func TestHealth(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	c := NewRedisCache(mr.Addr(), "", 0)
	defer c.Close()
	require.NoError(t, c.Health(context.Background()))

	mr.Close()
	assert.Error(t, c.Health(context.Background()))
}
