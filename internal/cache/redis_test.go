package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := NewRedis(RedisOptions{Addr: mr.Addr()})
	t.Cleanup(func() { r.Close() })
	return r, mr
}

func TestRedis_SetGet(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)

	require.NoError(t, r.Set(ctx, "mta:stations", `[{"stationId":"127N"}]`, time.Hour))

	got, err := r.Get(ctx, "mta:stations")
	require.NoError(t, err)
	assert.Equal(t, `[{"stationId":"127N"}]`, got)
	assert.Equal(t, time.Hour, mr.TTL("mta:stations"))
}

func TestRedis_MissAndExpiry(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)

	_, err := r.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, r.Set(ctx, "snap", "v", 2*time.Minute))
	mr.FastForward(3 * time.Minute)

	_, err = r.Get(ctx, "snap")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedis_Unavailable(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRedis(t)
	mr.Close()

	assert.Error(t, r.Ping(ctx))
	assert.Error(t, r.Set(ctx, "k", "v", time.Minute))

	_, err := r.Get(ctx, "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}
