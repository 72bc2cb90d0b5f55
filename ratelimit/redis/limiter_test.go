package redislimiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestAllowNamed_SharedAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	limits := map[string]Limit{"auth_register": {Limit: 2, Window: time.Minute}}
	a := New(rdb, limits).WithClock(clock)
	b := New(rdb, limits).WithClock(clock)
	ctx := context.Background()

	ok, err := a.AllowNamed(ctx, "auth_register", "ip")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = b.AllowNamed(ctx, "auth_register", "ip")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = a.AllowNamed(ctx, "auth_register", "ip")
	require.NoError(t, err)
	require.False(t, ok)
	n, err := rdb.ZCard(ctx, "moodkit:rl:auth_register:ip").Result()
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	now = now.Add(time.Minute)
	ok, err = b.AllowNamed(ctx, "auth_register", "ip")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAllowNamed_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	_, err := New(rdb, nil).AllowNamed(context.Background(), "auth_login", "ip")
	require.Error(t, err)
}
