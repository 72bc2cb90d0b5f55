package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestKeySetStore_PutGetExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewKeySetStore(rdb, "", 10*time.Minute)
	ctx := context.Background()
	url := "https://www.googleapis.com/oauth2/v3/certs"

	_, ok, err := s.Get(ctx, url)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Put(ctx, url, []byte(`{"keys":[]}`)))
	doc, ok, err := s.Get(ctx, url)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"keys":[]}`, string(doc))
	require.True(t, mr.Exists("moodkit:jwks:"+url))

	mr.FastForward(11 * time.Minute)
	_, ok, err = s.Get(ctx, url)
	require.NoError(t, err)
	require.False(t, ok)
}
