package memorystore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeySetStore_ExpiresEntries(t *testing.T) {
	s := NewKeySetStore(time.Minute)
	defer s.Close()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "https://keys", []byte(`{"keys":[]}`)))

	doc, ok, err := s.Get(ctx, "https://keys")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"keys":[]}`, string(doc))

	now = now.Add(time.Minute)
	_, ok, err = s.Get(ctx, "https://keys")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestKeySetStore_ReturnsCopies(t *testing.T) {
	s := NewKeySetStore(0)
	defer s.Close()
	ctx := context.Background()
	doc := []byte("abc")
	require.NoError(t, s.Put(ctx, "u", doc))
	doc[0] = 'x'

	got, ok, err := s.Get(ctx, "u")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abc", string(got))
	require.NoError(t, s.Close())
}
