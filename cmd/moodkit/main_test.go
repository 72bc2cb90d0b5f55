package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	oidckit "github.com/PaulFidika/moodkit/oidc"
)

type flakyFetcher struct {
	mu  sync.Mutex
	err error
}

func (f *flakyFetcher) FetchKeys(context.Context, bool) (oidckit.SigningKeySet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return oidckit.SigningKeySet{"k1": &rsa.PublicKey{}}, nil
}

func TestPrewarmKeys(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	f := &flakyFetcher{}
	keys := oidckit.NewKeyCache(f, oidckit.WithCacheLogger(log))

	prewarmKeys(context.Background(), keys, log)
	require.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
	require.Equal(t, "signing keys prewarmed", hook.LastEntry().Message)

	f.mu.Lock()
	f.err = errors.New("503 Service Unavailable")
	f.mu.Unlock()
	hook.Reset()

	prewarmKeys(context.Background(), keys, log)
	entry := hook.LastEntry()
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Equal(t, "signing key prewarm failed, serving cached keys", entry.Message)
	require.Equal(t, 1, entry.Data["failures"])
	require.Equal(t, false, entry.Data["stale"])
}

func TestPrewarmKeysWithoutCache(t *testing.T) {
	log, hook := test.NewNullLogger()
	keys := oidckit.NewKeyCache(&flakyFetcher{err: errors.New("dial tcp: refused")}, oidckit.WithCacheLogger(log))

	prewarmKeys(context.Background(), keys, log)
	entry := hook.LastEntry()
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Equal(t, "signing key prewarm failed", entry.Message)
}
