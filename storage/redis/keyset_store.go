package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeySetStore shares raw JWKS documents between replicas through Redis.
type KeySetStore struct {
	rdb   redis.Cmdable
	keyNS string
	ttl   time.Duration
}

// NewKeySetStore creates a Redis-backed oidckit.KeySetStore.
func NewKeySetStore(rdb redis.Cmdable, keyPrefix string, ttl time.Duration) *KeySetStore {
	if keyPrefix == "" {
		keyPrefix = "moodkit:jwks:"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &KeySetStore{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (s *KeySetStore) key(url string) string { return s.keyNS + url }

// Put stores the document under the JWKS URL with the configured TTL.
func (s *KeySetStore) Put(ctx context.Context, url string, doc []byte) error {
	return s.rdb.Set(ctx, s.key(url), doc, s.ttl).Err()
}

// Get returns the shared document, if any.
func (s *KeySetStore) Get(ctx context.Context, url string) ([]byte, bool, error) {
	val, err := s.rdb.Get(ctx, s.key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}
