package oidckit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultCacheTTL is how long a fetched key set is served without refetching.
	DefaultCacheTTL = 12 * time.Hour
	// DefaultMaxStale is how long past expiry a key set may still be served
	// when the provider cannot be reached.
	DefaultMaxStale = time.Hour
	// DefaultMinRefreshInterval throttles forced refreshes triggered by
	// tokens carrying an unknown kid.
	DefaultMinRefreshInterval = 5 * time.Minute
	// maxRetryBackoff caps the wait between fetch attempts while stale keys
	// are being served.
	maxRetryBackoff = 30 * time.Minute
)

type keyState struct {
	keys      SigningKeySet
	fetchedAt time.Time
	expiresAt time.Time
	// retryAt and failures are set while refreshes are failing. Until
	// retryAt, expired keys are served without contacting the provider.
	retryAt  time.Time
	failures int
}

func (st *keyState) fresh(now time.Time) bool {
	return now.Before(st.expiresAt)
}

// KeyCache holds the signing keys of one identity provider. Readers see a
// whole key set from a single fetch; concurrent misses share one fetch.
type KeyCache struct {
	fetcher      KeyFetcher
	ttl          time.Duration
	maxStale     time.Duration
	minRefresh   time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	log          logrus.FieldLogger

	state   atomic.Pointer[keyState]
	flight  singleflight.Group
	fetches atomic.Int64
}

// CacheOpt configures a KeyCache.
type CacheOpt func(*KeyCache)

// WithTTL overrides DefaultCacheTTL.
func WithTTL(d time.Duration) CacheOpt {
	return func(c *KeyCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithMaxStale overrides DefaultMaxStale. Zero disables stale serving.
func WithMaxStale(d time.Duration) CacheOpt {
	return func(c *KeyCache) {
		if d >= 0 {
			c.maxStale = d
		}
	}
}

// WithMinRefreshInterval overrides DefaultMinRefreshInterval.
func WithMinRefreshInterval(d time.Duration) CacheOpt {
	return func(c *KeyCache) {
		if d >= 0 {
			c.minRefresh = d
		}
	}
}

// WithFetchTimeout bounds each fetch issued by the cache.
func WithFetchTimeout(d time.Duration) CacheOpt {
	return func(c *KeyCache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) CacheOpt {
	return func(c *KeyCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCacheLogger sets the logger for refresh events.
func WithCacheLogger(l logrus.FieldLogger) CacheOpt {
	return func(c *KeyCache) {
		if l != nil {
			c.log = l
		}
	}
}

// NewKeyCache creates an empty cache in front of fetcher.
func NewKeyCache(fetcher KeyFetcher, opts ...CacheOpt) *KeyCache {
	c := &KeyCache{
		fetcher:      fetcher,
		ttl:          DefaultCacheTTL,
		maxStale:     DefaultMaxStale,
		minRefresh:   DefaultMinRefreshInterval,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Keys returns the cached key set, fetching when the cache is empty or expired.
// After a failed refresh the expired set is served without fetching until the
// retry backoff elapses, never past the staleness ceiling.
func (c *KeyCache) Keys(ctx context.Context) (SigningKeySet, error) {
	if st := c.state.Load(); st != nil && (st.fresh(c.now()) || c.backingOff(st)) {
		return st.keys, nil
	}
	return c.load(ctx, false)
}

func (c *KeyCache) backingOff(st *keyState) bool {
	now := c.now()
	return now.Before(st.retryAt) && now.Before(st.expiresAt.Add(c.maxStale))
}

// Refresh fetches a new key set straight from the provider, ignoring expiry.
// A failed fetch still returns the cached set while it is within the
// staleness ceiling; Stats reports the failure.
func (c *KeyCache) Refresh(ctx context.Context) (SigningKeySet, error) {
	return c.load(ctx, true)
}

// refreshForRotation forces a refresh unless the current set was fetched
// within the minimum refresh interval. The bool reports whether a fetch ran.
func (c *KeyCache) refreshForRotation(ctx context.Context) (SigningKeySet, bool, error) {
	if st := c.state.Load(); st != nil && (c.now().Sub(st.fetchedAt) < c.minRefresh || c.now().Before(st.retryAt)) {
		return st.keys, false, nil
	}
	keys, err := c.Refresh(ctx)
	return keys, true, err
}

func (c *KeyCache) load(ctx context.Context, force bool) (SigningKeySet, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	flightKey := "keys"
	if force {
		flightKey = "refresh"
	}
	ch := c.flight.DoChan(flightKey, func() (any, error) {
		if !force {
			if st := c.state.Load(); st != nil && (st.fresh(c.now()) || c.backingOff(st)) {
				return st, nil
			}
		}
		// The fetch is shared, so one caller's cancellation must not fail the others.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		keys, err := c.fetcher.FetchKeys(fctx, force)
		c.fetches.Add(1)
		if err != nil {
			c.recordFailure()
			return nil, err
		}
		now := c.now()
		st := &keyState{keys: keys, fetchedAt: now, expiresAt: now.Add(c.ttl)}
		c.state.Store(st)
		c.log.WithFields(logrus.Fields{
			"keys":       len(keys),
			"expires_at": st.expiresAt,
			"forced":     force,
		}).Info("oidc: signing keys refreshed")
		return st, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return c.staleOr(res.Err)
		}
		return res.Val.(*keyState).keys, nil
	}
}

// recordFailure schedules the next fetch attempt, doubling the wait after
// each consecutive failure. The key set itself is left untouched.
func (c *KeyCache) recordFailure() {
	prev := c.state.Load()
	if prev == nil {
		return
	}
	next := *prev
	next.failures++
	backoff := c.minRefresh
	for i := 1; i < next.failures && backoff < maxRetryBackoff; i++ {
		backoff *= 2
	}
	next.retryAt = c.now().Add(min(backoff, maxRetryBackoff))
	c.state.CompareAndSwap(prev, &next)
}

// staleOr serves the previous key set while it is within the staleness
// ceiling; otherwise it reports the fetch failure.
func (c *KeyCache) staleOr(fetchErr error) (SigningKeySet, error) {
	st := c.state.Load()
	if st != nil && c.now().Before(st.expiresAt.Add(c.maxStale)) {
		c.log.WithError(fetchErr).WithField("expires_at", st.expiresAt).Warn("oidc: key refresh failed, serving cached keys")
		return st.keys, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrKeyFetch, fetchErr)
}

// KeyCacheStats is a point-in-time view of the cache.
type KeyCacheStats struct {
	KeyCount  int       `json:"key_count"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Fetches   int64     `json:"fetches"`

	// Stale is set when the served keys are past their expiry because the
	// provider could not be reached.
	Stale               bool      `json:"stale"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	RetryAt             time.Time `json:"retry_at,omitzero"`
}

// Stats reports the current cache contents.
func (c *KeyCache) Stats() KeyCacheStats {
	out := KeyCacheStats{Fetches: c.fetches.Load()}
	if st := c.state.Load(); st != nil {
		out.KeyCount = len(st.keys)
		out.FetchedAt = st.fetchedAt
		out.ExpiresAt = st.expiresAt
		out.Stale = !st.fresh(c.now())
		out.ConsecutiveFailures = st.failures
		out.RetryAt = st.retryAt
	}
	return out
}
