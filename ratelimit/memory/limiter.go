package memorylimiter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

type bucketState struct {
	bucket string
	// timestamps holds request times in Unix ms, newest last.
	timestamps []int64
}

// Limiter is an in-memory sliding-window rate limiter.
// It is intended as a single-node fallback when Redis is unavailable.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	buckets map[string]*bucketState
	now     func() time.Time
}

// New constructs a new in-memory limiter with the provided per-bucket limits.
// A "default" entry applies to buckets without their own limit.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{
		limits:  limits,
		buckets: make(map[string]*bucketState),
		now:     time.Now,
	}
}

// WithClock replaces time.Now, mainly for tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) get(bucket string) Limit {
	if v, ok := l.limits[bucket]; ok {
		return v
	}
	if v, ok := l.limits["default"]; ok {
		return v
	}
	return Limit{Limit: 100, Window: time.Minute}
}

// AllowNamed reports whether key may make another request in bucket. It
// prunes expired entries on each call and drops empty buckets.
func (l *Limiter) AllowNamed(_ context.Context, bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	lim := l.get(bucket)
	nowMs := l.now().UnixMilli()
	windowStart := nowMs - lim.Window.Milliseconds()
	limitKey := key + ":" + bucket

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[limitKey]
	if !ok {
		b = &bucketState{bucket: bucket}
		l.buckets[limitKey] = b
	}

	ts := b.timestamps
	pruneIdx := 0
	for pruneIdx < len(ts) && ts[pruneIdx] <= windowStart {
		pruneIdx++
	}
	ts = ts[pruneIdx:]

	if len(ts) >= lim.Limit {
		// Denied attempts are not recorded.
		b.timestamps = ts
		return false, nil
	}

	b.timestamps = append(ts, nowMs)
	return true, nil
}

// Sweep drops buckets whose entries have all left their window.
func (l *Limiter) Sweep() {
	nowMs := l.now().UnixMilli()
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, b := range l.buckets {
		windowStart := nowMs - l.get(b.bucket).Window.Milliseconds()
		if n := len(b.timestamps); n == 0 || b.timestamps[n-1] <= windowStart {
			delete(l.buckets, k)
		}
	}
}
