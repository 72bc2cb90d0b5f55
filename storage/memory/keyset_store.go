package memorystore

import (
	"context"
	"sync"
	"time"
)

// KeySetStore is an in-process oidckit.KeySetStore with a per-entry TTL. It is
// the single-node fallback when Redis is not configured.
type KeySetStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	data   map[string]item
	closed chan struct{}
	once   sync.Once
}

type item struct {
	doc []byte
	exp time.Time
}

// NewKeySetStore creates a store whose entries live for ttl (default 1h).
// A background goroutine drops expired entries every minute until Close.
func NewKeySetStore(ttl time.Duration) *KeySetStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &KeySetStore{ttl: ttl, now: time.Now, data: make(map[string]item), closed: make(chan struct{})}
	go s.cleanupLoop()
	return s
}

func (s *KeySetStore) Put(_ context.Context, url string, doc []byte) error {
	cp := append([]byte(nil), doc...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[url] = item{doc: cp, exp: s.now().Add(s.ttl)}
	return nil
}

func (s *KeySetStore) Get(_ context.Context, url string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data[url]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(it.exp) {
		delete(s.data, url)
		return nil, false, nil
	}
	return append([]byte(nil), it.doc...), true, nil
}

func (s *KeySetStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.closed:
			return
		}
	}
}

func (s *KeySetStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range s.data {
		if !now.Before(v.exp) {
			delete(s.data, k)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (s *KeySetStore) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
