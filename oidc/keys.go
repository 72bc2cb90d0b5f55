package oidckit

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sirupsen/logrus"
)

// DefaultFetchTimeout bounds a single key-set download.
const DefaultFetchTimeout = 5 * time.Second

// maxKeySetBytes caps the key-set document we are willing to read.
const maxKeySetBytes = 1 << 20

// SigningKeySet maps a key identifier to its RSA verification key.
// A set is never mutated after construction; refreshes build a new one.
type SigningKeySet map[string]*rsa.PublicKey

// KeyFetcher retrieves the current signing keys of an identity provider.
// When fresh is true, implementations must bypass any shared document cache
// and go to the provider directly.
type KeyFetcher interface {
	FetchKeys(ctx context.Context, fresh bool) (SigningKeySet, error)
}

// KeySetStore shares raw key-set documents between processes so that a fleet
// of replicas does not hit the provider once per replica.
type KeySetStore interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Put(ctx context.Context, url string, doc []byte) error
}

// ParseKeySet converts a JWKS document into a SigningKeySet. Keys without a
// kid or of a non-RSA type are skipped.
func ParseKeySet(doc []byte) (SigningKeySet, error) {
	set, err := jwk.Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("parse jwks: %w", err)
	}
	keys := make(SigningKeySet, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		kid := key.KeyID()
		if kid == "" || key.KeyType() != jwa.RSA {
			continue
		}
		var raw any
		if err := key.Raw(&raw); err != nil {
			return nil, fmt.Errorf("jwks key %q: %w", kid, err)
		}
		pub, ok := raw.(*rsa.PublicKey)
		if !ok {
			continue
		}
		keys[kid] = pub
	}
	return keys, nil
}

// HTTPKeyFetcher downloads a JWKS document over HTTP, optionally consulting a
// shared KeySetStore first.
type HTTPKeyFetcher struct {
	url    string
	client *http.Client
	store  KeySetStore
	log    logrus.FieldLogger
}

// FetcherOpt configures an HTTPKeyFetcher.
type FetcherOpt func(*HTTPKeyFetcher)

// WithHTTPClient replaces the default client (which carries DefaultFetchTimeout).
func WithHTTPClient(c *http.Client) FetcherOpt {
	return func(f *HTTPKeyFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithKeySetStore enables a shared document cache.
func WithKeySetStore(s KeySetStore) FetcherOpt {
	return func(f *HTTPKeyFetcher) { f.store = s }
}

// WithFetcherLogger sets the logger used for store degradation warnings.
func WithFetcherLogger(l logrus.FieldLogger) FetcherOpt {
	return func(f *HTTPKeyFetcher) {
		if l != nil {
			f.log = l
		}
	}
}

// NewHTTPKeyFetcher builds a fetcher for the given JWKS URL.
func NewHTTPKeyFetcher(url string, opts ...FetcherOpt) *HTTPKeyFetcher {
	f := &HTTPKeyFetcher{
		url:    url,
		client: &http.Client{Timeout: DefaultFetchTimeout},
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL returns the JWKS endpoint this fetcher reads.
func (f *HTTPKeyFetcher) URL() string { return f.url }

// FetchKeys implements KeyFetcher.
func (f *HTTPKeyFetcher) FetchKeys(ctx context.Context, fresh bool) (SigningKeySet, error) {
	if f.store != nil && !fresh {
		if keys, ok := f.fromStore(ctx); ok {
			return keys, nil
		}
	}
	doc, err := f.download(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := ParseKeySet(doc)
	if err != nil {
		return nil, err
	}
	if f.store != nil {
		if err := f.store.Put(ctx, f.url, doc); err != nil {
			f.log.WithError(err).WithField("jwks_url", f.url).Warn("oidc: failed to share key set")
		}
	}
	return keys, nil
}

func (f *HTTPKeyFetcher) fromStore(ctx context.Context) (SigningKeySet, bool) {
	doc, ok, err := f.store.Get(ctx, f.url)
	if err != nil {
		f.log.WithError(err).WithField("jwks_url", f.url).Warn("oidc: shared key set unavailable")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	keys, err := ParseKeySet(doc)
	if err != nil {
		f.log.WithError(err).WithField("jwks_url", f.url).Warn("oidc: discarding unparsable shared key set")
		return nil, false
	}
	return keys, true
}

func (f *HTTPKeyFetcher) download(ctx context.Context) ([]byte, error) {
	if f.url == "" {
		return nil, errors.New("oidc: missing jwks url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("oidc: jwks fetch failed: %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes))
}
