package core

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	oidckit "github.com/PaulFidika/moodkit/oidc"
)

// AcceptConfig configures verification of Google ID tokens.
type AcceptConfig struct {
	ClientID     string
	Issuers      []string // defaults to oidckit.GoogleIssuers
	JWKSURL      string   // defaults to oidckit.GoogleCertsURL
	CacheTTL     time.Duration
	MaxStale     time.Duration // negative disables stale serving
	FetchTimeout time.Duration
}

// Enabled reports whether a client ID is configured.
func (c AcceptConfig) Enabled() bool { return strings.TrimSpace(c.ClientID) != "" }

// NewVerifier builds the key cache and ID-token verifier described by c.
// store may be nil; when set, fetched key documents are shared through it.
func (c AcceptConfig) NewVerifier(store oidckit.KeySetStore, log logrus.FieldLogger) *oidckit.IDTokenVerifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	url := c.JWKSURL
	if url == "" {
		url = oidckit.GoogleCertsURL
	}
	issuers := c.Issuers
	if len(issuers) == 0 {
		issuers = oidckit.GoogleIssuers
	}
	fetchTimeout := c.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = oidckit.DefaultFetchTimeout
	}

	fopts := []oidckit.FetcherOpt{
		oidckit.WithHTTPClient(&http.Client{Timeout: fetchTimeout}),
		oidckit.WithFetcherLogger(log),
	}
	if store != nil {
		fopts = append(fopts, oidckit.WithKeySetStore(store))
	}
	copts := []oidckit.CacheOpt{
		oidckit.WithFetchTimeout(fetchTimeout),
		oidckit.WithCacheLogger(log),
	}
	if c.CacheTTL > 0 {
		copts = append(copts, oidckit.WithTTL(c.CacheTTL))
	}
	switch {
	case c.MaxStale > 0:
		copts = append(copts, oidckit.WithMaxStale(c.MaxStale))
	case c.MaxStale < 0:
		copts = append(copts, oidckit.WithMaxStale(0))
	}
	cache := oidckit.NewKeyCache(oidckit.NewHTTPKeyFetcher(url, fopts...), copts...)
	return oidckit.NewIDTokenVerifier(issuers, c.ClientID, cache, oidckit.WithVerifierLogger(log))
}
