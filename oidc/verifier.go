package oidckit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// IDTokenClaims is the decoded payload of a verified ID token.
type IDTokenClaims struct {
	Issuer        string
	Audience      []string
	Subject       string
	Email         string
	EmailVerified *bool
	Name          string
	GivenName     string
	FamilyName    string
	Picture       string
	ExpiresAt     time.Time
	IssuedAt      time.Time
	// Raw holds every claim of the payload as decoded from JSON.
	Raw map[string]any
}

// GetSubject returns the subject claim.
func (c *IDTokenClaims) GetSubject() string { return c.Subject }

// DisplayName prefers the name claim and falls back to given + family name.
func (c *IDTokenClaims) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return strings.TrimSpace(c.GivenName + " " + c.FamilyName)
}

// IDTokenVerifier validates RS256 ID tokens against a KeyCache, an audience
// (the OAuth client ID) and a set of accepted issuers.
type IDTokenVerifier struct {
	issuers  []string
	clientID string
	keys     *KeyCache
	now      func() time.Time
	log      logrus.FieldLogger
	parser   *jwt.Parser
}

// VerifierOpt configures an ID token verifier.
type VerifierOpt func(*IDTokenVerifier)

// WithVerifierClock replaces time.Now for expiry checks.
func WithVerifierClock(now func() time.Time) VerifierOpt {
	return func(v *IDTokenVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

// WithVerifierLogger sets the logger used for key rotation events.
func WithVerifierLogger(l logrus.FieldLogger) VerifierOpt {
	return func(v *IDTokenVerifier) {
		if l != nil {
			v.log = l
		}
	}
}

// NewIDTokenVerifier builds a verifier for the given issuers and client.
func NewIDTokenVerifier(issuers []string, clientID string, keys *KeyCache, opts ...VerifierOpt) *IDTokenVerifier {
	v := &IDTokenVerifier{
		issuers:  slices.Clone(issuers),
		clientID: clientID,
		keys:     keys,
		now:      time.Now,
		log:      logrus.StandardLogger(),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ClientID returns the audience this verifier accepts.
func (v *IDTokenVerifier) ClientID() string { return v.clientID }

// Keys exposes the underlying key cache.
func (v *IDTokenVerifier) Keys() *KeyCache { return v.keys }

// Verify checks, in order: token structure and kid, key availability, kid
// lookup, RS256 signature, expiry, audience and issuer. The first failing
// check determines the returned error.
func (v *IDTokenVerifier) Verify(ctx context.Context, rawToken string) (*IDTokenClaims, error) {
	if v == nil || v.keys == nil {
		return nil, errors.New("oidc: missing verifier")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	kid, err := unverifiedKeyID(rawToken)
	if err != nil {
		return nil, err
	}
	keys, err := v.keys.Keys(ctx)
	if err != nil {
		return nil, err
	}
	pub, ok := keys[kid]
	if !ok {
		refreshed, fetched, err := v.keys.refreshForRotation(ctx)
		if errors.Is(err, ErrTimeout) {
			return nil, err
		}
		if err == nil {
			pub, ok = refreshed[kid]
		}
		if fetched {
			v.log.WithFields(logrus.Fields{"kid": kid, "found": ok}).Info("oidc: refreshed keys for unknown kid")
		}
		if !ok {
			return nil, fmt.Errorf("%w: kid %q", ErrUnknownKey, kid)
		}
	}

	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(rawToken, claims, func(*jwt.Token) (any, error) { return pub, nil }); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing or invalid exp", ErrExpiredToken)
	}
	if now := v.now(); !now.Before(exp.Time) {
		return nil, fmt.Errorf("%w: expired at %s", ErrExpiredToken, exp.Time.UTC().Format(time.RFC3339))
	}
	aud, err := claims.GetAudience()
	if err != nil || !slices.Contains([]string(aud), v.clientID) {
		return nil, fmt.Errorf("%w: got %v", ErrAudienceMismatch, []string(aud))
	}
	iss, err := claims.GetIssuer()
	if err != nil || !slices.Contains(v.issuers, iss) {
		return nil, fmt.Errorf("%w: %q", ErrIssuerMismatch, iss)
	}
	return claimsFromMap(claims), nil
}

func unverifiedKeyID(rawToken string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return "", fmt.Errorf("%w: missing kid", ErrMalformedToken)
	}
	return kid, nil
}

func claimsFromMap(m jwt.MapClaims) *IDTokenClaims {
	c := &IDTokenClaims{Raw: map[string]any(m)}
	c.Issuer, _ = m.GetIssuer()
	c.Subject, _ = m.GetSubject()
	if aud, err := m.GetAudience(); err == nil {
		c.Audience = []string(aud)
	}
	if exp, err := m.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := m.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	c.Email = stringClaim(m, "email")
	c.Name = stringClaim(m, "name")
	c.GivenName = stringClaim(m, "given_name")
	c.FamilyName = stringClaim(m, "family_name")
	c.Picture = stringClaim(m, "picture")
	switch ev := m["email_verified"].(type) {
	case bool:
		c.EmailVerified = &ev
	case string:
		if strings.EqualFold(ev, "true") {
			b := true
			c.EmailVerified = &b
		} else if strings.EqualFold(ev, "false") {
			b := false
			c.EmailVerified = &b
		}
	}
	return c
}

func stringClaim(m jwt.MapClaims, name string) string {
	s, _ := m[name].(string)
	return s
}
