package jwtkit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultAccessTTL matches the lifetime of the mobile app's session token.
const DefaultAccessTTL = 24 * time.Hour

// ErrInvalidAccessToken is returned for any access token we did not issue or
// that is no longer valid.
var ErrInvalidAccessToken = errors.New("jwt: invalid access token")

// AccessClaims are the claims carried by our own access tokens.
type AccessClaims struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// AccessTokens issues and verifies the API's bearer tokens using a KeySource.
type AccessTokens struct {
	keys     KeySource
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewAccessTokens wires a KeySource to an issuer/audience pair.
func NewAccessTokens(keys KeySource, issuer, audience string, ttl time.Duration) *AccessTokens {
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	return &AccessTokens{keys: keys, issuer: issuer, audience: audience, ttl: ttl, now: time.Now}
}

// WithClock returns a copy using now instead of time.Now.
func (a *AccessTokens) WithClock(now func() time.Time) *AccessTokens {
	cp := *a
	cp.now = now
	return &cp
}

// Issue signs a token for the user and returns it with its expiry.
func (a *AccessTokens) Issue(ctx context.Context, userID, email string) (string, time.Time, error) {
	signer := a.keys.ActiveSigner()
	if signer == nil {
		return "", time.Time{}, errors.New("jwt: no active signer")
	}
	now := a.now()
	exp := now.Add(a.ttl)
	claims := jwt.MapClaims{
		"iss":   a.issuer,
		"aud":   a.audience,
		"sub":   userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
		"jti":   uuid.NewString(),
	}
	tok, err := signer.Sign(ctx, claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return tok, time.Unix(exp.Unix(), 0), nil
}

// Verify checks signature, issuer, audience and expiry of an access token.
func (a *AccessTokens) Verify(_ context.Context, raw string) (*AccessClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, a.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessToken, err)
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidAccessToken)
	}
	out := &AccessClaims{UserID: sub}
	out.Email, _ = claims["email"].(string)
	out.TokenID, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

func (a *AccessTokens) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	pub, ok := a.keys.PublicKeys()[kid]
	if !ok {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return pub, nil
}

// JWKS returns the public keys of the KeySource as a JWKS document.
func (a *AccessTokens) JWKS() JWKS {
	pubs := a.keys.PublicKeys()
	ks := JWKS{Keys: make([]JWK, 0, len(pubs))}
	for kid, pub := range pubs {
		ks.Keys = append(ks.Keys, RSAPublicToJWK(pub, kid, jwt.SigningMethodRS256.Alg()))
	}
	slices.SortFunc(ks.Keys, func(x, y JWK) int { return strings.Compare(x.Kid, y.Kid) })
	return ks
}
