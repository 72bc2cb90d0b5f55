// Package testing provides a stand-in for Google's ID-token infrastructure.
// It serves a JWKS document over httptest and mints RS256 ID tokens that
// verify against it, so verifier and handler tests run without the network.
//
// Example usage:
//
//	issuer := testing.NewTestIssuer("client-123")
//	defer issuer.Close()
//
//	fetcher := oidckit.NewHTTPKeyFetcher(issuer.CertsURL())
//	token := issuer.CreateIDToken("a@b.com", nil)
package testing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	jwtkit "github.com/PaulFidika/moodkit/jwt"
	jwt "github.com/golang-jwt/jwt/v5"
)

// GoogleIssuer is the iss value minted by default.
const GoogleIssuer = "https://accounts.google.com"

// TestIssuer serves /oauth2/v3/certs and signs ID tokens.
type TestIssuer struct {
	server   *httptest.Server
	audience string

	mu      sync.Mutex
	signer  *jwtkit.RSASigner
	retired []*jwtkit.RSASigner
	status  int
	rotated int

	hits atomic.Int64
}

// NewTestIssuer starts an issuer whose tokens are addressed to audience.
// Close must be called to stop the server.
func NewTestIssuer(audience string) *TestIssuer {
	signer, err := jwtkit.NewRSASigner(2048, "test-key-1")
	if err != nil {
		panic("failed to create RSA signer: " + err.Error())
	}
	ti := &TestIssuer{signer: signer, audience: audience, status: http.StatusOK, rotated: 1}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/v3/certs", ti.handleCerts)
	ti.server = httptest.NewServer(mux)
	return ti
}

// CertsURL is the JWKS endpoint of the issuer.
func (ti *TestIssuer) CertsURL() string { return ti.server.URL + "/oauth2/v3/certs" }

// Audience returns the aud claim minted into tokens.
func (ti *TestIssuer) Audience() string { return ti.audience }

// KID returns the kid of the current signing key.
func (ti *TestIssuer) KID() string {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.signer.KID()
}

// Hits counts requests made to the JWKS endpoint.
func (ti *TestIssuer) Hits() int64 { return ti.hits.Load() }

// FailWith makes the JWKS endpoint answer with status. Pass http.StatusOK to recover.
func (ti *TestIssuer) FailWith(status int) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.status = status
}

// RotateKey replaces the signing key. With keepOld the previous key stays
// published, mirroring how providers overlap keys during rotation.
func (ti *TestIssuer) RotateKey(keepOld bool) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.rotated++
	next, err := jwtkit.NewRSASigner(2048, fmt.Sprintf("test-key-%d", ti.rotated))
	if err != nil {
		panic("failed to rotate RSA signer: " + err.Error())
	}
	if keepOld {
		ti.retired = append(ti.retired, ti.signer)
	} else {
		ti.retired = nil
	}
	ti.signer = next
}

// Close shuts down the test server.
func (ti *TestIssuer) Close() {
	if ti.server != nil {
		ti.server.Close()
	}
}

func (ti *TestIssuer) handleCerts(w http.ResponseWriter, r *http.Request) {
	ti.hits.Add(1)
	ti.mu.Lock()
	status := ti.status
	signers := append([]*jwtkit.RSASigner{ti.signer}, ti.retired...)
	ti.mu.Unlock()
	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}
	ks := jwtkit.JWKS{}
	for _, s := range signers {
		ks.Keys = append(ks.Keys, jwtkit.RSAPublicToJWK(s.PublicKey(), s.KID(), s.Algorithm()))
	}
	jwtkit.ServeJWKS(w, r, ks)
}

// CreateIDToken mints a valid Google-style ID token for email. Extra claims
// override the defaults (iss, aud, sub, email, email_verified, iat, exp).
func (ti *TestIssuer) CreateIDToken(email string, extra map[string]any) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":            GoogleIssuer,
		"aud":            ti.audience,
		"sub":            "google-" + email,
		"email":          email,
		"email_verified": true,
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	ti.mu.Lock()
	signer := ti.signer
	ti.mu.Unlock()
	token, err := signer.Sign(context.Background(), claims)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}

// CreateExpiredIDToken mints a token that expired an hour ago.
func (ti *TestIssuer) CreateExpiredIDToken(email string) string {
	return ti.CreateIDToken(email, map[string]any{"exp": time.Now().Add(-time.Hour).Unix()})
}
