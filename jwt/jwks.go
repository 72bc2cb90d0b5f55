package jwtkit

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
)

// JWK holds the RSA public-key members of RFC 7517.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS is the document served at /.well-known/jwks.json.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// RSAPublicToJWK converts an RSA public key to a signing JWK.
func RSAPublicToJWK(pub *rsa.PublicKey, kid, alg string) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: kid,
		Alg: alg,
		N:   base64URLUint(pub.N),
		E:   base64URLUint(big.NewInt(int64(pub.E))),
	}
}

// ServeJWKS writes the key set with a content ETag so clients can revalidate
// cheaply with If-None-Match.
func ServeJWKS(w http.ResponseWriter, r *http.Request, ks JWKS) {
	b, err := json.Marshal(ks)
	if err != nil {
		http.Error(w, `{"error":"jwks_unavailable"}`, http.StatusInternalServerError)
		return
	}
	sum := sha256.Sum256(b)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=300, must-revalidate")
	if inm := r.Header.Get("If-None-Match"); inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

// base64URLUint encodes a big integer without leading zero bytes.
func base64URLUint(i *big.Int) string {
	return base64.RawURLEncoding.EncodeToString(i.Bytes())
}
