package authhttp

import (
	"net/http"

	jwtkit "github.com/PaulFidika/moodkit/jwt"
)

// JWKSSource exposes the public keys of our access tokens.
type JWKSSource interface {
	JWKS() jwtkit.JWKS
}

// JWKSHandler serves the public JWKS document.
func JWKSHandler(src JWKSSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jwtkit.ServeJWKS(w, r, src.JWKS())
	})
}
