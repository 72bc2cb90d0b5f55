package oidckit

// Google publishes its ID-token signing keys here.
const GoogleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

// GoogleIssuers are the iss values Google uses for ID tokens.
var GoogleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// NewGoogleVerifier returns a verifier for Google ID tokens issued to clientID.
func NewGoogleVerifier(clientID string, keys *KeyCache, opts ...VerifierOpt) *IDTokenVerifier {
	return NewIDTokenVerifier(GoogleIssuers, clientID, keys, opts...)
}
