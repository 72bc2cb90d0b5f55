package oidckit

import "errors"

// Verification failures. Every error returned by IDTokenVerifier.Verify wraps
// exactly one of these, so callers can branch with errors.Is.
var (
	ErrMalformedToken   = errors.New("oidc: malformed token")
	ErrKeyFetch         = errors.New("oidc: signing key fetch failed")
	ErrUnknownKey       = errors.New("oidc: unknown signing key")
	ErrInvalidSignature = errors.New("oidc: invalid token signature")
	ErrExpiredToken     = errors.New("oidc: token expired")
	ErrAudienceMismatch = errors.New("oidc: audience mismatch")
	ErrIssuerMismatch   = errors.New("oidc: issuer mismatch")
	ErrTimeout          = errors.New("oidc: verification timed out")
)

var failureCodes = []struct {
	err  error
	code string
}{
	{ErrTimeout, "verification_timeout"},
	{ErrMalformedToken, "malformed_token"},
	{ErrKeyFetch, "key_fetch_failed"},
	{ErrUnknownKey, "unknown_key"},
	{ErrInvalidSignature, "invalid_signature"},
	{ErrExpiredToken, "token_expired"},
	{ErrAudienceMismatch, "audience_mismatch"},
	{ErrIssuerMismatch, "issuer_mismatch"},
}

// FailureCode returns a stable snake_case code for a verification failure,
// suitable for API error bodies. Unrecognized errors map to "invalid_token".
func FailureCode(err error) string {
	for _, fc := range failureCodes {
		if errors.Is(err, fc.err) {
			return fc.code
		}
	}
	return "invalid_token"
}

// IsVerificationFailure reports whether err came from token verification
// rather than from an unrelated dependency.
func IsVerificationFailure(err error) bool {
	for _, fc := range failureCodes {
		if errors.Is(err, fc.err) {
			return true
		}
	}
	return false
}
