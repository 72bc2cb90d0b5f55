package oidckit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtkit "github.com/PaulFidika/moodkit/jwt"
	memorystore "github.com/PaulFidika/moodkit/storage/memory"
	authtest "github.com/PaulFidika/moodkit/testing"
	"github.com/stretchr/testify/require"
)

func TestParseKeySet(t *testing.T) {
	s := newSigner(t, "rsa-1")
	jwk := `{"kty":"RSA","kid":"rsa-1","alg":"RS256","use":"sig","n":"` + encodeN(s) + `","e":"AQAB"}`
	ec := `{"kty":"EC","kid":"ec-1","crv":"P-256","x":"f83OJ3D2xF1Bg8vub9tLe1gHMzV76e8Tus9uPHvRVEU","y":"x_FEzRu9m36HLN_tue659LNpXW6pCyStikYjKIWI5a0"}`
	noKid := `{"kty":"RSA","n":"` + encodeN(s) + `","e":"AQAB"}`

	keys, err := ParseKeySet([]byte(`{"keys":[` + jwk + `,` + ec + `,` + noKid + `]}`))
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Equal(t, 0, keys["rsa-1"].N.Cmp(s.PublicKey().N))
	require.Equal(t, 65537, keys["rsa-1"].E)

	_, err = ParseKeySet([]byte(`<html>oops</html>`))
	require.Error(t, err)
}

func encodeN(s *jwtkit.RSASigner) string {
	return jwtkit.RSAPublicToJWK(s.PublicKey(), s.KID(), s.Algorithm()).N
}

func TestHTTPKeyFetcher_Statuses(t *testing.T) {
	issuer := authtest.NewTestIssuer(testClientID)
	defer issuer.Close()

	f := NewHTTPKeyFetcher(issuer.CertsURL())
	keys, err := f.FetchKeys(context.Background(), false)
	require.NoError(t, err)
	require.Contains(t, keys, issuer.KID())

	issuer.FailWith(http.StatusInternalServerError)
	_, err = f.FetchKeys(context.Background(), false)
	require.ErrorContains(t, err, "500")
}

func TestHTTPKeyFetcher_UnparsableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"keys": "nope"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPKeyFetcher(srv.URL).FetchKeys(context.Background(), false)
	require.Error(t, err)
}

func TestHTTPKeyFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	f := NewHTTPKeyFetcher(srv.URL, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := f.FetchKeys(context.Background(), false)
	require.Error(t, err)
}

func TestHTTPKeyFetcher_SharedStore(t *testing.T) {
	issuer := authtest.NewTestIssuer(testClientID)
	defer issuer.Close()
	store := memorystore.NewKeySetStore(time.Hour)
	defer store.Close()

	first := NewHTTPKeyFetcher(issuer.CertsURL(), WithKeySetStore(store))
	_, err := first.FetchKeys(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, int64(1), issuer.Hits())

	// A second replica reads the shared document instead of the provider.
	second := NewHTTPKeyFetcher(issuer.CertsURL(), WithKeySetStore(store))
	keys, err := second.FetchKeys(context.Background(), false)
	require.NoError(t, err)
	require.Contains(t, keys, issuer.KID())
	require.Equal(t, int64(1), issuer.Hits())

	// Fresh fetches go to the provider and update the shared copy.
	issuer.RotateKey(false)
	keys, err = second.FetchKeys(context.Background(), true)
	require.NoError(t, err)
	require.Contains(t, keys, issuer.KID())
	require.Equal(t, int64(2), issuer.Hits())

	keys, err = first.FetchKeys(context.Background(), false)
	require.NoError(t, err)
	require.Contains(t, keys, issuer.KID())
	require.Equal(t, int64(2), issuer.Hits())
}
