package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PaulFidika/moodkit/identity"
	jwtkit "github.com/PaulFidika/moodkit/jwt"
	oidckit "github.com/PaulFidika/moodkit/oidc"
	authtest "github.com/PaulFidika/moodkit/testing"
)

const testClientID = "moodkit-client"

type fixture struct {
	users  *authtest.MemoryUsers
	issuer *authtest.TestIssuer
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	issuer := authtest.NewTestIssuer(testClientID)
	t.Cleanup(issuer.Close)

	signer, err := jwtkit.NewRSASigner(2048, "api-1")
	require.NoError(t, err)
	tokens := jwtkit.NewAccessTokens(jwtkit.NewSignerKeySource(signer), "moodkit", "moodkit-api", 0)

	verifier := AcceptConfig{ClientID: testClientID, JWKSURL: issuer.CertsURL()}.NewVerifier(nil, nil)
	users := authtest.NewMemoryUsers()
	return &fixture{users: users, issuer: issuer, svc: NewService(users, verifier, tokens)}
}

func TestRegisterAndLogin(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	sess, err := fx.svc.Register(ctx, "  Ada@Example.com ", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", sess.User.Email)
	require.Equal(t, "ada", sess.User.Username)

	claims, err := fx.svc.Tokens().Verify(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, sess.User.ID.String(), claims.UserID)

	again, err := fx.svc.Login(ctx, "ADA@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, sess.User.ID, again.User.ID)

	_, err = fx.svc.Login(ctx, "ada@example.com", "wrong password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = fx.svc.Login(ctx, "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_Validation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Register(ctx, "", "correct horse")
	require.ErrorIs(t, err, ErrMissingCredentials)
	_, err = fx.svc.Register(ctx, "a@b.com", "short")
	require.ErrorIs(t, err, ErrWeakPassword)

	_, err = fx.svc.Register(ctx, "a@b.com", "long enough")
	require.NoError(t, err)
	_, err = fx.svc.Register(ctx, "A@B.com", "long enough")
	require.ErrorIs(t, err, identity.ErrEmailTaken)
}

func TestRegister_UsernameSuffix(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for i, email := range []string{"sam@one.com", "sam@two.com", "sam@three.com"} {
		sess, err := fx.svc.Register(ctx, email, "long enough")
		require.NoError(t, err)
		want := []string{"sam", "sam1", "sam2"}[i]
		require.Equal(t, want, sess.User.Username)
	}
}

func TestGoogleLogin_CreatesThenReuses(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	tok := fx.issuer.CreateIDToken("grace@example.com", map[string]any{
		"given_name":  "Grace",
		"family_name": "Hopper",
	})
	sess, err := fx.svc.GoogleLogin(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, "grace", sess.User.Username)
	require.Equal(t, "Grace Hopper", sess.User.FullName())
	require.NotNil(t, sess.User.GoogleSub)

	again, err := fx.svc.GoogleLogin(ctx, fx.issuer.CreateIDToken("grace@example.com", nil))
	require.NoError(t, err)
	require.Equal(t, sess.User.ID, again.User.ID)
	require.Equal(t, 1, fx.users.Len())
}

func TestGoogleLogin_LinksExistingPasswordAccount(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	reg, err := fx.svc.Register(ctx, "linus@example.com", "long enough")
	require.NoError(t, err)
	require.Nil(t, reg.User.GoogleSub)

	sess, err := fx.svc.GoogleLogin(ctx, fx.issuer.CreateIDToken("linus@example.com", nil))
	require.NoError(t, err)
	require.Equal(t, reg.User.ID, sess.User.ID)

	u, err := fx.users.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.NotNil(t, u.GoogleSub)
	require.Equal(t, "google-linus@example.com", *u.GoogleSub)
}

func TestGoogleLogin_RejectsUnverifiedEmail(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	reg, err := fx.svc.Register(ctx, "victim@example.com", "long enough")
	require.NoError(t, err)

	tok := fx.issuer.CreateIDToken("victim@example.com", map[string]any{"email_verified": false, "sub": "attacker"})
	_, err = fx.svc.GoogleLogin(ctx, tok)
	require.ErrorIs(t, err, ErrUnverifiedEmail)

	u, err := fx.users.GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Nil(t, u.GoogleSub)

	_, err = fx.svc.GoogleLogin(ctx, fx.issuer.CreateIDToken("new@example.com", map[string]any{"email_verified": "false"}))
	require.ErrorIs(t, err, ErrUnverifiedEmail)
	require.Equal(t, 1, fx.users.Len())

	// Tokens without the claim are still accepted.
	_, err = fx.svc.GoogleLogin(ctx, fx.issuer.CreateIDToken("quiet@example.com", map[string]any{"email_verified": nil}))
	require.NoError(t, err)
}

func TestGoogleLogin_Failures(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.svc.GoogleLogin(ctx, fx.issuer.CreateExpiredIDToken("a@b.com"))
	require.ErrorIs(t, err, oidckit.ErrExpiredToken)

	_, err = fx.svc.GoogleLogin(ctx, fx.issuer.CreateIDToken("a@b.com", map[string]any{"aud": "someone-else"}))
	require.ErrorIs(t, err, oidckit.ErrAudienceMismatch)

	_, err = fx.svc.GoogleLogin(ctx, fx.issuer.CreateIDToken("", nil))
	require.ErrorIs(t, err, ErrMissingEmail)
	require.Equal(t, 0, fx.users.Len())

	disabled := NewService(fx.users, nil, fx.svc.Tokens())
	_, err = disabled.GoogleLogin(ctx, "anything")
	require.ErrorIs(t, err, ErrGoogleDisabled)
}

func TestCleanUsername(t *testing.T) {
	require.Equal(t, "john.doe+tag", cleanUsername(" John.Doe+Tag "))
	require.Equal(t, "", cleanUsername("   "))
	require.Equal(t, "ab", cleanUsername("a b!"))
}
