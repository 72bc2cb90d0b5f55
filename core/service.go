package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PaulFidika/moodkit/identity"
	jwtkit "github.com/PaulFidika/moodkit/jwt"
	oidckit "github.com/PaulFidika/moodkit/oidc"
	pwhash "github.com/PaulFidika/moodkit/password"
)

var (
	ErrMissingCredentials = errors.New("core: email and password are required")
	ErrWeakPassword       = errors.New("core: password does not meet policy")
	ErrInvalidCredentials = errors.New("core: invalid email or password")
	ErrMissingEmail       = errors.New("core: identity token carries no email")
	ErrUnverifiedEmail    = errors.New("core: identity token email is not verified")
	ErrGoogleDisabled     = errors.New("core: google sign-in is not configured")
)

// UserStore is the subset of identity.Store the service needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
	GetByEmail(ctx context.Context, email string) (*identity.User, error)
	GetByUsername(ctx context.Context, username string) (*identity.User, error)
	Create(ctx context.Context, u *identity.User) error
	LinkGoogle(ctx context.Context, id uuid.UUID, sub string) error
}

// IDTokenVerifier checks third-party identity tokens.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*oidckit.IDTokenClaims, error)
}

// Session is what a successful sign-in hands back to the client.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *identity.User
}

// Service implements account registration and sign-in on top of a user
// store, the Google ID-token verifier and our own access tokens.
type Service struct {
	users    UserStore
	google   IDTokenVerifier
	tokens   *jwtkit.AccessTokens
	events   AuthEventLogger
	log      logrus.FieldLogger
	maxNames int
}

type Option func(*Service)

func WithEventLogger(l AuthEventLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.events = l
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService wires a Service. google may be nil, in which case GoogleLogin
// always fails with ErrGoogleDisabled.
func NewService(users UserStore, google IDTokenVerifier, tokens *jwtkit.AccessTokens, opts ...Option) *Service {
	s := &Service{
		users:    users,
		google:   google,
		tokens:   tokens,
		log:      logrus.StandardLogger(),
		maxNames: 999,
	}
	for _, o := range opts {
		o(s)
	}
	if s.events == nil {
		s.events = NewLogEventLogger(s.log)
	}
	return s
}

// Tokens exposes the access-token issuer used by the service.
func (s *Service) Tokens() *jwtkit.AccessTokens { return s.tokens }

// Register creates a password account and signs it in.
func (s *Service) Register(ctx context.Context, email, password string) (*Session, error) {
	email = identity.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if err := pwhash.Validate(password); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}
	hash, err := pwhash.Hash(password)
	if err != nil {
		return nil, err
	}
	u := &identity.User{
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.createWithUsername(ctx, u, localPart(email)); err != nil {
		return nil, err
	}
	return s.issue(ctx, u, "password_register")
}

// Login checks a password against the stored hash. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = identity.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	ok, err := pwhash.Verify(u.PasswordHash, password)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, u, "password_login")
}

// GoogleLogin verifies a Google ID token and signs in the account with the
// token's email, creating it on first use. Verification errors are returned
// unchanged so callers can map them with oidckit.FailureCode.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (*Session, error) {
	if s.google == nil {
		return nil, ErrGoogleDisabled
	}
	claims, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	email := identity.NormalizeEmail(claims.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	// Accounts are keyed by email, so an address the provider has not
	// verified must not sign in to or link with an existing account.
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		sub := claims.Subject
		u = &identity.User{
			Email:     email,
			FirstName: claims.GivenName,
			LastName:  claims.FamilyName,
		}
		if sub != "" {
			u.GoogleSub = &sub
		}
		if err := s.createWithUsername(ctx, u, localPart(email)); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case u.GoogleSub == nil && claims.Subject != "":
		if err := s.users.LinkGoogle(ctx, u.ID, claims.Subject); err != nil {
			s.log.WithError(err).WithField("user_id", u.ID).Warn("link google subject")
		}
	}
	return s.issue(ctx, u, "google")
}

// CurrentUser loads the account named by a verified access token.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*identity.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, identity.ErrNotFound
	}
	return s.users.GetByID(ctx, id)
}

// createWithUsername picks a free username and inserts u. A concurrent
// insert of the same username is retried with the next candidate.
func (s *Service) createWithUsername(ctx context.Context, u *identity.User, base string) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		u.Username = s.GenerateAvailableUsername(ctx, base)
		err = s.users.Create(ctx, u)
		if !errors.Is(err, identity.ErrUsernameTaken) {
			return err
		}
	}
	return err
}

func (s *Service) issue(ctx context.Context, u *identity.User, method string) (*Session, error) {
	tok, exp, err := s.tokens.Issue(ctx, u.ID.String(), u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	_ = s.events.LogLogin(ctx, u.ID.String(), method)
	return &Session{Token: tok, ExpiresAt: exp, User: u}, nil
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
