package identity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestMapUniqueViolation(t *testing.T) {
	email := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	require.ErrorIs(t, mapUniqueViolation(fmt.Errorf("insert: %w", email)), ErrEmailTaken)

	username := &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
	require.ErrorIs(t, mapUniqueViolation(username), ErrUsernameTaken)

	other := &pgconn.PgError{Code: "23503", ConstraintName: "users_email_key"}
	require.Equal(t, error(other), mapUniqueViolation(other))

	plain := errors.New("boom")
	require.Equal(t, plain, mapUniqueViolation(plain))
	require.NoError(t, mapUniqueViolation(nil))
}

func TestUserNames(t *testing.T) {
	require.Equal(t, "a@b.com", NormalizeEmail("  A@B.Com "))
	require.Equal(t, "Ada Lovelace", (&User{FirstName: "Ada", LastName: "Lovelace"}).FullName())
	require.Equal(t, "Ada", (&User{FirstName: "Ada"}).FullName())
}
