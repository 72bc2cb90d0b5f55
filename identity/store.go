package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("identity: user not found")
	ErrEmailTaken    = errors.New("identity: email already registered")
	ErrUsernameTaken = errors.New("identity: username already taken")
)

// User is a local account. PasswordHash is empty for accounts created
// through Google sign-in.
type User struct {
	ID           uuid.UUID
	Email        string
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	GoogleSub    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Store reads and writes users in the given schema.
type Store struct {
	pg     *pgxpool.Pool
	schema string
}

func NewStore(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "public"
	}
	return &Store{pg: pg, schema: s}
}

func (s *Store) usersTable() string { return s.schema + ".users" }

const userColumns = `id, email, username, first_name, last_name, COALESCE(password_hash, ''), google_sub, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.PasswordHash, &u.GoogleSub, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns ErrNotFound when no user has the id.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	if id == uuid.Nil {
		return nil, ErrNotFound
	}
	return scanUser(s.pg.QueryRow(ctx, `SELECT `+userColumns+` FROM `+s.usersTable()+` WHERE id=$1`, id))
}

// GetByEmail matches case-insensitively.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}
	return scanUser(s.pg.QueryRow(ctx, `SELECT `+userColumns+` FROM `+s.usersTable()+` WHERE lower(email)=$1 LIMIT 1`, email))
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrNotFound
	}
	return scanUser(s.pg.QueryRow(ctx, `SELECT `+userColumns+` FROM `+s.usersTable()+` WHERE username=$1 LIMIT 1`, username))
}

// Create inserts u, filling ID and timestamps. Unique violations map to
// ErrEmailTaken or ErrUsernameTaken.
func (s *Store) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = NormalizeEmail(u.Email)
	var hash *string
	if u.PasswordHash != "" {
		hash = &u.PasswordHash
	}
	err := s.pg.QueryRow(ctx,
		`INSERT INTO `+s.usersTable()+` (id, email, username, first_name, last_name, password_hash, google_sub)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		u.ID, u.Email, u.Username, u.FirstName, u.LastName, hash, u.GoogleSub,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapUniqueViolation(err)
}

// LinkGoogle records the Google subject for an existing account.
func (s *Store) LinkGoogle(ctx context.Context, id uuid.UUID, sub string) error {
	if id == uuid.Nil || strings.TrimSpace(sub) == "" {
		return nil
	}
	_, err := s.pg.Exec(ctx, `UPDATE `+s.usersTable()+` SET google_sub=$2, updated_at=NOW() WHERE id=$1 AND google_sub IS NULL`, id, sub)
	return err
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		return ErrEmailTaken
	case strings.Contains(pgErr.ConstraintName, "username"):
		return ErrUsernameTaken
	}
	return err
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
