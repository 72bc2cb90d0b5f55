package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// MinLength is the minimum accepted password length.
const MinLength = 8

var (
	// ErrTooShort is returned by Validate for passwords under MinLength.
	ErrTooShort = errors.New("password_too_short")
	// ErrUnknownHash is returned by Verify for unrecognized hash formats.
	ErrUnknownHash = errors.New("password: unknown hash format")
)

// Params defines Argon2id parameters.
type Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

func DefaultParams() Params {
	return Params{Time: 1, Memory: 64 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32}
}

// Hash returns a PHC-encoded Argon2id hash of password.
func Hash(password string) (string, error) {
	p := DefaultParams()
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	dk := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return phcEncode(p, salt, dk), nil
}

// Verify checks password against an Argon2id or bcrypt hash.
func Verify(encoded, password string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2id(encoded, password)
	case IsBcryptHash(encoded):
		return VerifyBcrypt(encoded, password)
	default:
		return false, ErrUnknownHash
	}
}

// Validate applies the password policy.
func Validate(password string) error {
	if len([]rune(password)) < MinLength {
		return ErrTooShort
	}
	return nil
}

func verifyArgon2id(encoded, password string) (bool, error) {
	p, salt, sum, err := phcDecode(encoded)
	if err != nil {
		return false, err
	}
	dk := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, uint32(len(sum)))
	return subtle.ConstantTimeCompare(dk, sum) == 1, nil
}

// $argon2id$v=19$m=65536,t=1,p=1$<salt>$<sum>
func phcEncode(p Params, salt, sum []byte) string {
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s", p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(sum))
}

func phcDecode(s string) (Params, []byte, []byte, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Params{}, nil, nil, errors.New("bad_phc")
	}
	var m, t uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &par); err != nil {
		return Params{}, nil, nil, err
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, err
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, err
	}
	if len(sum) == 0 || par == 0 {
		return Params{}, nil, nil, errors.New("bad_phc")
	}
	return Params{Time: t, Memory: m, Threads: par, SaltLen: uint32(len(salt)), KeyLen: uint32(len(sum))}, salt, sum, nil
}
