package password

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	h, err := Hash("correct horse")
	require.NoError(t, err)
	require.Contains(t, h, "$argon2id$v=19$m=65536,t=1,p=1$")

	ok, err := Verify(h, "correct horse")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Verify(h, "wrong horse")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerify_Bcrypt(t *testing.T) {
	b, err := bcrypt.GenerateFromPassword([]byte("legacy-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := Verify(string(b), "legacy-pass")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Verify(string(b), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerify_UnknownFormat(t *testing.T) {
	_, err := Verify("pbkdf2_sha256$1$x$y", "pw")
	require.ErrorIs(t, err, ErrUnknownHash)

	_, err = Verify("$argon2id$garbage", "pw")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.ErrorIs(t, Validate("short"), ErrTooShort)
	require.NoError(t, Validate("long enough"))
}
