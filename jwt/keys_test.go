package jwtkit

import (
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func publicPEM(t *testing.T, s *RSASigner) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(s.PublicKey())
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func TestNewAutoKeySource_Env(t *testing.T) {
	active, err := NewRSASigner(2048, "active")
	require.NoError(t, err)
	retired, err := NewRSASigner(2048, "retired")
	require.NoError(t, err)
	extra, err := json.Marshal(map[string]string{"retired": publicPEM(t, retired), "broken": "nope"})
	require.NoError(t, err)

	t.Setenv(EnvKeyID, "active")
	t.Setenv(EnvPrivateKeyPEM, string(active.EncodePrivateKeyPEM()))
	t.Setenv(EnvPublicKeys, string(extra))

	ks, err := NewAutoKeySource(AutoKeyOptions{Production: true})
	require.NoError(t, err)
	require.Equal(t, "active", ks.ActiveSigner().KID())
	require.Len(t, ks.PublicKeys(), 2)
	require.Contains(t, ks.PublicKeys(), "retired")
}

func TestNewAutoKeySource_EnvIncomplete(t *testing.T) {
	t.Setenv(EnvKeyID, "active")
	t.Setenv(EnvPrivateKeyPEM, "")
	_, err := NewAutoKeySource(AutoKeyOptions{})
	require.Error(t, err)
}

func TestNewAutoKeySource_MountedFile(t *testing.T) {
	t.Setenv(EnvKeyID, "")
	t.Setenv(EnvPrivateKeyPEM, "")
	s, err := NewRSASigner(2048, "mounted")
	require.NoError(t, err)
	dir := t.TempDir()
	doc, err := json.Marshal(map[string]any{
		"active_key_id":          "mounted",
		"active_private_key_pem": string(s.EncodePrivateKeyPEM()),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keys.json"), doc, 0o600))

	ks, err := NewAutoKeySource(AutoKeyOptions{MountDir: dir, Production: true})
	require.NoError(t, err)
	require.Equal(t, "mounted", ks.ActiveSigner().KID())
}

func TestNewAutoKeySource_DevKeys(t *testing.T) {
	t.Setenv(EnvKeyID, "")
	t.Setenv(EnvPrivateKeyPEM, "")

	_, err := NewAutoKeySource(AutoKeyOptions{MountDir: t.TempDir(), Production: true})
	require.Error(t, err)

	dir := t.TempDir()
	first, err := NewAutoKeySource(AutoKeyOptions{DevDir: dir})
	require.NoError(t, err)
	second, err := NewAutoKeySource(AutoKeyOptions{DevDir: dir})
	require.NoError(t, err)
	require.Equal(t, first.ActiveSigner().KID(), second.ActiveSigner().KID())
}
