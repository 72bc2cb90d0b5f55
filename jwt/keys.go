package jwtkit

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Environment variables consulted by NewAutoKeySource.
const (
	EnvKeyID         = "MOODKIT_KEY_ID"
	EnvPrivateKeyPEM = "MOODKIT_PRIVATE_KEY_PEM"
	EnvPublicKeys    = "MOODKIT_PUBLIC_KEYS"
)

// KeySource provides the active signer and the public keys tokens may be
// verified against (the active key plus any keys still in rotation).
type KeySource interface {
	ActiveSigner() Signer
	PublicKeys() map[string]*rsa.PublicKey
}

// StaticKeySource is a fixed in-memory KeySource.
type StaticKeySource struct {
	Active Signer
	Pubs   map[string]*rsa.PublicKey
}

func (s StaticKeySource) ActiveSigner() Signer                  { return s.Active }
func (s StaticKeySource) PublicKeys() map[string]*rsa.PublicKey { return s.Pubs }

// NewSignerKeySource wraps a single RSASigner.
func NewSignerKeySource(s *RSASigner) StaticKeySource {
	return StaticKeySource{Active: s, Pubs: map[string]*rsa.PublicKey{s.KID(): s.PublicKey()}}
}

// AutoKeyOptions controls where NewAutoKeySource looks for keys.
type AutoKeyOptions struct {
	// MountDir holds keys.json, typically populated by a secrets operator.
	MountDir string
	// DevDir receives generated keys outside production.
	DevDir string
	// Production disables key generation.
	Production bool
	Log        logrus.FieldLogger
}

// NewAutoKeySource resolves signing keys in priority order:
//  1. MOODKIT_KEY_ID / MOODKIT_PRIVATE_KEY_PEM (+ optional MOODKIT_PUBLIC_KEYS)
//  2. <MountDir>/keys.json
//  3. a generated key persisted under DevDir (refused in production)
func NewAutoKeySource(opts AutoKeyOptions) (KeySource, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if ks, err := keySourceFromEnv(log); err != nil {
		return nil, fmt.Errorf("load keys from environment: %w", err)
	} else if ks != nil {
		log.WithField("source", "env").Info("jwt: signing keys loaded")
		return ks, nil
	}
	if opts.MountDir != "" {
		if ks, err := keySourceFromFile(filepath.Join(opts.MountDir, "keys.json"), log); err != nil {
			return nil, fmt.Errorf("load keys from %s: %w", opts.MountDir, err)
		} else if ks != nil {
			log.WithField("source", opts.MountDir).Info("jwt: signing keys loaded")
			return ks, nil
		}
	}
	if opts.Production {
		return nil, errors.New("jwt: no signing keys provisioned and generation is disabled in production")
	}
	s, err := devSigner(opts.DevDir, log)
	if err != nil {
		return nil, err
	}
	log.WithField("kid", s.KID()).Warn("jwt: using development signing key")
	return NewSignerKeySource(s), nil
}

// keySourceFromEnv returns (nil, nil) when no key variables are set.
func keySourceFromEnv(log logrus.FieldLogger) (KeySource, error) {
	kid := strings.TrimSpace(os.Getenv(EnvKeyID))
	privPEM := strings.TrimSpace(os.Getenv(EnvPrivateKeyPEM))
	if kid == "" && privPEM == "" {
		return nil, nil
	}
	if kid == "" || privPEM == "" {
		return nil, fmt.Errorf("%s and %s must be set together", EnvKeyID, EnvPrivateKeyPEM)
	}
	var extra map[string]string
	if raw := strings.TrimSpace(os.Getenv(EnvPublicKeys)); raw != "" {
		if err := json.Unmarshal([]byte(raw), &extra); err != nil {
			return nil, fmt.Errorf("parse %s: %w", EnvPublicKeys, err)
		}
	}
	return buildKeySource(kid, privPEM, extra, log)
}

// keySourceFromFile returns (nil, nil) when the file does not exist.
func keySourceFromFile(path string, log logrus.FieldLogger) (KeySource, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc struct {
		ActiveKeyID         string            `json:"active_key_id"`
		ActivePrivateKeyPEM string            `json:"active_private_key_pem"`
		PublicKeys          map[string]string `json:"public_keys"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse keys.json: %w", err)
	}
	if doc.ActiveKeyID == "" || doc.ActivePrivateKeyPEM == "" {
		return nil, errors.New("keys.json requires active_key_id and active_private_key_pem")
	}
	return buildKeySource(doc.ActiveKeyID, doc.ActivePrivateKeyPEM, doc.PublicKeys, log)
}

func buildKeySource(kid, privPEM string, extra map[string]string, log logrus.FieldLogger) (KeySource, error) {
	signer, err := NewRSASignerFromPEM(kid, []byte(privPEM))
	if err != nil {
		return nil, fmt.Errorf("parse private key %q: %w", kid, err)
	}
	ks := NewSignerKeySource(signer)
	for id, p := range extra {
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(p))
		if err != nil {
			// A bad retired key must not block startup.
			log.WithError(err).WithField("kid", id).Warn("jwt: skipping unparsable public key")
			continue
		}
		ks.Pubs[id] = pub
	}
	return ks, nil
}

// devSigner loads a previously generated key from dir or creates one.
func devSigner(dir string, log logrus.FieldLogger) (*RSASigner, error) {
	if dir == "" {
		dir = ".runtime/moodkit"
	}
	keyPath := filepath.Join(dir, "private.pem")
	kidPath := filepath.Join(dir, "kid")
	if pemBytes, err := os.ReadFile(keyPath); err == nil {
		kid := "dev"
		if b, err := os.ReadFile(kidPath); err == nil && strings.TrimSpace(string(b)) != "" {
			kid = strings.TrimSpace(string(b))
		}
		if s, err := NewRSASignerFromPEM(kid, pemBytes); err == nil {
			return s, nil
		}
		log.WithField("path", keyPath).Warn("jwt: regenerating unreadable development key")
	}
	s, err := NewRSASigner(2048, fmt.Sprintf("dev-%d", time.Now().Unix()))
	if err != nil {
		return nil, fmt.Errorf("generate development key: %w", err)
	}
	if err := persistDevSigner(dir, keyPath, kidPath, s); err != nil {
		log.WithError(err).Warn("jwt: development key not persisted")
	}
	return s, nil
}

func persistDevSigner(dir, keyPath, kidPath string, s *RSASigner) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(keyPath, s.EncodePrivateKeyPEM(), 0o600); err != nil {
		return err
	}
	return os.WriteFile(kidPath, []byte(s.KID()), 0o600)
}
