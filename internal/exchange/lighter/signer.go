package lighter

import (
	"bytes"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Signer produces the signatures the exchange demands on transactions and on
// authenticated stream subscriptions. Shaping the payloads is the gateway's
// job; the cryptography lives behind this interface.
type Signer interface {
	APIKeyIndex() uint8
	SignTransaction(payload []byte) (string, error)
	AuthToken(accountIndex int64, deadline time.Time) (string, error)
}

// KeySigner signs with a registered ed25519 API key.
type KeySigner struct {
	index uint8
	key   ed25519.PrivateKey
}

func NewKeySigner(index uint8, key ed25519.PrivateKey) (*KeySigner, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("ed25519 private key has wrong size")
	}
	return &KeySigner{index: index, key: key}, nil
}

// NewKeySignerFromMaterial accepts inline key material or a file path.
func NewKeySignerFromMaterial(index uint8, material, path string) (*KeySigner, error) {
	var (
		key ed25519.PrivateKey
		err error
	)
	if material != "" {
		key, err = parseEd25519PrivateKey([]byte(material))
	} else {
		key, err = loadEd25519PrivateKey(path)
	}
	if err != nil {
		return nil, fmt.Errorf("signing key %d: %w", index, err)
	}
	return NewKeySigner(index, key)
}

func (s *KeySigner) APIKeyIndex() uint8 { return s.index }

func (s *KeySigner) SignTransaction(payload []byte) (string, error) {
	if s.key == nil {
		return "", errors.New("ed25519 key not loaded")
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(s.key, payload)), nil
}

// AuthToken builds the bearer token for authenticated channels and REST
// submissions: a signed statement of the key identity and its deadline.
func (s *KeySigner) AuthToken(accountIndex int64, deadline time.Time) (string, error) {
	claim := strconv.FormatInt(deadline.Unix(), 10) + ":" +
		strconv.FormatInt(accountIndex, 10) + ":" +
		strconv.Itoa(int(s.index))
	sig, err := s.SignTransaction([]byte(claim))
	if err != nil {
		return "", err
	}
	return claim + ":" + sig, nil
}

func loadEd25519PrivateKey(path string) (ed25519.PrivateKey, error) {
	if path == "" {
		return nil, errors.New("private key path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseEd25519PrivateKey(data)
}

// parseEd25519PrivateKey accepts PKCS8 PEM, base64, hex (seed or full key),
// or raw key bytes.
func parseEd25519PrivateKey(data []byte) (ed25519.PrivateKey, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty ed25519 private key")
	}
	if block, _ := pem.Decode(data); block != nil {
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		if k, ok := key.(ed25519.PrivateKey); ok {
			return k, nil
		}
		return nil, errors.New("unsupported private key type")
	}
	if raw, err := hex.DecodeString(string(data)); err == nil {
		switch len(raw) {
		case ed25519.SeedSize:
			return ed25519.NewKeyFromSeed(raw), nil
		case ed25519.PrivateKeySize:
			return ed25519.PrivateKey(raw), nil
		}
	}
	if raw, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		switch len(raw) {
		case ed25519.SeedSize:
			return ed25519.NewKeyFromSeed(raw), nil
		case ed25519.PrivateKeySize:
			return ed25519.PrivateKey(raw), nil
		}
	}
	if len(data) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(data), nil
	}
	return nil, errors.New("unsupported ed25519 private key format")
}
