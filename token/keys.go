package token

import (
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/jrsteele09/go-dashboard-auth/internal/config"
	autherrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of both the signing and the encryption key.
const KeySize = 32

const (
	signingInfo    = "dashboard/session-signature"
	encryptionInfo = "dashboard/bearer-encryption"
)

// Key is the material for one key id: an HMAC key for session tokens and an
// AEAD for the upstream bearer token.
type Key struct {
	ID         string
	signingKey []byte
	aead       cipher.AEAD
}

// DeriveKey expands a process secret into independent signing and encryption
// keys with HKDF-SHA256. The key id is used as salt so each id yields
// distinct keys.
func DeriveKey(keyID string, secret []byte) (*Key, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret cannot be empty")
	}
	signingKey, err := expand(secret, []byte(keyID), signingInfo)
	if err != nil {
		return nil, err
	}
	encryptionKey, err := expand(secret, []byte(keyID), encryptionInfo)
	if err != nil {
		return nil, err
	}
	return NewKey(keyID, signingKey, encryptionKey)
}

// NewKey builds a Key from raw key material.
func NewKey(keyID string, signingKey, encryptionKey []byte) (*Key, error) {
	if !config.KeyIDPattern.MatchString(keyID) {
		return nil, fmt.Errorf("invalid key id %q", keyID)
	}
	if len(signingKey) != KeySize {
		return nil, fmt.Errorf("invalid signing key size: got %d, want %d", len(signingKey), KeySize)
	}
	aead, err := chacha20poly1305.NewX(encryptionKey)
	if err != nil {
		return nil, autherrors.Wrapf(err, "creating cipher")
	}
	return &Key{
		ID:         keyID,
		signingKey: append([]byte(nil), signingKey...),
		aead:       aead,
	}, nil
}

func expand(secret, salt []byte, info string) ([]byte, error) {
	h := hkdf.New(sha256.New, secret, salt, []byte(info))
	k := make([]byte, KeySize)
	if _, err := io.ReadFull(h, k); err != nil {
		return nil, autherrors.Wrapf(err, "reading from HKDF")
	}
	return k, nil
}

// Keyring holds the primary key used for new tokens plus any additional keys
// still accepted for verification and decryption.
type Keyring struct {
	primary *Key
	keys    map[string]*Key
}

func NewKeyring(primary *Key, others ...*Key) (*Keyring, error) {
	if primary == nil {
		return nil, errors.New("primary key is required")
	}
	kr := &Keyring{
		primary: primary,
		keys:    map[string]*Key{primary.ID: primary},
	}
	for _, k := range others {
		if k == nil {
			continue
		}
		if _, exists := kr.keys[k.ID]; exists {
			return nil, fmt.Errorf("duplicate key id %q", k.ID)
		}
		kr.keys[k.ID] = k
	}
	return kr, nil
}

func (kr *Keyring) Primary() *Key {
	return kr.primary
}

func (kr *Keyring) Lookup(keyID string) (*Key, bool) {
	k, ok := kr.keys[keyID]
	return k, ok
}
