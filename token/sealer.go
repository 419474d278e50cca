package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	autherrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
)

var sealEncoding = base64.RawURLEncoding.Strict()

// Encrypt seals plaintext with the primary key. The result has the form
// "<kid>.<base64url(nonce || ciphertext || tag)>". The key id and
// associatedData are authenticated but not encrypted; Decrypt must be given
// the same associatedData.
func (m *Manager) Encrypt(plaintext, associatedData []byte) (string, error) {
	key := m.keys.Primary()
	nonceSize := key.aead.NonceSize()

	nonce := make([]byte, nonceSize, nonceSize+len(plaintext)+key.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := key.aead.Seal(nonce, nonce, plaintext, sealingAD(key.ID, associatedData))
	return key.ID + "." + sealEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Every failure, whatever its cause, is reported
// as ErrDecryptionFailed and no partial plaintext is returned.
func (m *Manager) Decrypt(ciphertext string, associatedData []byte) ([]byte, error) {
	kid, data, ok := strings.Cut(ciphertext, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing key id", autherrors.ErrDecryptionFailed)
	}
	key, ok := m.keys.Lookup(kid)
	if !ok {
		return nil, fmt.Errorf("%w: %v", autherrors.ErrDecryptionFailed, errUnknownKeyID)
	}
	raw, err := sealEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid encoding", autherrors.ErrDecryptionFailed)
	}
	nonceSize := key.aead.NonceSize()
	if len(raw) < nonceSize+key.aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", autherrors.ErrDecryptionFailed)
	}
	plaintext, err := key.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], sealingAD(kid, associatedData))
	if err != nil {
		return nil, fmt.Errorf("%w: message authentication failed", autherrors.ErrDecryptionFailed)
	}
	return plaintext, nil
}

// sealingAD joins the key id and the caller's data. Key ids never contain
// a ".", so the split point is unambiguous.
func sealingAD(kid string, associatedData []byte) []byte {
	ad := make([]byte, 0, len(kid)+1+len(associatedData))
	ad = append(ad, kid...)
	ad = append(ad, '.')
	return append(ad, associatedData...)
}
