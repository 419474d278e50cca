package sessions

import (
	"fmt"
	"strings"
	"time"

	autherrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/jrsteele09/go-dashboard-auth/token"
)

// TokenCrypto signs and encrypts the session parts. *token.Manager
// implements it.
type TokenCrypto interface {
	Sign(claims *token.SessionClaims) (string, error)
	Verify(raw string) (*token.SessionClaims, error)
	Encrypt(plaintext, associatedData []byte) (string, error)
	Decrypt(ciphertext string, associatedData []byte) ([]byte, error)
}

// Session is an authenticated session recovered from the request cookies.
type Session struct {
	Claims      *token.SessionClaims
	BearerToken string
}

// Subject returns the authenticated identity.
func (s *Session) Subject() string {
	return s.Claims.Subject
}

// Codec converts between session claims plus the upstream bearer token and
// the three cookie parts.
type Codec struct {
	crypto TokenCrypto
}

func NewCodec(crypto TokenCrypto) (*Codec, error) {
	if crypto == nil {
		return nil, fmt.Errorf("[sessions NewCodec] token crypto is required")
	}
	return &Codec{crypto: crypto}, nil
}

// Encode signs claims, encrypts bearer and splits the result into cookies
// that expire with the claims. The bearer is sealed to the claims' jti, so
// the token cookie only opens next to the session it was issued with.
func (c *Codec) Encode(claims *token.SessionClaims, bearer string) (*SplitCookie, error) {
	signed, err := c.crypto.Sign(claims)
	if err != nil {
		return nil, autherrors.Wrapf(err, "signing session")
	}
	i := strings.LastIndexByte(signed, '.')
	if i < 0 {
		return nil, autherrors.Wrapf(autherrors.ErrMalformed, "signing session")
	}
	sealed, err := c.crypto.Encrypt([]byte(bearer), []byte(claims.ID))
	if err != nil {
		return nil, autherrors.Wrapf(err, "encrypting bearer token")
	}
	return newSplitCookie(signed[:i], signed[i+1:], sealed, claims.ExpiresAtTime(), 0), nil
}

// Decode verifies the three parts and returns the session they carry. Every
// error satisfies errors.Is(err, ErrSessionInvalid); verification and
// decryption errors keep their own sentinel as well.
func (c *Codec) Decode(parts Parts) (*Session, error) {
	if !parts.Complete() {
		return nil, fmt.Errorf("%w: missing session cookie", autherrors.ErrSessionInvalid)
	}
	claims, err := c.crypto.Verify(parts.HeaderPayload + "." + parts.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", autherrors.ErrSessionInvalid, err)
	}
	bearer, err := c.crypto.Decrypt(parts.Token, []byte(claims.ID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", autherrors.ErrSessionInvalid, err)
	}
	return &Session{Claims: claims, BearerToken: string(bearer)}, nil
}

// Clear returns cookies that remove a session from the browser.
func (c *Codec) Clear() *SplitCookie {
	return newSplitCookie("", "", "", time.Unix(0, 0).UTC(), -1)
}
