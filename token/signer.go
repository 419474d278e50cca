package token

import (
	"errors"
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
)

var errUnknownKeyID = errors.New("unknown key id")

// Sign creates a compact HS256 token from claims using the primary key. The
// key id is recorded in the "kid" header.
func (m *Manager) Sign(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", fmt.Errorf("%w: claims cannot be nil", autherrors.ErrMalformed)
	}
	if err := claims.Validate(); err != nil {
		return "", err
	}
	key := m.keys.Primary()
	t := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	t.Header["kid"] = key.ID

	signed, err := t.SignedString(key.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with HMAC: %w", err)
	}
	return signed, nil
}

// Verify parses raw, checks its signature with the key named by "kid" and
// validates exp and iat within the clock tolerance.
func (m *Manager) Verify(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, m.verificationKey,
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithLeeway(m.clockTolerance),
		jwtlib.WithTimeFunc(m.nowTime),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithIssuedAt(),
		jwtlib.WithStrictDecoding(),
	)
	if err != nil {
		return nil, classify(err)
	}
	return claims, nil
}

func (m *Manager) verificationKey(t *jwtlib.Token) (any, error) {
	if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	kid, _ := t.Header["kid"].(string)
	key, ok := m.keys.Lookup(kid)
	if !ok {
		return nil, errUnknownKeyID
	}
	return key.signingKey, nil
}

// classify maps parser errors onto the token taxonomy. The signature is
// checked before any claim, so a forged token is never reported as expired.
func classify(err error) error {
	switch {
	case errors.Is(err, autherrors.ErrMalformed):
		return err
	case errors.Is(err, jwtlib.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", autherrors.ErrMalformed, err)
	case errors.Is(err, jwtlib.ErrTokenSignatureInvalid), errors.Is(err, jwtlib.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", autherrors.ErrInvalidSignature, err)
	case errors.Is(err, jwtlib.ErrTokenExpired):
		return fmt.Errorf("%w: %v", autherrors.ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", autherrors.ErrMalformed, err)
	}
}
