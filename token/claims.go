package token

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
)

// SessionClaims is the payload of the locally signed session token. Everything
// in it is readable by client-side script, so it must never carry secrets.
type SessionClaims struct {
	Email  string   `json:"email,omitempty"`
	Name   string   `json:"name,omitempty"`
	Groups []string `json:"groups,omitempty"`
	jwtlib.RegisteredClaims
}

// NewSessionClaims creates claims for a fresh login. The jti is a version 1
// UUID, so it is unique per login. Timestamps are truncated to seconds,
// the precision they are serialised with.
func NewSessionClaims(subject string, issuedAt time.Time, lifetime time.Duration) (*SessionClaims, error) {
	if subject == "" {
		return nil, fmt.Errorf("%w: subject cannot be empty", autherrors.ErrMalformed)
	}
	if lifetime < time.Second {
		return nil, fmt.Errorf("%w: lifetime must be at least one second", autherrors.ErrMalformed)
	}
	jti, err := uuid.NewUUID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate jti: %w", err)
	}
	iat := time.Unix(issuedAt.Unix(), 0)
	return &SessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			ID:        jti.String(),
			IssuedAt:  jwtlib.NewNumericDate(iat),
			ExpiresAt: jwtlib.NewNumericDate(iat.Add(lifetime)),
		},
	}, nil
}

// Validate is called by the JWT parser after the standard time checks.
func (c *SessionClaims) Validate() error {
	if c.Subject == "" {
		return fmt.Errorf("%w: missing sub", autherrors.ErrMalformed)
	}
	if c.ID == "" {
		return fmt.Errorf("%w: missing jti", autherrors.ErrMalformed)
	}
	if c.IssuedAt == nil || c.ExpiresAt == nil {
		return fmt.Errorf("%w: missing iat or exp", autherrors.ErrMalformed)
	}
	if !c.ExpiresAt.After(c.IssuedAt.Time) {
		return fmt.Errorf("%w: exp must be after iat", autherrors.ErrMalformed)
	}
	return nil
}

// ExpiresAtTime returns exp, or the zero time when it is unset.
func (c *SessionClaims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
