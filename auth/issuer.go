package auth

import (
	"context"
	"time"
)

// AuthRequest carries the per-login values shared by the authorization
// request and the code exchange.
type AuthRequest struct {
	State        string
	Nonce        string
	CodeVerifier string
}

// Identity is the verified result of a code exchange.
type Identity struct {
	Subject   string
	Email     string
	Name      string
	Groups    []string
	IDToken   string
	ExpiresAt time.Time
}

// IssuerClient talks to the identity provider.
type IssuerClient interface {
	// AuthCodeURL returns the URL the browser is sent to.
	AuthCodeURL(ctx context.Context, req AuthRequest) (string, error)
	// Exchange trades an authorization code for a verified identity.
	Exchange(ctx context.Context, code string, req AuthRequest) (*Identity, error)
}
