package authflowrepo

import (
	"errors"
	"time"
)

// Phase is the position of a login in the authorization code flow.
type Phase string

const (
	PhaseStart            Phase = "start"
	PhaseRedirected       Phase = "redirected"
	PhaseCallbackReceived Phase = "callback_received"
	PhaseEstablished      Phase = "established"
	PhaseRejected         Phase = "rejected"
)

var (
	ErrStateNotFound = errors.New("state not found")
	ErrStateExpired  = errors.New("state expired")
)

// AuthFlowState is what the dashboard remembers between sending the browser
// to the identity provider and receiving the callback.
type AuthFlowState struct {
	Nonce        string
	CodeVerifier string
	ReturnURL    string
	CreatedAt    time.Time
	Phase        Phase
}

// Repo stores flow state keyed by the OAuth2 state parameter. Consume must
// return a state at most once.
type Repo interface {
	Put(state string, authState *AuthFlowState) error
	Consume(state string) (*AuthFlowState, error)
}
