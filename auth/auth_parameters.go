package auth

import (
	"net/url"

	"github.com/jrsteele09/go-dashboard-auth/auth/authflowrepo"
)

// Phase is the position of a login in the authorization code flow.
type Phase = authflowrepo.Phase

const (
	PhaseStart            = authflowrepo.PhaseStart
	PhaseRedirected       = authflowrepo.PhaseRedirected
	PhaseCallbackReceived = authflowrepo.PhaseCallbackReceived
	PhaseEstablished      = authflowrepo.PhaseEstablished
	PhaseRejected         = authflowrepo.PhaseRejected
)

// ResponseType represents the OAuth 2.0 response type.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow, the only one
	// the dashboard accepts.
	CodeResponseType ResponseType = "code"
)

// CallbackParameters are the query parameters the identity provider sends
// to the redirect URI.
type CallbackParameters struct {
	Code             string
	State            string
	ResponseType     ResponseType
	Error            string
	ErrorDescription string
}

// CallbackParametersFromQuery reads callback parameters from a request query.
// A missing response_type means the authorization code flow.
func CallbackParametersFromQuery(q url.Values) CallbackParameters {
	p := CallbackParameters{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		ResponseType:     ResponseType(q.Get("response_type")),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
	if p.ResponseType == "" {
		p.ResponseType = CodeResponseType
	}
	return p
}

// Validate rejects a callback that can never succeed, before any call to
// the identity provider is made.
func (p CallbackParameters) Validate() error {
	switch {
	case p.Error != "":
		if p.ErrorDescription != "" {
			return newAuthorizationError(p.ErrorDescription, nil)
		}
		return newAuthorizationError(p.Error, nil)
	case p.ResponseType != CodeResponseType:
		return newAuthorizationError("Unsupported response type", nil)
	case p.Code == "":
		return newAuthorizationError("Missing authorization code", nil)
	case p.State == "":
		return newAuthorizationError("Missing login state", nil)
	}
	return nil
}
