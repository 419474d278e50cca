package auth

import (
	"errors"
	"strings"
	"unicode"

	autherrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
)

var (
	ErrIssuerUnavailable = errors.New("identity provider not available")
	ErrMissingIDToken    = errors.New("token response has no id_token")
	ErrIDTokenInvalid    = errors.New("failed to verify ID token")
	ErrNonceMismatch     = errors.New("ID token nonce does not match expected value")
	ErrIssuedInFuture    = errors.New("ID token issued in the future")
	ErrNoTokenReviewer   = errors.New("no token reviewer configured")
)

// maxReasonLength bounds the text copied from upstream errors into a reason.
const maxReasonLength = 120

// AuthorizationError is returned for every failed login. Reason is short,
// human readable and safe to show to the user; Err is for logs only.
type AuthorizationError struct {
	Reason string
	Err    error
}

func newAuthorizationError(reason string, err error) *AuthorizationError {
	return &AuthorizationError{Reason: sanitizeReason(reason), Err: err}
}

func (e *AuthorizationError) Error() string {
	if e.Err == nil {
		return "authorization failed: " + e.Reason
	}
	return "authorization failed: " + e.Reason + ": " + e.Err.Error()
}

func (e *AuthorizationError) Unwrap() []error {
	if e.Err == nil {
		return []error{autherrors.ErrAuthorizationFailed}
	}
	return []error{autherrors.ErrAuthorizationFailed, e.Err}
}

// ReasonOf returns the user facing reason of a login failure.
func ReasonOf(err error) string {
	var authErr *AuthorizationError
	if errors.As(err, &authErr) && authErr.Reason != "" {
		return authErr.Reason
	}
	return "Authorization failed"
}

// sanitizeReason keeps a single line of printable text of bounded length.
func sanitizeReason(reason string) string {
	reason = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return ' '
	}, reason)
	reason = strings.Join(strings.Fields(reason), " ")
	if r := []rune(reason); len(r) > maxReasonLength {
		reason = string(r[:maxReasonLength])
	}
	if reason == "" {
		return "Authorization failed"
	}
	return reason
}
