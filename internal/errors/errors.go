package errors

import (
	"errors"
	"fmt"
)

// Session and login error taxonomy. Callers branch on these with errors.Is;
// the specific value is for server-side logs only and never reaches a response.
var (
	// Token errors
	ErrMalformed        = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
	ErrDecryptionFailed = errors.New("decryption failed")

	// Login errors
	ErrAuthorizationFailed = errors.New("authorization failed")

	// Session errors
	ErrSessionInvalid = errors.New("session invalid")
)

// Wrapf prefixes err with a formatted context, keeping it matchable with
// errors.Is. A nil err stays nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Reason returns the name of the first taxonomy error found in err's chain.
// It is meant for log fields.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrDecryptionFailed):
		return "decryption_failed"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrAuthorizationFailed):
		return "authorization_failed"
	case errors.Is(err, ErrSessionInvalid):
		return "session_invalid"
	default:
		return "unknown"
	}
}
