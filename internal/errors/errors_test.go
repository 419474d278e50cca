package errors_test

import (
	"fmt"
	"testing"

	autherrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	require.NoError(t, autherrors.Wrapf(nil, "decode %s", "cookie"))

	err := autherrors.Wrapf(autherrors.ErrExpired, "decode %s", "cookie")
	require.EqualError(t, err, "decode cookie: token expired")
	require.ErrorIs(t, err, autherrors.ErrExpired)
}

func TestReason(t *testing.T) {
	cases := map[string]error{
		"":                     nil,
		"expired":              fmt.Errorf("verify: %w", autherrors.ErrExpired),
		"invalid_signature":    autherrors.ErrInvalidSignature,
		"decryption_failed":    autherrors.ErrDecryptionFailed,
		"malformed":            autherrors.ErrMalformed,
		"authorization_failed": autherrors.ErrAuthorizationFailed,
		"session_invalid":      autherrors.ErrSessionInvalid,
		"unknown":              fmt.Errorf("boom"),
	}
	for want, err := range cases {
		require.Equal(t, want, autherrors.Reason(err))
	}
}

func TestReason_PrefersSpecificCause(t *testing.T) {
	err := fmt.Errorf("%w: %w", autherrors.ErrSessionInvalid, autherrors.ErrExpired)
	require.Equal(t, "expired", autherrors.Reason(err))
}
