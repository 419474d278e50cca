package token_test

import (
	"bytes"
	"testing"

	"github.com/jrsteele09/go-dashboard-auth/token"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	k, err := token.DeriveKey(testKeyID, []byte(testSecret))
	require.NoError(t, err)
	require.Equal(t, testKeyID, k.ID)

	_, err = token.DeriveKey(testKeyID, nil)
	require.Error(t, err)

	_, err = token.DeriveKey("has.dot", []byte(testSecret))
	require.Error(t, err)
}

func TestNewKey(t *testing.T) {
	signing := bytes.Repeat([]byte{1}, token.KeySize)
	encryption := bytes.Repeat([]byte{2}, token.KeySize)

	_, err := token.NewKey("k1", signing, encryption)
	require.NoError(t, err)

	_, err = token.NewKey("k1", signing[:16], encryption)
	require.Error(t, err)

	_, err = token.NewKey("k1", signing, encryption[:16])
	require.Error(t, err)

	_, err = token.NewKey("", signing, encryption)
	require.Error(t, err)
}

func TestKeyring(t *testing.T) {
	a, err := token.DeriveKey("a", []byte(testSecret))
	require.NoError(t, err)
	b, err := token.DeriveKey("b", []byte(testSecret))
	require.NoError(t, err)

	_, err = token.NewKeyring(nil)
	require.Error(t, err)

	_, err = token.NewKeyring(a, a)
	require.Error(t, err)

	kr, err := token.NewKeyring(a, b)
	require.NoError(t, err)
	require.Same(t, a, kr.Primary())

	got, ok := kr.Lookup("b")
	require.True(t, ok)
	require.Same(t, b, got)

	_, ok = kr.Lookup("c")
	require.False(t, ok)
}
