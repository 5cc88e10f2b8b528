package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	a, err := DeriveKey("hunter2")
	require.NoError(t, err)
	b, err := DeriveKey("hunter2")
	require.NoError(t, err)
	c, err := DeriveKey("other")
	require.NoError(t, err)

	assert.Equal(t, *a, *b)
	assert.NotEqual(t, *a, *c)
}

func TestSealStringOpensWithSameToken(t *testing.T) {
	k, err := DeriveKey("shared")
	require.NoError(t, err)

	sealed, err := k.SealString("ls -la | grep go")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "grep")

	plain, err := k.OpenString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ls -la | grep go", plain)
}

func TestSealUsesFreshNonce(t *testing.T) {
	k, err := DeriveKey("shared")
	require.NoError(t, err)
	a, err := k.SealString("same")
	require.NoError(t, err)
	b, err := k.SealString("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenStringRejectsWrongKeyAndGarbage(t *testing.T) {
	k1, _ := DeriveKey("one")
	k2, _ := DeriveKey("two")

	sealed, err := k1.SealString("secret")
	require.NoError(t, err)

	_, err = k2.OpenString(sealed)
	assert.ErrorIs(t, err, ErrOpen)

	_, err = k1.OpenString("not base64!!")
	assert.Error(t, err)

	_, err = k1.OpenString("c2hvcnQ=")
	assert.Error(t, err)
}
