package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBoxRoundTrip(t *testing.T) {
	box := NewTokenBox("session-secret")
	sealed, err := box.Seal("eyJhbGciOi.payload.sig")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "payload")

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOi.payload.sig", plain)
}

func TestTokenBoxRejectsForeignKey(t *testing.T) {
	sealed, err := NewTokenBox("one").Seal("token")
	require.NoError(t, err)
	_, err = NewTokenBox("two").Open(sealed)
	assert.ErrorIs(t, err, ErrTokenSeal)

	_, err = NewTokenBox("one").Open("not-base64!")
	assert.ErrorIs(t, err, ErrTokenSeal)
}
