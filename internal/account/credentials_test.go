package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func TestPlaintextVerifier(t *testing.T) {
	v := PlaintextVerifier{}

	stored, err := v.Hash("secret")
	require.NoError(t, err)
	assert.Equal(t, "secret", stored)

	assert.True(t, v.Verify(stored, "secret"))
	assert.False(t, v.Verify(stored, "other"))
}

func TestBcryptVerifier(t *testing.T) {
	v := BcryptVerifier{Cost: bcrypt.MinCost}

	stored, err := v.Hash("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", stored)

	assert.True(t, v.Verify(stored, "secret"))
	assert.False(t, v.Verify(stored, "other"))
}

func TestBcryptVerifierBackedService(t *testing.T) {
	s := newTestService(t)
	s.verifier = BcryptVerifier{Cost: bcrypt.MinCost}
	ctx := context.Background()

	_, err := s.Create(ctx, "user@gmail.com", "pass", "q", "a")
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "user@gmail.com", "pass")
	assert.NoError(t, err)
	_, err = s.Authenticate(ctx, "user@gmail.com", "wrong")
	assert.Error(t, err)
}
