package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("Aa1!aaaa")
	require.NoError(t, err)
	assert.NotEqual(t, "Aa1!aaaa", hash)

	assert.True(t, h.Verify("Aa1!aaaa", hash))
	assert.False(t, h.Verify("Aa1!aaab", hash))
	assert.False(t, h.Verify("", hash))
	assert.False(t, h.Verify("Aa1!aaaa", "not-a-hash"))

	again, err := h.Hash("Aa1!aaaa")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salted")
}

func TestNewBcryptHasher_CostOutOfRange(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(99).cost)
	assert.Equal(t, 10, NewBcryptHasher(10).cost)
}
