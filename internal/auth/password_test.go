package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyEmergencyKey(t *testing.T) {
	hash, err := HashEmergencyKey("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, VerifyEmergencyKey("correct horse battery staple", hash))
	assert.False(t, VerifyEmergencyKey("wrong key", hash))
}

func TestVerifyEmergencyKeyEmptyHash(t *testing.T) {
	assert.False(t, VerifyEmergencyKey("anything", ""))
}
