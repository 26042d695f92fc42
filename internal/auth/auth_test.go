package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pagechat.io/pagechat/internal/config"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
	assert.False(t, CheckPasswordHash("", hash))
}

func TestJWTRoundTrip(t *testing.T) {
	config.AppConfig.SecretKey = "test-secret"

	token, err := GenerateJWT(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	config.AppConfig.SecretKey = "test-secret"

	_, err := ValidateJWT("not.a.token")
	assert.Error(t, err)
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	config.AppConfig.SecretKey = "first-secret"
	token, err := GenerateJWT(7)
	require.NoError(t, err)

	config.AppConfig.SecretKey = "second-secret"
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}
