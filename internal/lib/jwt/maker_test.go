package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMaker_GenerateAndParseToken_ValidCases(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	tokenTTL := 15 * time.Minute
	maker := NewJWTMaker(secretKey, tokenTTL, "https://clerk.example.com")

	tests := []struct {
		name   string
		userID string
		email  string
	}{
		{
			name:   "clerk style id",
			userID: "user_2NNEqL2nrIRdJ194ndJqAHwEfxC",
			email:  "alice@example.com",
		},
		{
			name:   "uuid id",
			userID: "550e8400-e29b-41d4-a716-446655440000",
			email:  "bob@example.com",
		},
		{
			name:   "without email",
			userID: "user_42",
			email:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.userID, tt.email)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			assert.Equal(t, tt.userID, claims.UserID())
			assert.Equal(t, tt.email, claims.Email)
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, 2*time.Second)
			assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, 2*time.Second)
		})
	}
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	maker := NewJWTMaker(secretKey, 15*time.Minute, "")

	validToken, err := maker.GenerateToken("user_1", "a@example.com")
	require.NoError(t, err)

	noSubject, err := maker.GenerateToken("", "a@example.com")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "expired token", token: createExpiredToken(t, secretKey)},
		{name: "wrong secret key", token: createTokenWithWrongSecret(t)},
		{name: "tampered token", token: validToken + "tampered"},
		{name: "missing subject", token: noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)

			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTMaker_IssuerMismatch(t *testing.T) {
	issuer := NewJWTMaker("secret", time.Minute, "https://other-issuer")
	verifier := NewJWTMaker("secret", time.Minute, "https://clerk.example.com")

	token, err := issuer.GenerateToken("user_1", "")
	require.NoError(t, err)

	claims, err := verifier.ParseToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestJWTMaker_DifferentSecretKeys(t *testing.T) {
	maker1 := NewJWTMaker("first_secret_key", 15*time.Minute, "")
	maker2 := NewJWTMaker("different_secret_key", 15*time.Minute, "")

	token, err := maker1.GenerateToken("user_1", "")
	require.NoError(t, err)

	claims, err := maker2.ParseToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)

	claims, err = maker1.ParseToken(token)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
}

func TestJWTMaker_ExpiredTokenMessage(t *testing.T) {
	maker := NewJWTMaker("secret", time.Minute, "")

	_, err := maker.ParseToken(createExpiredToken(t, "secret"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func createExpiredToken(t *testing.T, secretKey string) string {
	maker := NewJWTMaker(secretKey, -time.Hour, "")
	token, err := maker.GenerateToken("user_1", "")
	require.NoError(t, err)
	return token
}

func createTokenWithWrongSecret(t *testing.T) string {
	wrongMaker := NewJWTMaker("wrong_secret_key", 15*time.Minute, "")
	token, err := wrongMaker.GenerateToken("user_1", "")
	require.NoError(t, err)
	return token
}
