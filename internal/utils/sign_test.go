package utils

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestIssueAndParse(t *testing.T) {
	key := newKey(t)

	token, err := IssueToken("user-1", "a@example.com", "Alice", time.Hour, key)
	require.NoError(t, err)

	claims, err := ParseAndVerifySign(token, &key.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.True(t, claims.EmailVerified)
	assert.NotEmpty(t, claims.ID)
}

func TestParse_Expired(t *testing.T) {
	key := newKey(t)

	token, err := IssueToken("user-1", "", "", -time.Minute, key)
	require.NoError(t, err)

	_, err = ParseAndVerifySign(token, &key.PublicKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParse_WrongKey(t *testing.T) {
	token, err := IssueToken("user-1", "", "", time.Hour, newKey(t))
	require.NoError(t, err)

	_, err = ParseAndVerifySign(token, &newKey(t).PublicKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParse_RejectsHMAC(t *testing.T) {
	key := newKey(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ParseAndVerifySign(raw, &key.PublicKey)
	assert.Error(t, err)
}
