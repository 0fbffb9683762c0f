package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("secret", "inventory-tests", time.Hour)

	token, err := m.GenerateToken("user_123")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user_123", claims.Subject)
	assert.Equal(t, "inventory-tests", claims.Issuer)
}

func TestManager_RejectsExpiredToken(t *testing.T) {
	m := NewManager("secret", "", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := m.GenerateToken("user_123")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_RejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", "", time.Hour).GenerateToken("user_123")
	require.NoError(t, err)

	_, err = NewManager("secret-b", "", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_RejectsWrongIssuer(t *testing.T) {
	token, err := NewManager("secret", "someone-else", time.Hour).GenerateToken("user_123")
	require.NoError(t, err)

	_, err = NewManager("secret", "inventory", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_RejectsMissingSubject(t *testing.T) {
	claims := gojwt.RegisteredClaims{ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour))}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewManager("secret", "", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_RejectsAlgNone(t *testing.T) {
	claims := gojwt.RegisteredClaims{
		Subject:   "user_123",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, claims).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewManager("secret", "", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_EmptyToken(t *testing.T) {
	_, err := NewManager("secret", "", time.Hour).ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}
