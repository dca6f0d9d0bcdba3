package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestValidateJWT(t *testing.T) {
	valid := Claims{Email: "a@b.c", RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	claims, err := ValidateJWT(sign(t, valid, "secret"), "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@b.c", claims.Email)

	_, err = ValidateJWT(sign(t, valid, "secret"), "other")
	assert.Error(t, err)

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = ValidateJWT(sign(t, expired, "secret"), "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	noSubject := valid
	noSubject.Subject = ""
	_, err = ValidateJWT(sign(t, noSubject, "secret"), "secret")
	assert.Error(t, err)

	_, err = ValidateJWT("garbage", "secret")
	assert.Error(t, err)
}
