package authtoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseAdminToken(t *testing.T) {
	tok, err := GenerateAdminToken()
	require.NoError(t, err)

	claims, err := ParseAdminToken(tok)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Role)
}

func TestParseAdminTokenRejectsWrongRole(t *testing.T) {
	claims := AdminClaims{
		Role: "guest",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret())
	require.NoError(t, err)

	_, err = ParseAdminToken(signed)
	require.Error(t, err)
}

func TestParseAdminTokenRejectsExpired(t *testing.T) {
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret())
	require.NoError(t, err)

	_, err = ParseAdminToken(signed)
	require.Error(t, err)
}

func TestParseAdminTokenRejectsGarbage(t *testing.T) {
	_, err := ParseAdminToken("not-a-jwt")
	require.Error(t, err)
}
