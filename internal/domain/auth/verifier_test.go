package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/seadrift/dive-insights/pkg/errors"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestHS256Verifier_ValidToken(t *testing.T) {
	verifier := NewHS256Verifier(Config{JWTSecret: testSecret})
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   "user-1",
		"email": "diver@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	claims, err := verifier.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "diver@example.com", claims.Email)
}

func TestHS256Verifier_WrongSecret(t *testing.T) {
	verifier := NewHS256Verifier(Config{JWTSecret: testSecret})
	token := signToken(t, "someone-elses-secret", jwt.MapClaims{"sub": "user-1"})

	_, err := verifier.Verify(context.Background(), token)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
}

func TestHS256Verifier_ExpiredToken(t *testing.T) {
	verifier := NewHS256Verifier(Config{JWTSecret: testSecret})
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := verifier.Verify(context.Background(), token)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
}

func TestHS256Verifier_MissingSubject(t *testing.T) {
	verifier := NewHS256Verifier(Config{JWTSecret: testSecret})
	token := signToken(t, testSecret, jwt.MapClaims{"email": "diver@example.com"})

	_, err := verifier.Verify(context.Background(), token)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
}

func TestHS256Verifier_EmptyToken(t *testing.T) {
	verifier := NewHS256Verifier(Config{JWTSecret: testSecret})

	_, err := verifier.Verify(context.Background(), "  ")
	require.True(t, apperrors.IsCode(err, "invalid_token"))
}

func TestHS256Verifier_Audience(t *testing.T) {
	verifier := NewHS256Verifier(Config{JWTSecret: testSecret, Audience: "dive-insights"})

	matching := signToken(t, testSecret, jwt.MapClaims{"sub": "user-1", "aud": "dive-insights"})
	claims, err := verifier.Verify(context.Background(), matching)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)

	mismatched := signToken(t, testSecret, jwt.MapClaims{"sub": "user-1", "aud": "other-app"})
	_, err = verifier.Verify(context.Background(), mismatched)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
}
