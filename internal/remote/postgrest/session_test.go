package postgrest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/ideadeck/internal/saved"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestUserID(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	user := uuid.New()

	t.Run("valid session", func(t *testing.T) {
		tok := signToken(t, jwt.MapClaims{"sub": user.String(), "exp": now.Add(time.Hour).Unix()})
		got, err := UserID(tok, now)
		require.NoError(t, err)
		assert.Equal(t, user, got)
	})

	t.Run("no token", func(t *testing.T) {
		_, err := UserID("", now)
		assert.ErrorIs(t, err, saved.ErrNoIdentity)
	})

	t.Run("expired", func(t *testing.T) {
		tok := signToken(t, jwt.MapClaims{"sub": user.String(), "exp": now.Add(-time.Minute).Unix()})
		_, err := UserID(tok, now)
		assert.ErrorIs(t, err, saved.ErrNoIdentity)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("anon key has no subject", func(t *testing.T) {
		tok := signToken(t, jwt.MapClaims{"role": "anon"})
		_, err := UserID(tok, now)
		assert.ErrorIs(t, err, saved.ErrNoIdentity)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := UserID("not.a.jwt", now)
		assert.Error(t, err)
	})

	t.Run("subject not a uuid", func(t *testing.T) {
		tok := signToken(t, jwt.MapClaims{"sub": "alice"})
		_, err := UserID(tok, now)
		assert.Error(t, err)
	})
}
