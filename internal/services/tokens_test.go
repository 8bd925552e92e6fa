package services

import (
	"testing"
	"time"

	"photo-rating/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	tokens := NewTokenIssuer("secret", time.Hour)

	token, err := tokens.Issue(42)
	require.NoError(t, err)

	uid, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
}

func TestTokenIssuer_Expired(t *testing.T) {
	tokens := NewTokenIssuer("secret", time.Minute)
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }

	token, err := tokens.Issue(1)
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, common.ErrAuthFailure)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("one", time.Hour).Issue(1)
	require.NoError(t, err)

	_, err = NewTokenIssuer("two", time.Hour).Verify(token)
	assert.ErrorIs(t, err, common.ErrAuthFailure)
}

func TestTokenIssuer_RejectsBadClaims(t *testing.T) {
	tokens := NewTokenIssuer("secret", time.Hour)

	cases := map[string]jwt.Claims{
		"missing user_id": jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()},
		"missing exp":     jwt.MapClaims{"user_id": 1},
		"string user_id":  jwt.MapClaims{"user_id": "1", "exp": time.Now().Add(time.Hour).Unix()},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
			require.NoError(t, err)
			_, err = tokens.Verify(signed)
			assert.ErrorIs(t, err, common.ErrAuthFailure)
		})
	}

	_, err := tokens.Verify("not-a-token")
	assert.ErrorIs(t, err, common.ErrAuthFailure)
}
