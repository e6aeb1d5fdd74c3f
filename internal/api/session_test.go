package api_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deevus/carbon-tui/internal/api"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-checked"))
	require.NoError(t, err)
	return tok
}

func TestParseSession(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signed(t, jwt.MapClaims{"sub": "u-1", "role": "CVA", "exp": exp.Unix()})

	s, err := api.ParseSession("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", s.UserID)
	assert.Equal(t, api.RoleCVA, s.Role)
	assert.True(t, s.ExpiresAt.Equal(exp))
	assert.False(t, s.Expired(time.Now()))
	assert.True(t, s.Expired(exp.Add(time.Second)))
}

func TestParseSession_UserIDClaim(t *testing.T) {
	s, err := api.ParseSession(signed(t, jwt.MapClaims{"userId": "u-2", "role": "buyer"}))
	require.NoError(t, err)
	assert.Equal(t, "u-2", s.UserID)
	assert.Equal(t, api.RoleBuyer, s.Role)
	assert.False(t, s.Expired(time.Now()))
}

func TestParseSession_Malformed(t *testing.T) {
	_, err := api.ParseSession("not-a-token")
	assert.Error(t, err)
}
