package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 10)
	identity := domain.Identity{ID: "u1", Name: "Anan", Role: domain.RoleTechnician}

	token, exp, err := tm.GenerateToken(identity)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), exp, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, identity, claims.Identity())
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	token, _, err := tm.GenerateToken(domain.Identity{ID: "u1", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = NewTokenManager("other-secret", 1).ParseToken(token)
	assert.Error(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err, "expired")

	noRole, _, err := NewTokenManager("secret", 1).GenerateToken(domain.Identity{ID: "u1"})
	require.NoError(t, err)
	_, err = NewTokenManager("secret", 1).ParseToken(noRole)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter22"))
	assert.ErrorIs(t, ComparePassword(hash, "hunter23"), ErrPasswordMismatch)
}
