package auth

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	a, err := New("secret")
	require.NoError(t, err)

	access, refresh, err := a.GenerateTokens(12, RoleKiosk)
	require.NoError(t, err)

	t.Run("access token", func(t *testing.T) {
		claims, err := a.ValidateToken(access)
		require.NoError(t, err)

		assert.Equal(t, 12, claims.UserId)
		assert.Equal(t, RoleKiosk, claims.Role)
		assert.True(t, claims.Authorized(RoleAdmin, RoleKiosk))
		assert.False(t, claims.Authorized(RoleAdmin))
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := a.ValidateToken(refresh)
		assert.True(t, errors.Is(err, ErrTokenType))
	})

	t.Run("refresh", func(t *testing.T) {
		newAccess, _, err := a.Refresh(refresh)
		require.NoError(t, err)

		claims, err := a.ValidateToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, 12, claims.UserId)

		_, _, err = a.Refresh(access)
		assert.True(t, errors.Is(err, ErrTokenType))
	})

	t.Run("other key", func(t *testing.T) {
		other, err := New("another")
		require.NoError(t, err)

		_, err = other.ValidateToken(access)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("expired", func(t *testing.T) {
		old, err := New("secret")
		require.NoError(t, err)
		old.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }

		stale, _, err := old.GenerateTokens(1, RoleAdmin)
		require.NoError(t, err)

		_, err = a.ValidateToken(stale)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestNewRejectsEmptyKey(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleDashboard))
	assert.False(t, ValidRole("ROOT"))
}

func TestMediaToken(t *testing.T) {
	a, err := New("secret")
	require.NoError(t, err)

	tok, err := a.MediaToken(1, "exports/attendance-2024-01.xlsx")
	require.NoError(t, err)

	require.NoError(t, a.ValidateMediaToken(tok, "exports/attendance-2024-01.xlsx"))
	assert.True(t, errors.Is(a.ValidateMediaToken(tok, "faces/other.jpg"), ErrTokenPath))

	_, err = a.ValidateToken(tok)
	assert.True(t, errors.Is(err, ErrTokenType))

	access, _, err := a.GenerateTokens(1, RoleAdmin)
	require.NoError(t, err)
	assert.True(t, errors.Is(a.ValidateMediaToken(access, ""), ErrTokenType))
}
