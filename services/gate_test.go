package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyward-io/keyward/domain"
	"github.com/keyward-io/keyward/errors"
)

func newTestGate(t *testing.T) (*Gate, *TokenService) {
	t.Helper()
	svc, _ := newTestTokenService(t, 15*time.Minute)
	return NewGate(svc), svc
}

func TestGate_Authenticate(t *testing.T) {
	gate, tokens := newTestGate(t)

	token, err := tokens.IssueAccessToken(testUser())
	require.NoError(t, err)

	t.Run("bare token", func(t *testing.T) {
		claims, err := gate.Authenticate(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
	})

	t.Run("bearer prefix is stripped", func(t *testing.T) {
		claims, err := gate.Authenticate("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := gate.Authenticate("")
		require.Error(t, err)
		assert.True(t, errors.IsUnauthorized(err))
	})

	t.Run("tampered token", func(t *testing.T) {
		_, err := gate.Authenticate(token + "x")
		require.Error(t, err)
		assert.True(t, errors.IsUnauthorized(err))
	})
}

func TestGate_Authorize(t *testing.T) {
	gate, _ := newTestGate(t)

	claims := &domain.AccessClaims{
		UserID: "user-1",
		Roles:  []string{domain.RoleUser, domain.RoleModerator},
	}

	tests := []struct {
		name     string
		claims   *domain.AccessClaims
		required []string
		wantErr  bool
	}{
		{"no requirement admits any authenticated caller", claims, nil, false},
		{"held role satisfies requirement", claims, []string{domain.RoleUser}, false},
		{"any overlap is enough", claims, []string{domain.RoleAdmin, domain.RoleModerator}, false},
		{"no overlap is forbidden", claims, []string{domain.RoleAdmin}, true},
		{"no roles held", &domain.AccessClaims{UserID: "user-2"}, []string{domain.RoleUser}, true},
		{"nil claims", nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate.Authorize(tt.claims, tt.required...)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsForbidden(err))
			} else {
				require.NoError(t, err)
			}
		})
	}

	t.Run("error names the missing roles", func(t *testing.T) {
		err := gate.Authorize(claims, domain.RoleAdmin)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires one of the roles")
		assert.Contains(t, err.Error(), domain.RoleAdmin)
	})

	t.Run("nil claims ask for authentication", func(t *testing.T) {
		err := gate.Authorize(nil, domain.RoleAdmin)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "authentication required")
	})
}

func TestGate_Require(t *testing.T) {
	gate, tokens := newTestGate(t)

	token, err := tokens.IssueAccessToken(testUser())
	require.NoError(t, err)

	ctx, claims, err := gate.Require(context.Background(), "Bearer "+token, domain.RoleModerator)
	require.NoError(t, err)
	require.NotNil(t, claims)

	fromCtx, ok := domain.ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, claims.UserID, fromCtx.UserID)

	_, _, err = gate.Require(context.Background(), "Bearer "+token, domain.RoleAdmin)
	require.Error(t, err)
	assert.True(t, errors.IsForbidden(err))

	_, _, err = gate.Require(context.Background(), "Bearer bogus", domain.RoleAdmin)
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorized(err))
}
