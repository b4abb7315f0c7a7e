package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/keyward-io/keyward/domain"
	"github.com/keyward-io/keyward/errors"
	"github.com/keyward-io/keyward/internal/auth/rbac"
)

// Gate is the authorization boundary callers place in front of protected
// operations. It verifies bearer tokens and checks role requirements; it
// never consults the user directory, so a role change or deactivation only
// takes effect once the live access token expires.
type Gate struct {
	tokens *TokenService
}

// NewGate creates a new Gate over the given token service.
func NewGate(tokens *TokenService) *Gate {
	return &Gate{tokens: tokens}
}

// Authenticate verifies the bearer token and returns its claims. A leading
// "Bearer " prefix is accepted and stripped.
func (g *Gate) Authenticate(tokenStr string) (*domain.AccessClaims, error) {
	tokenStr = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tokenStr), "Bearer "))
	if tokenStr == "" {
		return nil, errors.NewUnauthorized("authentication required")
	}
	return g.tokens.VerifyAccessToken(tokenStr)
}

// Authorize checks the claims against the required roles. With no required
// roles any authenticated caller passes; otherwise the held and required
// sets must intersect.
func (g *Gate) Authorize(claims *domain.AccessClaims, requiredRoles ...string) error {
	if claims == nil {
		return errors.NewForbidden("authentication required")
	}
	if !rbac.HasAnyRole(claims.Roles, requiredRoles) {
		return errors.NewForbidden(fmt.Sprintf(
			"requires one of the roles: %s", strings.Join(requiredRoles, ", ")))
	}
	return nil
}

// Require authenticates the bearer token, checks the role requirement, and
// returns a context carrying the verified claims for downstream handlers.
func (g *Gate) Require(ctx context.Context, tokenStr string, requiredRoles ...string) (context.Context, *domain.AccessClaims, error) {
	claims, err := g.Authenticate(tokenStr)
	if err != nil {
		return ctx, nil, err
	}
	if err := g.Authorize(claims, requiredRoles...); err != nil {
		return ctx, nil, err
	}
	return domain.ContextWithClaims(ctx, claims), claims, nil
}
