package domain

import "context"

type contextKey string

// ClaimsContextKey carries the verified access claims of the calling
// identity through a request's context.
const ClaimsContextKey contextKey = "keyward-access-claims"

// ContextWithClaims returns a child context carrying the verified claims.
func ContextWithClaims(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// ClaimsFromContext extracts the verified claims placed by
// ContextWithClaims, or false when the context carries none.
func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*AccessClaims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}
