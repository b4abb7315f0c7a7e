package federation

import (
	"strings"

	"github.com/keyward-io/keyward/domain"
)

// ProfileProvider normalizes a provider's userinfo payload into the single
// profile shape the session manager accepts. The OAuth redirect, consent and
// code-exchange legs live outside this module; callers hand over the raw
// userinfo document the provider returned.
type ProfileProvider interface {
	// Name returns the provider this parser understands.
	Name() domain.AuthProvider

	// ParseProfile normalizes the provider's userinfo payload.
	ParseProfile(payload []byte) (*domain.ExternalProfile, error)
}

// Registry resolves a provider name to its profile parser.
type Registry struct {
	providers map[domain.AuthProvider]ProfileProvider
}

// NewRegistry builds a registry over the given parsers.
func NewRegistry(providers ...ProfileProvider) *Registry {
	m := make(map[domain.AuthProvider]ProfileProvider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// DefaultRegistry returns a registry with every built-in provider.
func DefaultRegistry() *Registry {
	return NewRegistry(NewGoogleProvider(), NewGitHubProvider())
}

// Lookup returns the parser for the named provider.
func (r *Registry) Lookup(name domain.AuthProvider) (ProfileProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// parseName splits a display name into first and last parts.
func parseName(fullName string) (string, string) {
	if fullName == "" {
		return "", ""
	}
	parts := strings.SplitN(fullName, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
