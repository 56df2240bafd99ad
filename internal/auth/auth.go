// Package auth resolves the tenant identity of a request. The core never
// runs without a tenant; everything downstream scopes storage access by it.
package auth

import (
	"context"
	"errors"
	"strings"
)

// ErrUnauthenticated signals a request with no resolvable tenant.
var ErrUnauthenticated = errors.New("unauthenticated")

// TenantProvider yields the stable tenant identifier for a request, or
// ErrUnauthenticated.
type TenantProvider interface {
	TenantFromRequest(ctx context.Context, authorization string) (string, error)
}

// TokenProvider maps static bearer tokens to tenant ids. Suitable for a
// single-operator deployment; swap in a real identity provider behind the
// same interface for anything bigger.
type TokenProvider struct {
	tokens map[string]string
}

// NewTokenProvider creates a TokenProvider from a token-to-tenant map.
func NewTokenProvider(tokens map[string]string) *TokenProvider {
	owned := make(map[string]string, len(tokens))
	for token, tenant := range tokens {
		owned[token] = tenant
	}
	return &TokenProvider{tokens: owned}
}

// TenantFromRequest resolves "Bearer <token>" to a tenant id.
func (p *TokenProvider) TenantFromRequest(_ context.Context, authorization string) (string, error) {
	token, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || token == "" {
		return "", ErrUnauthenticated
	}
	tenant, ok := p.tokens[token]
	if !ok {
		return "", ErrUnauthenticated
	}
	return tenant, nil
}

type contextKey struct{}

// WithTenant returns a context carrying the tenant id.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, contextKey{}, tenantID)
}

// TenantFromContext extracts the tenant id placed by WithTenant. The second
// return is false when the context carries no tenant.
func TenantFromContext(ctx context.Context) (string, bool) {
	tenant, ok := ctx.Value(contextKey{}).(string)
	if !ok || tenant == "" {
		return "", false
	}
	return tenant, true
}
