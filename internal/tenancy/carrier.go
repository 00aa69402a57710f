package tenancy

import (
	"context"
	"errors"
)

type scopeKey struct{}

// ErrNoScope means a scoped data path ran without a request Scope. The
// store refuses to guess rather than read cross-tenant.
var ErrNoScope = errors.New("tenancy: no scope in request context")

// WithScope returns a context carrying s. The HTTP layer attaches the
// request's Scope here so lower layers never need a global.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom extracts the request Scope, with presence.
func ScopeFrom(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok
}

// RequireScope extracts the request Scope or fails with ErrNoScope.
func RequireScope(ctx context.Context) (*Scope, error) {
	s, ok := ScopeFrom(ctx)
	if !ok {
		return nil, ErrNoScope
	}
	return s, nil
}
