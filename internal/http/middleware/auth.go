package middlewarex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"rowfence/internal/domain/tenant"
	"rowfence/internal/observability"
)

// KeyResolver resolves a plaintext API key to its key record and owning
// tenant. Implemented by the directory service.
type KeyResolver interface {
	ResolveKey(ctx context.Context, apiKey string) (*tenant.APIKey, *tenant.Tenant, error)
}

// APIKeyAuth authenticates requests with "Authorization: Bearer <key>".
// Resolved identities are cached by key hash; cache may be nil to always
// hit the resolver.
func APIKeyAuth(resolver KeyResolver, cache *KeyCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				observability.AuthFailuresTotal.WithLabelValues("missing_bearer").Inc()
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			key := strings.TrimPrefix(auth, "Bearer ")
			h := sha256.Sum256([]byte(key))
			hx := hex.EncodeToString(h[:])

			if cache != nil {
				if id, err := cache.Get(r.Context(), hx); err == nil {
					observability.KeyCacheHitsTotal.Inc()
					next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
					return
				}
				observability.KeyCacheMissesTotal.Inc()
			}

			k, tn, err := resolver.ResolveKey(r.Context(), key)
			if err != nil {
				observability.AuthFailuresTotal.WithLabelValues("invalid_key").Inc()
				http.Error(w, "invalid key", http.StatusUnauthorized)
				return
			}
			if !tn.CanPerformOperations() {
				observability.AuthFailuresTotal.WithLabelValues("tenant_inactive").Inc()
				http.Error(w, "tenant inactive", http.StatusForbidden)
				return
			}

			id := Identity{
				TenantID:   tn.ID,
				BranchID:   k.BranchID,
				KeyID:      k.ID,
				TenantName: tn.Name,
			}
			if cache != nil {
				_ = cache.Put(r.Context(), hx, id)
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
