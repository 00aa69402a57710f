package middlewarex

import (
	"net/http"
	"strconv"

	"rowfence/internal/tenancy"
)

// TenantScope builds a request-scoped tenant registry from the
// authenticated identity and attaches the resulting scope to the request
// context. The branch column is registered from the key's pinned branch,
// or from the X-Branch-ID header for tenant-wide keys narrowing to one
// branch. With neither, entities declaring the branch column are only
// filtered by tenant, so tenant-wide keys see every branch.
func TenantScope(tenantColumn, branchColumn string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				http.Error(w, "tenant not found", http.StatusUnauthorized)
				return
			}

			tc := tenancy.NewContext()
			tc.AddTenant(tenantColumn, id.TenantID)
			switch {
			case id.BranchID != nil:
				tc.AddTenant(branchColumn, *id.BranchID)
			case r.Header.Get("X-Branch-ID") != "":
				bid, err := strconv.ParseInt(r.Header.Get("X-Branch-ID"), 10, 64)
				if err != nil {
					http.Error(w, "invalid X-Branch-ID", http.StatusBadRequest)
					return
				}
				tc.AddTenant(branchColumn, bid)
			}
			sc := tenancy.NewScope(tc, tenantColumn)

			next.ServeHTTP(w, r.WithContext(tenancy.WithScope(r.Context(), sc)))
		})
	}
}
