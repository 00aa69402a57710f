package tenancy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// TenantColumnUnknownError reports a tenant id lookup for a column that
// has no registration in the Context. Entity names the type that needed
// the id when the lookup happened on its behalf; it is empty for direct
// Context lookups.
type TenantColumnUnknownError struct {
	Entity  string
	Column  string
	Tenants map[string]any
}

func (e *TenantColumnUnknownError) Error() string {
	var b strings.Builder
	b.WriteString("tenancy: column ")
	fmt.Fprintf(&b, "%q", e.Column)
	b.WriteString(" has no tenant registered")
	if e.Entity != "" {
		b.WriteString(" for ")
		b.WriteString(e.Entity)
	}
	b.WriteString(" (active: ")
	b.WriteString(formatTenants(e.Tenants))
	b.WriteString(")")
	return b.String()
}

// NotFoundForTenantError reports a lookup that found no row once tenant
// predicates were applied. It wraps the store's plain not-found error so
// errors.Is checks against that sentinel keep working.
type NotFoundForTenantError struct {
	Entity  string
	Key     any
	Tenants map[string]any
	Err     error
}

func (e *NotFoundForTenantError) Error() string {
	return fmt.Sprintf("tenancy: %s %v not found for tenants (active: %s)",
		e.Entity, e.Key, formatTenants(e.Tenants))
}

func (e *NotFoundForTenantError) Unwrap() error { return e.Err }

// IsTenantColumnUnknown reports whether err is, or wraps, a
// *TenantColumnUnknownError.
func IsTenantColumnUnknown(err error) bool {
	var e *TenantColumnUnknownError
	return errors.As(err, &e)
}

// IsNotFoundForTenant reports whether err is, or wraps, a
// *NotFoundForTenantError.
func IsNotFoundForTenant(err error) bool {
	var e *NotFoundForTenantError
	return errors.As(err, &e)
}

// formatTenants renders a column-to-id map in sorted column order so
// error text is stable.
func formatTenants(tenants map[string]any) string {
	if len(tenants) == 0 {
		return "none"
	}
	cols := make([]string, 0, len(tenants))
	for col := range tenants {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	var b strings.Builder
	for i, col := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", col, tenants[col])
	}
	return b.String()
}
