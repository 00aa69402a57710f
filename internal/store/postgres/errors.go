package postgres

import "errors"

// ErrNotFound is the store's generic no-rows signal. Scoped lookups wrap
// it in a *tenancy.NotFoundForTenantError before returning, so callers
// can match either the sentinel or the tenant-aware type.
var ErrNotFound = errors.New("store: not found")

// ErrInsufficientStock rejects an order whose quantity exceeds what the
// widget row holds at commit time.
var ErrInsufficientStock = errors.New("store: insufficient stock")
