package tenancy

// Context is the per-request registry of active tenant facts: an ordered
// mapping from tenant column name to the identifier registered for it,
// plus an enabled flag. It owns no query knowledge.
//
// A Context is mutable and unsynchronized; construct one per request (or
// per logical unit of work) and confine it there. Reusing an instance
// across requests without Reset leaks one request's tenant identity into
// the next.
type Context struct {
	order   []string
	tenants map[string]any
	enabled bool
}

// NewContext returns an empty, enabled Context.
func NewContext() *Context {
	return &Context{tenants: make(map[string]any), enabled: true}
}

// AddTenant registers id as the active tenant for column and enables
// scoping. At most one id per column: a second add for the same column
// overwrites the value but keeps the column's original position.
func (c *Context) AddTenant(column string, id any) {
	c.enabled = true
	if _, ok := c.tenants[column]; !ok {
		c.order = append(c.order, column)
	}
	c.tenants[column] = id
}

// RemoveTenant deletes the registration for column, reporting whether one
// was present.
func (c *Context) RemoveTenant(column string) bool {
	if _, ok := c.tenants[column]; !ok {
		return false
	}
	delete(c.tenants, column)
	for i, col := range c.order {
		if col == column {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// HasTenant reports whether column currently has a tenant registered.
func (c *Context) HasTenant(column string) bool {
	_, ok := c.tenants[column]
	return ok
}

// Get returns the tenant id for column, with presence.
func (c *Context) Get(column string) (any, bool) {
	id, ok := c.tenants[column]
	return id, ok
}

// TenantID returns the tenant id for column, failing with a
// *TenantColumnUnknownError when the column is not registered. The
// enabled flag does not gate lookups; a disabled context still answers.
func (c *Context) TenantID(column string) (any, error) {
	id, ok := c.tenants[column]
	if !ok {
		return nil, &TenantColumnUnknownError{Column: column, Tenants: c.Snapshot()}
	}
	return id, nil
}

// Enable turns scope application back on. Registered tenants are kept
// across Disable/Enable, so no re-registration is needed.
func (c *Context) Enable() { c.enabled = true }

// Disable turns scope application off without clearing registered
// tenants. A temporary run-unscoped escape hatch, not a reset.
func (c *Context) Disable() { c.enabled = false }

// Enabled reports whether scope application is active.
func (c *Context) Enabled() bool { return c.enabled }

// Reset clears all registered tenants and re-enables. For integrators
// that must reuse one Context across requests; a fresh Context per
// request makes this unnecessary.
func (c *Context) Reset() {
	c.order = c.order[:0]
	c.tenants = make(map[string]any)
	c.enabled = true
}

// Columns returns the registered tenant columns in registration order.
func (c *Context) Columns() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Snapshot returns a copy of the current column-to-id map for diagnostics.
func (c *Context) Snapshot() map[string]any {
	out := make(map[string]any, len(c.tenants))
	for col, id := range c.tenants {
		out[col] = id
	}
	return out
}
