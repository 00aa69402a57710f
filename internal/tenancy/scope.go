package tenancy

import (
	"errors"

	"rowfence/internal/query"
)

// ScopeName is the identifier a builder uses to exclude tenant filtering
// with WithoutScope.
const ScopeName = "tenancy"

// Scoped marks entity types that participate in tenant filtering.
// TenantColumns lists the discriminator columns in declaration order; a
// nil or empty slice means the scope's default column applies. Types
// that do not implement Scoped are never filtered or stamped.
type Scoped interface {
	query.Entity
	TenantColumns() []string
}

// Record is a mutable entity instance whose columns can be assigned
// before insert.
type Record interface {
	query.Entity
	SetField(column string, value any) error
}

// Detached lets a single record opt out of creation stamping.
type Detached interface {
	ScopeDetached() bool
}

// Detachable is embedded by record types that need the unscoped-creation
// escape hatch. The zero value is attached.
type Detachable struct {
	detached bool
}

// DetachScope opts this instance out of tenant stamping on create.
func (d *Detachable) DetachScope() { d.detached = true }

// AttachScope undoes DetachScope.
func (d *Detachable) AttachScope() { d.detached = false }

// ScopeDetached reports whether stamping is suppressed for this instance.
func (d *Detachable) ScopeDetached() bool { return d.detached }

// ColumnID pairs a tenant column with the id registered for it.
type ColumnID struct {
	Column string
	ID     any
}

// Scope translates the tenant facts held by a Context into query
// predicates and insert stamps. It implements query.Scope, so a builder
// carrying it filters reads automatically; store insert paths call
// OnCreating themselves.
//
// A Scope is stateless beyond its Context pointer and default column, so
// one instance per request alongside the Context is the norm.
type Scope struct {
	tc            *Context
	defaultColumn string
}

var _ query.Scope = (*Scope)(nil)

// NewScope builds a Scope over tc. defaultColumn is used for entities
// that declare no tenant columns of their own.
func NewScope(tc *Context, defaultColumn string) *Scope {
	return &Scope{tc: tc, defaultColumn: defaultColumn}
}

// Context returns the Context this scope reads from.
func (s *Scope) Context() *Context { return s.tc }

// Name implements query.Scope.
func (s *Scope) Name() string { return ScopeName }

// ApplicableTenants resolves which (column, id) pairs apply to e: the
// entity's declared tenant columns, restricted to those with an id
// registered in the Context. Unregistered columns are skipped, never an
// error. Order follows the entity's declaration order, so generated
// predicates are deterministic.
func (s *Scope) ApplicableTenants(e query.Entity) []ColumnID {
	sc, ok := e.(Scoped)
	if !ok {
		return nil
	}
	cols := sc.TenantColumns()
	if len(cols) == 0 {
		cols = []string{s.defaultColumn}
	}
	var out []ColumnID
	for _, col := range cols {
		if id, ok := s.tc.Get(col); ok {
			out = append(out, ColumnID{Column: col, ID: id})
		}
	}
	return out
}

// Apply appends one equality predicate per applicable tenant to b,
// qualifying each column with the entity's table name. It is a no-op
// while the Context is disabled.
func (s *Scope) Apply(b *query.Builder, e query.Entity) error {
	if !s.tc.Enabled() {
		return nil
	}
	for _, ct := range s.ApplicableTenants(e) {
		b.Where(e.Table()+"."+ct.Column, "=", ct.ID)
	}
	return nil
}

// OnCreating stamps the applicable tenant ids onto rec's discriminator
// columns before insert, unless the instance has detached itself. The
// write is unconditional; detachment, not the enabled flag, is the
// opt-out for creation.
func (s *Scope) OnCreating(rec Record) error {
	if d, ok := rec.(Detached); ok && d.ScopeDetached() {
		return nil
	}
	for _, ct := range s.ApplicableTenants(rec) {
		if err := rec.SetField(ct.Column, ct.ID); err != nil {
			return err
		}
	}
	return nil
}

// Remove strips the predicates Apply would have added from b, one per
// applicable tenant, together with each predicate's binding. Removal is
// positional: the binding index is tracked with a cursor that counts
// value-consuming predicates in original order, so null-check predicates
// never shift it. Only the first matching predicate per (column, id)
// pair is removed; user predicates that merely look similar but sit
// later are untouched.
func (s *Scope) Remove(b *query.Builder, e query.Entity) error {
	for _, ct := range s.ApplicableTenants(e) {
		if _, err := removeFirstMatch(b, e.Table()+"."+ct.Column, ct.ID); err != nil {
			return err
		}
	}
	return nil
}

// removeFirstMatch scans b's conditions left to right for an equality on
// column carrying id, advancing the binding cursor once per consuming
// condition examined. On the first match it deletes the condition and
// the binding at the cursor, then stops. No match leaves b unchanged.
func removeFirstMatch(b *query.Builder, column string, id any) (bool, error) {
	cursor := 0
	for i, c := range b.Conditions() {
		if !c.ConsumesBinding() {
			continue
		}
		if c.Column == column && c.Operator == "=" && c.Value == id {
			if err := b.RemoveCondition(i); err != nil {
				return false, err
			}
			if err := b.RemoveBinding(cursor); err != nil {
				return false, err
			}
			return true, nil
		}
		cursor++
	}
	return false, nil
}

// TenantIDFor looks up the id for column on behalf of e, naming the
// entity in the error when the column has no registration.
func (s *Scope) TenantIDFor(e query.Entity, column string) (any, error) {
	id, err := s.tc.TenantID(column)
	if err != nil {
		var unknown *TenantColumnUnknownError
		if errors.As(err, &unknown) {
			unknown.Entity = e.Table()
		}
		return nil, err
	}
	return id, nil
}
