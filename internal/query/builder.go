package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Builder accumulates a SELECT (or DELETE) statement as two parallel,
// index-correlated lists: ordered WHERE conditions and ordered positional
// bindings. Null-check conditions carry no binding, so the lists are not
// the same length; the invariant is that the Nth binding belongs to the
// Nth value-consuming condition in left-to-right condition order. Every
// mutation here preserves that pairing; callers editing at arbitrary
// positions (InsertCondition/RemoveBinding and friends) own the
// responsibility of mirroring their edits on both lists.
//
// A Builder is confined to one goroutine for its lifetime.
type Builder struct {
	table      string
	columns    []string
	conditions []Condition
	bindings   []any
	orderBy    string
	limit      int
	hasLimit   bool
	offset     int
	hasOffset  bool
	deleteStmt bool

	entity   Entity
	scopes   []Scope
	excluded map[string]bool
	unscoped bool
	applied  bool
}

// Select starts a SELECT builder. With no columns, "*" is rendered.
func Select(table string, columns ...string) *Builder {
	return &Builder{table: table, columns: columns}
}

// Delete starts a DELETE builder; it shares the WHERE machinery with Select.
func Delete(table string) *Builder {
	return &Builder{table: table, deleteStmt: true}
}

// For binds the entity the registered scopes act on. If the builder was
// started without a table, the entity's table is used.
func (b *Builder) For(e Entity) *Builder {
	b.entity = e
	if b.table == "" {
		b.table = e.Table()
	}
	return b
}

// Use registers scopes to run once at build time, in registration order.
func (b *Builder) Use(scopes ...Scope) *Builder {
	b.scopes = append(b.scopes, scopes...)
	return b
}

// Unscoped bypasses every registered scope for this one query. Intended
// for cross-tenant administrative reads.
func (b *Builder) Unscoped() *Builder {
	b.unscoped = true
	return b
}

// WithoutScope excludes one registered scope by name. Before scopes have
// run it simply prevents the application; afterwards it invokes the
// scope's Remove so already-injected conditions are stripped.
func (b *Builder) WithoutScope(name string) error {
	if !b.applied {
		if b.excluded == nil {
			b.excluded = make(map[string]bool)
		}
		b.excluded[name] = true
		return nil
	}
	for _, s := range b.scopes {
		if s.Name() == name {
			return s.Remove(b, b.entity)
		}
	}
	return nil
}

// Where appends a value-consuming condition and its binding together.
func (b *Builder) Where(column, operator string, value any) *Builder {
	b.conditions = append(b.conditions, Condition{Kind: KindBasic, Column: column, Operator: operator, Value: value})
	b.bindings = append(b.bindings, value)
	return b
}

// WhereNull appends an IS NULL condition. No binding is consumed.
func (b *Builder) WhereNull(column string) *Builder {
	b.conditions = append(b.conditions, Condition{Kind: KindNull, Column: column})
	return b
}

// WhereNotNull appends an IS NOT NULL condition. No binding is consumed.
func (b *Builder) WhereNotNull(column string) *Builder {
	b.conditions = append(b.conditions, Condition{Kind: KindNotNull, Column: column})
	return b
}

// OrderBy sets the ORDER BY expression, verbatim.
func (b *Builder) OrderBy(expr string) *Builder {
	b.orderBy = expr
	return b
}

// Limit sets LIMIT; rendered as an integer literal, not a binding.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	b.hasLimit = true
	return b
}

// Offset sets OFFSET; rendered as an integer literal, not a binding.
func (b *Builder) Offset(n int) *Builder {
	b.offset = n
	b.hasOffset = true
	return b
}

// Table returns the target table name.
func (b *Builder) Table() string { return b.table }

// Conditions returns a copy of the ordered condition list.
func (b *Builder) Conditions() []Condition {
	out := make([]Condition, len(b.conditions))
	copy(out, b.conditions)
	return out
}

// Bindings returns a copy of the ordered positional binding list.
func (b *Builder) Bindings() []any {
	out := make([]any, len(b.bindings))
	copy(out, b.bindings)
	return out
}

// InsertCondition inserts c at position i in the condition list. If c
// consumes a binding the caller must insert the matching binding at the
// corresponding position via InsertBinding.
func (b *Builder) InsertCondition(i int, c Condition) error {
	if i < 0 || i > len(b.conditions) {
		return fmt.Errorf("query: condition index %d out of range [0,%d]", i, len(b.conditions))
	}
	b.conditions = append(b.conditions, Condition{})
	copy(b.conditions[i+1:], b.conditions[i:])
	b.conditions[i] = c
	return nil
}

// RemoveCondition removes the condition at position i, compacting indices.
// Bindings are untouched; a consuming condition's binding must be removed
// separately via RemoveBinding.
func (b *Builder) RemoveCondition(i int) error {
	if i < 0 || i >= len(b.conditions) {
		return fmt.Errorf("query: condition index %d out of range [0,%d)", i, len(b.conditions))
	}
	b.conditions = append(b.conditions[:i], b.conditions[i+1:]...)
	return nil
}

// InsertBinding inserts v at position i in the binding list.
func (b *Builder) InsertBinding(i int, v any) error {
	if i < 0 || i > len(b.bindings) {
		return fmt.Errorf("query: binding index %d out of range [0,%d]", i, len(b.bindings))
	}
	b.bindings = append(b.bindings, nil)
	copy(b.bindings[i+1:], b.bindings[i:])
	b.bindings[i] = v
	return nil
}

// RemoveBinding removes the binding at position i, compacting indices.
func (b *Builder) RemoveBinding(i int) error {
	if i < 0 || i >= len(b.bindings) {
		return fmt.Errorf("query: binding index %d out of range [0,%d)", i, len(b.bindings))
	}
	b.bindings = append(b.bindings[:i], b.bindings[i+1:]...)
	return nil
}

// ApplyScopes runs the registered scopes against the bound entity. It
// runs at most once per builder; Build calls it implicitly, and the guard
// keeps repeated manual calls from stacking duplicate conditions.
func (b *Builder) ApplyScopes() error {
	if b.applied || b.unscoped {
		b.applied = true
		return nil
	}
	b.applied = true
	if len(b.scopes) == 0 {
		return nil
	}
	if b.entity == nil {
		return fmt.Errorf("query: scoped builder for table %q has no entity bound; call For", b.table)
	}
	for _, s := range b.scopes {
		if b.excluded[s.Name()] {
			continue
		}
		if err := s.Apply(b, b.entity); err != nil {
			return err
		}
	}
	return nil
}

// Build applies pending scopes and renders the statement with $n
// placeholders, returning the args to execute it with. A mismatch between
// value-consuming conditions and bindings means the two lists have drifted
// apart; that is reported instead of rendering silently corrupt SQL.
func (b *Builder) Build() (string, []any, error) {
	if err := b.ApplyScopes(); err != nil {
		return "", nil, err
	}

	consuming := 0
	for _, c := range b.conditions {
		if c.ConsumesBinding() {
			consuming++
		}
	}
	if consuming != len(b.bindings) {
		return "", nil, fmt.Errorf("query: %d value conditions but %d bindings on %q; predicate/binding lists are misaligned",
			consuming, len(b.bindings), b.table)
	}

	var sb strings.Builder
	if b.deleteStmt {
		sb.WriteString("DELETE FROM ")
		sb.WriteString(b.table)
	} else {
		sb.WriteString("SELECT ")
		if len(b.columns) == 0 {
			sb.WriteString("*")
		} else {
			sb.WriteString(strings.Join(b.columns, ", "))
		}
		sb.WriteString(" FROM ")
		sb.WriteString(b.table)
	}

	if len(b.conditions) > 0 {
		sb.WriteString(" WHERE ")
		placeholder := 0
		for i, c := range b.conditions {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			switch c.Kind {
			case KindNull:
				sb.WriteString(c.Column)
				sb.WriteString(" IS NULL")
			case KindNotNull:
				sb.WriteString(c.Column)
				sb.WriteString(" IS NOT NULL")
			default:
				placeholder++
				sb.WriteString(c.Column)
				sb.WriteString(" ")
				sb.WriteString(c.Operator)
				sb.WriteString(" $")
				sb.WriteString(strconv.Itoa(placeholder))
			}
		}
	}

	if b.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.orderBy)
	}
	if b.hasLimit {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(b.limit))
	}
	if b.hasOffset {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(b.offset))
	}

	args := make([]any, len(b.bindings))
	copy(args, b.bindings)
	return sb.String(), args, nil
}
