package query

// Kind classifies a WHERE condition by the shape it renders to and,
// critically, by whether it occupies a slot in the builder's positional
// binding list.
type Kind int

const (
	// KindBasic is "column <operator> $n" and consumes exactly one binding.
	KindBasic Kind = iota
	// KindNull is "column IS NULL" and consumes no binding.
	KindNull
	// KindNotNull is "column IS NOT NULL" and consumes no binding.
	KindNotNull
)

// Condition is a single entry in a builder's ordered condition list.
// Value is only meaningful for KindBasic; null checks carry no value.
type Condition struct {
	Kind     Kind
	Column   string
	Operator string
	Value    any
}

// ConsumesBinding reports whether this condition occupies a positional
// slot in the binding list. The Nth consuming condition, in condition
// order, corresponds to the Nth binding.
func (c Condition) ConsumesBinding() bool { return c.Kind == KindBasic }

// Entity identifies a queryable table. Scoped entity types additionally
// declare tenancy participation; see internal/tenancy.
type Entity interface {
	Table() string
}

// Scope is a query-lifecycle hook a builder invokes for its bound entity:
// Apply when the query is built, Remove on an explicit removal request.
type Scope interface {
	Name() string
	Apply(b *Builder, e Entity) error
	Remove(b *Builder, e Entity) error
}
