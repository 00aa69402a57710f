package query

import (
	"reflect"
	"strings"
	"testing"
)

type gadget struct{}

func (gadget) Table() string { return "gadgets" }

// stampScope injects one fixed equality, the way cross-cutting filters
// register themselves on a builder.
type stampScope struct {
	column string
	value  any
	calls  int
}

func (s *stampScope) Name() string { return "stamp" }

func (s *stampScope) Apply(b *Builder, e Entity) error {
	s.calls++
	b.Where(e.Table()+"."+s.column, "=", s.value)
	return nil
}

func (s *stampScope) Remove(b *Builder, e Entity) error {
	target := e.Table() + "." + s.column
	cursor := 0
	for i, c := range b.Conditions() {
		if !c.ConsumesBinding() {
			continue
		}
		if c.Column == target && c.Operator == "=" && c.Value == s.value {
			b.RemoveCondition(i)
			b.RemoveBinding(cursor)
			return nil
		}
		cursor++
	}
	return nil
}

func TestSelectBuild(t *testing.T) {
	sql, args, err := Select("gadgets", "id", "name").
		Where("status", "=", "live").
		WhereNotNull("shipped_at").
		Where("weight", ">", 10).
		OrderBy("name ASC").
		Limit(20).
		Offset(40).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "SELECT id, name FROM gadgets WHERE status = $1 AND shipped_at IS NOT NULL AND weight > $2 ORDER BY name ASC LIMIT 20 OFFSET 40"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if !reflect.DeepEqual(args, []any{"live", 10}) {
		t.Errorf("args = %v, want [live 10]", args)
	}
}

func TestSelectStarAndDelete(t *testing.T) {
	sql, _, err := Select("gadgets").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := "SELECT * FROM gadgets"; sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}

	sql, args, err := Delete("gadgets").Where("id", "=", int64(9)).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := "DELETE FROM gadgets WHERE id = $1"; sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if len(args) != 1 || args[0] != int64(9) {
		t.Errorf("args = %v, want [9]", args)
	}
}

func TestNullConditionsConsumeNoBinding(t *testing.T) {
	b := Select("gadgets").
		Where("a", "=", 1).
		WhereNull("deleted_at").
		Where("b", "=", 2)
	if got := len(b.Bindings()); got != 2 {
		t.Fatalf("bindings = %d, want 2", got)
	}
	sql, args, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "SELECT * FROM gadgets WHERE a = $1 AND deleted_at IS NULL AND b = $2"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if !reflect.DeepEqual(args, []any{1, 2}) {
		t.Errorf("args = %v, want [1 2]", args)
	}
}

func TestPositionalEdits(t *testing.T) {
	b := Select("gadgets").Where("a", "=", 1).Where("b", "=", 2)
	if err := b.InsertCondition(0, Condition{Kind: KindBasic, Column: "c", Operator: "=", Value: 3}); err != nil {
		t.Fatalf("InsertCondition: %v", err)
	}
	if err := b.InsertBinding(0, 3); err != nil {
		t.Fatalf("InsertBinding: %v", err)
	}
	sql, args, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "SELECT * FROM gadgets WHERE c = $1 AND a = $2 AND b = $3"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if !reflect.DeepEqual(args, []any{3, 1, 2}) {
		t.Errorf("args = %v, want [3 1 2]", args)
	}

	if err := b.RemoveCondition(1); err != nil {
		t.Fatalf("RemoveCondition: %v", err)
	}
	if err := b.RemoveBinding(1); err != nil {
		t.Fatalf("RemoveBinding: %v", err)
	}
	got := b.Conditions()
	if len(got) != 2 || got[0].Column != "c" || got[1].Column != "b" {
		t.Errorf("conditions after removal = %+v", got)
	}
	if !reflect.DeepEqual(b.Bindings(), []any{3, 2}) {
		t.Errorf("bindings after removal = %v, want [3 2]", b.Bindings())
	}
}

func TestPositionalEditsOutOfRange(t *testing.T) {
	b := Select("gadgets")
	if err := b.InsertCondition(1, Condition{Kind: KindBasic, Column: "a", Operator: "=", Value: 1}); err == nil {
		t.Error("InsertCondition past end: want error")
	}
	if err := b.RemoveCondition(0); err == nil {
		t.Error("RemoveCondition on empty list: want error")
	}
	if err := b.InsertBinding(-1, 1); err == nil {
		t.Error("InsertBinding at -1: want error")
	}
	if err := b.RemoveBinding(0); err == nil {
		t.Error("RemoveBinding on empty list: want error")
	}
}

func TestScopesApplyOnce(t *testing.T) {
	sc := &stampScope{column: "region", value: "eu"}
	b := Select("").For(gadget{}).Use(sc)
	if err := b.ApplyScopes(); err != nil {
		t.Fatalf("ApplyScopes: %v", err)
	}
	if err := b.ApplyScopes(); err != nil {
		t.Fatalf("ApplyScopes again: %v", err)
	}
	if _, _, err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if sc.calls != 1 {
		t.Errorf("scope applied %d times, want 1", sc.calls)
	}
	if got := len(b.Conditions()); got != 1 {
		t.Errorf("conditions = %d, want 1", got)
	}
}

func TestScopedBuilderNeedsEntity(t *testing.T) {
	sc := &stampScope{column: "region", value: "eu"}
	_, _, err := Select("gadgets").Use(sc).Build()
	if err == nil || !strings.Contains(err.Error(), "no entity bound") {
		t.Fatalf("Build without For: err = %v", err)
	}
}

func TestWithoutScopeBeforeApply(t *testing.T) {
	sc := &stampScope{column: "region", value: "eu"}
	b := Select("gadgets").For(gadget{}).Use(sc)
	if err := b.WithoutScope("stamp"); err != nil {
		t.Fatalf("WithoutScope: %v", err)
	}
	sql, _, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := "SELECT * FROM gadgets"; sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if sc.calls != 0 {
		t.Errorf("scope ran %d times despite exclusion", sc.calls)
	}
}

func TestWithoutScopeAfterApply(t *testing.T) {
	sc := &stampScope{column: "region", value: "eu"}
	b := Select("gadgets").For(gadget{}).Use(sc).Where("status", "=", "live")
	if err := b.ApplyScopes(); err != nil {
		t.Fatalf("ApplyScopes: %v", err)
	}
	if got := len(b.Conditions()); got != 2 {
		t.Fatalf("conditions after apply = %d, want 2", got)
	}
	if err := b.WithoutScope("stamp"); err != nil {
		t.Fatalf("WithoutScope: %v", err)
	}
	sql, args, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "SELECT * FROM gadgets WHERE status = $1"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if !reflect.DeepEqual(args, []any{"live"}) {
		t.Errorf("args = %v, want [live]", args)
	}
}

func TestUnscopedSkipsAllScopes(t *testing.T) {
	sc := &stampScope{column: "region", value: "eu"}
	sql, _, err := Select("gadgets").For(gadget{}).Use(sc).Unscoped().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := "SELECT * FROM gadgets"; sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
	if sc.calls != 0 {
		t.Errorf("scope ran %d times on unscoped builder", sc.calls)
	}
}

func TestBuildDetectsMisalignment(t *testing.T) {
	b := Select("gadgets").Where("a", "=", 1)
	if err := b.RemoveBinding(0); err != nil {
		t.Fatalf("RemoveBinding: %v", err)
	}
	_, _, err := b.Build()
	if err == nil || !strings.Contains(err.Error(), "misaligned") {
		t.Fatalf("Build with dangling condition: err = %v", err)
	}
}
