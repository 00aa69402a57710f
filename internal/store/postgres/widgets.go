package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rowfence/internal/domain/widget"
	"rowfence/internal/observability"
	"rowfence/internal/query"
	"rowfence/internal/store/repositories"
	"rowfence/internal/tenancy"
)

var widgetColumns = []string{"id", "tenant_id", "sku", "name", "status", "price_cents", "quantity", "created_at", "updated_at"}

// widgetRepository implements WidgetRepository. Scoped reads go through
// the query builder so the request scope injects its predicates; scoped
// writes append the same predicates to hand-written statements.
type widgetRepository struct {
	db *pgxpool.Pool
}

// NewWidgetRepository creates a new widget repository
func NewWidgetRepository(db *pgxpool.Pool) *widgetRepository {
	return &widgetRepository{db: db}
}

// Save saves a widget (insert or update)
func (r *widgetRepository) Save(ctx context.Context, w *widget.Widget) error {
	sc, err := tenancy.RequireScope(ctx)
	if err != nil {
		return err
	}
	observability.ScopedQueriesTotal.WithLabelValues("widgets").Inc()
	if w.ID == 0 {
		return r.insert(ctx, sc, w)
	}
	return r.update(ctx, sc, w)
}

// FindByID finds a widget visible to the request's tenants
func (r *widgetRepository) FindByID(ctx context.Context, id int64) (*widget.Widget, error) {
	sc, err := tenancy.RequireScope(ctx)
	if err != nil {
		return nil, err
	}
	observability.ScopedQueriesTotal.WithLabelValues("widgets").Inc()

	sql, args, err := query.Select("widgets", widgetColumns...).
		For(&widget.Widget{}).
		Use(sc).
		Where("id", "=", id).
		Build()
	if err != nil {
		return nil, err
	}

	w, err := scanWidget(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translateNotFound(err, "widgets", id, sc)
	}
	return w, nil
}

// FindBySKU finds a widget by SKU within the request's tenants
func (r *widgetRepository) FindBySKU(ctx context.Context, sku string) (*widget.Widget, error) {
	sc, err := tenancy.RequireScope(ctx)
	if err != nil {
		return nil, err
	}
	observability.ScopedQueriesTotal.WithLabelValues("widgets").Inc()

	sql, args, err := query.Select("widgets", widgetColumns...).
		For(&widget.Widget{}).
		Use(sc).
		Where("sku", "=", sku).
		Build()
	if err != nil {
		return nil, err
	}

	w, err := scanWidget(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translateNotFound(err, "widgets", sku, sc)
	}
	return w, nil
}

// List returns the widgets visible to the request's tenants
func (r *widgetRepository) List(ctx context.Context, f repositories.WidgetFilter) ([]*widget.Widget, error) {
	sc, err := tenancy.RequireScope(ctx)
	if err != nil {
		return nil, err
	}
	observability.ScopedQueriesTotal.WithLabelValues("widgets").Inc()

	b := query.Select("widgets", widgetColumns...).
		For(&widget.Widget{}).
		Use(sc)
	if f.Status != "" {
		b.Where("status", "=", string(f.Status))
	}
	if f.SKU != "" {
		b.Where("sku", "=", f.SKU)
	}
	if f.InStock {
		b.Where("quantity", ">", int64(0))
	}
	b.OrderBy("id DESC").Limit(pageLimit(f.Limit)).Offset(f.Offset)

	sql, args, err := b.Build()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWidgets(rows)
}

// Delete removes a widget, but only within the request's tenants
func (r *widgetRepository) Delete(ctx context.Context, id int64) error {
	sc, err := tenancy.RequireScope(ctx)
	if err != nil {
		return err
	}
	observability.ScopedQueriesTotal.WithLabelValues("widgets").Inc()

	sql, args, err := query.Delete("widgets").
		For(&widget.Widget{}).
		Use(sc).
		Where("id", "=", id).
		Build()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFoundForTenant("widgets", id, sc)
	}
	return nil
}

// ListAll returns widgets across every tenant, for the admin surface
func (r *widgetRepository) ListAll(ctx context.Context, limit, offset int) ([]*widget.Widget, error) {
	observability.UnscopedQueriesTotal.WithLabelValues("widgets").Inc()
	sql, args, err := query.Select("widgets", widgetColumns...).
		Unscoped().
		OrderBy("id DESC").
		Limit(pageLimit(limit)).
		Offset(offset).
		Build()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWidgets(rows)
}

// insert creates the row after the scope has stamped the discriminator
func (r *widgetRepository) insert(ctx context.Context, sc *tenancy.Scope, w *widget.Widget) error {
	if err := sc.OnCreating(w); err != nil {
		return err
	}
	if w.TenantID == 0 {
		// Either the column has no registration, which names the real
		// problem, or the record is detached without an explicit owner.
		if _, err := sc.TenantIDFor(w, "tenant_id"); err != nil {
			return err
		}
		return fmt.Errorf("widgets: tenant_id not set on detached record")
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO widgets (tenant_id, sku, name, status, price_cents, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		w.TenantID, w.SKU, w.Name, string(w.Status), w.PriceCents, w.Quantity, w.CreatedAt, w.UpdatedAt).Scan(&w.ID)
}

// update modifies an existing row, guarded by the scope's predicates
func (r *widgetRepository) update(ctx context.Context, sc *tenancy.Scope, w *widget.Widget) error {
	sqlStr := `UPDATE widgets
		SET sku = $1, name = $2, status = $3, price_cents = $4, quantity = $5, updated_at = $6
		WHERE id = $7`
	args := []any{w.SKU, w.Name, string(w.Status), w.PriceCents, w.Quantity, w.UpdatedAt, w.ID}
	sqlStr, args = appendScopePredicates(sqlStr, args, sc.ApplicableTenants(w))

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFoundForTenant("widgets", w.ID, sc)
	}
	return nil
}

// appendScopePredicates extends a statement's WHERE tail with one
// equality per applicable tenant, continuing the placeholder numbering.
func appendScopePredicates(sqlStr string, args []any, tenants []tenancy.ColumnID) (string, []any) {
	argIdx := len(args)
	for _, ct := range tenants {
		argIdx++
		sqlStr += fmt.Sprintf(" AND %s = $%d", ct.Column, argIdx)
		args = append(args, ct.ID)
	}
	return sqlStr, args
}

// translateNotFound turns pgx's no-rows into the tenant-aware not-found
// error; anything else passes through.
func translateNotFound(err error, entity string, key any, sc *tenancy.Scope) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFoundForTenant(entity, key, sc)
	}
	return err
}

func notFoundForTenant(entity string, key any, sc *tenancy.Scope) error {
	return &tenancy.NotFoundForTenantError{
		Entity:  entity,
		Key:     key,
		Tenants: sc.Context().Snapshot(),
		Err:     ErrNotFound,
	}
}

func pageLimit(n int) int {
	if n <= 0 || n > 200 {
		return 50
	}
	return n
}

// scanWidget scans a single row into widget domain object
func scanWidget(row pgx.Row) (*widget.Widget, error) {
	var w widget.Widget
	err := row.Scan(
		&w.ID, &w.TenantID, &w.SKU, &w.Name, &w.Status,
		&w.PriceCents, &w.Quantity, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// scanWidgets scans multiple rows into widget domain objects
func scanWidgets(rows pgx.Rows) ([]*widget.Widget, error) {
	var widgets []*widget.Widget
	for rows.Next() {
		w, err := scanWidget(rows)
		if err != nil {
			return nil, err
		}
		widgets = append(widgets, w)
	}
	return widgets, rows.Err()
}
