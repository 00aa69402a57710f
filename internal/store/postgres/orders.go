package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rowfence/internal/domain/order"
	"rowfence/internal/domain/widget"
	"rowfence/internal/observability"
	"rowfence/internal/query"
	"rowfence/internal/store/repositories"
	"rowfence/internal/tenancy"
)

var orderColumns = []string{"id", "reference", "tenant_id", "branch_id", "widget_id", "quantity", "total_cents", "status", "expires_at", "created_at", "updated_at"}

// orderRepository implements OrderRepository. Orders are scoped by two
// discriminator columns, so every scoped statement carries both.
type orderRepository struct {
	db *pgxpool.Pool
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *pgxpool.Pool) *orderRepository {
	return &orderRepository{db: db}
}

// Place stamps, reserves stock and inserts the order in one transaction
func (r *orderRepository) Place(ctx context.Context, o *order.Order) error {
	sc, err := tenancy.RequireScope(ctx)
	if err != nil {
		return err
	}
	observability.ScopedQueriesTotal.WithLabelValues("orders").Inc()
	if err := sc.OnCreating(o); err != nil {
		return err
	}
	if o.TenantID == 0 {
		if _, err := sc.TenantIDFor(o, "tenant_id"); err != nil {
			return err
		}
		return fmt.Errorf("orders: tenant_id not set on detached record")
	}
	if o.BranchID == 0 {
		if _, err := sc.TenantIDFor(o, "branch_id"); err != nil {
			return err
		}
		return fmt.Errorf("orders: branch_id not set on detached record")
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the widget row within the same tenant before checking stock.
	sqlStr := `SELECT quantity FROM widgets WHERE id = $1`
	args := []any{o.WidgetID}
	sqlStr, args = appendScopePredicates(sqlStr, args, sc.ApplicableTenants(&widget.Widget{}))
	sqlStr += " FOR UPDATE"

	var available int64
	if err := tx.QueryRow(ctx, sqlStr, args...).Scan(&available); err != nil {
		return translateNotFound(err, "widgets", o.WidgetID, sc)
	}
	if available < o.Quantity {
		return fmt.Errorf("%w: widget %d has %d, order wants %d", ErrInsufficientStock, o.WidgetID, available, o.Quantity)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE widgets SET quantity = quantity - $1, updated_at = now()
		WHERE id = $2`,
		o.Quantity, o.WidgetID); err != nil {
		return err
	}

	if err := tx.QueryRow(ctx, `
		INSERT INTO orders (reference, tenant_id, branch_id, widget_id, quantity, total_cents, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		o.Reference, o.TenantID, o.BranchID, o.WidgetID, o.Quantity, o.TotalCents,
		string(o.Status), o.ExpiresAt, o.CreatedAt, o.UpdatedAt).Scan(&o.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Save updates an existing order within the request's tenants
func (r *orderRepository) Save(ctx context.Context, o *order.Order) error {
	sc, err := tenancy.RequireScope(ctx)
	if err != nil {
		return err
	}
	observability.ScopedQueriesTotal.WithLabelValues("orders").Inc()
	if o.ID == 0 {
		return fmt.Errorf("orders: Save requires a persisted order, use Place")
	}

	sqlStr := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`
	args := []any{string(o.Status), o.UpdatedAt, o.ID}
	sqlStr, args = appendScopePredicates(sqlStr, args, sc.ApplicableTenants(o))

	tag, err := r.db.Exec(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFoundForTenant("orders", o.ID, sc)
	}
	return nil
}

// FindByID finds an order visible to the request's tenants
func (r *orderRepository) FindByID(ctx context.Context, id int64) (*order.Order, error) {
	sc, err := tenancy.RequireScope(ctx)
	if err != nil {
		return nil, err
	}
	observability.ScopedQueriesTotal.WithLabelValues("orders").Inc()

	sql, args, err := query.Select("orders", orderColumns...).
		For(&order.Order{}).
		Use(sc).
		Where("id", "=", id).
		Build()
	if err != nil {
		return nil, err
	}

	o, err := scanOrder(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translateNotFound(err, "orders", id, sc)
	}
	return o, nil
}

// FindByReference finds an order by its public reference
func (r *orderRepository) FindByReference(ctx context.Context, ref uuid.UUID) (*order.Order, error) {
	sc, err := tenancy.RequireScope(ctx)
	if err != nil {
		return nil, err
	}
	observability.ScopedQueriesTotal.WithLabelValues("orders").Inc()

	sql, args, err := query.Select("orders", orderColumns...).
		For(&order.Order{}).
		Use(sc).
		Where("reference", "=", ref).
		Build()
	if err != nil {
		return nil, err
	}

	o, err := scanOrder(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translateNotFound(err, "orders", ref, sc)
	}
	return o, nil
}

// List returns the orders visible to the request's tenants
func (r *orderRepository) List(ctx context.Context, f repositories.OrderFilter) ([]*order.Order, error) {
	sc, err := tenancy.RequireScope(ctx)
	if err != nil {
		return nil, err
	}
	observability.ScopedQueriesTotal.WithLabelValues("orders").Inc()

	b := query.Select("orders", orderColumns...).
		For(&order.Order{}).
		Use(sc)
	if f.Status != "" {
		b.Where("status", "=", string(f.Status))
	}
	if f.WidgetID > 0 {
		b.Where("widget_id", "=", f.WidgetID)
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

	return scanOrders(rows)
}

// ListOverdue returns pending orders past their TTL across all tenants.
// The expiry worker re-enters each one under that order's own scope.
func (r *orderRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*order.Order, error) {
	observability.UnscopedQueriesTotal.WithLabelValues("orders").Inc()
	sql, args, err := query.Select("orders", orderColumns...).
		Unscoped().
		Where("status", "=", string(order.StatusPending)).
		Where("expires_at", "<", now).
		OrderBy("expires_at ASC").
		Limit(pageLimit(limit)).
		Build()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrders(rows)
}

// ListAll returns orders across every tenant, for the admin surface
func (r *orderRepository) ListAll(ctx context.Context, limit, offset int) ([]*order.Order, error) {
	observability.UnscopedQueriesTotal.WithLabelValues("orders").Inc()
	sql, args, err := query.Select("orders", orderColumns...).
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

	return scanOrders(rows)
}

// scanOrder scans a single row into order domain object
func scanOrder(row pgx.Row) (*order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.Reference, &o.TenantID, &o.BranchID, &o.WidgetID,
		&o.Quantity, &o.TotalCents, &o.Status, &o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// scanOrders scans multiple rows into order domain objects
func scanOrders(rows pgx.Rows) ([]*order.Order, error) {
	var orders []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
