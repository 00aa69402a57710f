package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"rowfence/internal/store/repositories"
)

// Repo bundles the postgres-backed repositories over one pool.
type Repo struct {
	db      *pgxpool.Pool
	widgets *widgetRepository
	orders  *orderRepository
	tenants *tenantRepository
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db:      db,
		widgets: NewWidgetRepository(db),
		orders:  NewOrderRepository(db),
		tenants: NewTenantRepository(db),
	}
}

func (r *Repo) Widgets() repositories.WidgetRepository { return r.widgets }
func (r *Repo) Orders() repositories.OrderRepository   { return r.orders }
func (r *Repo) Tenants() repositories.TenantRepository { return r.tenants }

// Expose the underlying pool for read-only helpers and migrations.
func (r *Repo) DB() *pgxpool.Pool { return r.db }
