package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rowfence/internal/domain/order"
	"rowfence/internal/domain/tenant"
	"rowfence/internal/domain/widget"
)

// WidgetFilter narrows scoped widget listings.
type WidgetFilter struct {
	Status  widget.Status
	SKU     string
	InStock bool
	Limit   int
	Offset  int
}

// OrderFilter narrows scoped order listings.
type OrderFilter struct {
	Status   order.Status
	WidgetID int64
	Limit    int
	Offset   int
}

// WidgetRepository defines the contract for widget data access. All
// methods except ListAll read through the request's tenancy scope and
// fail with tenancy.ErrNoScope when none is attached.
type WidgetRepository interface {
	Save(ctx context.Context, w *widget.Widget) error
	FindByID(ctx context.Context, id int64) (*widget.Widget, error)
	FindBySKU(ctx context.Context, sku string) (*widget.Widget, error)
	List(ctx context.Context, f WidgetFilter) ([]*widget.Widget, error)
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context, limit, offset int) ([]*widget.Widget, error)
}

// OrderRepository defines the contract for order data access. Place is
// atomic: it decrements widget stock and inserts the order in one
// transaction. ListOverdue and ListAll bypass scoping for the expiry
// worker and admin surface.
type OrderRepository interface {
	Place(ctx context.Context, o *order.Order) error
	Save(ctx context.Context, o *order.Order) error
	FindByID(ctx context.Context, id int64) (*order.Order, error)
	FindByReference(ctx context.Context, ref uuid.UUID) (*order.Order, error)
	List(ctx context.Context, f OrderFilter) ([]*order.Order, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*order.Order, error)
	ListAll(ctx context.Context, limit, offset int) ([]*order.Order, error)
}

// TenantRepository defines the contract for tenant data access. These
// are control-plane tables, never tenant-scoped themselves.
type TenantRepository interface {
	Save(ctx context.Context, t *tenant.Tenant) error
	FindByID(ctx context.Context, id int64) (*tenant.Tenant, error)
	SaveBranch(ctx context.Context, b *tenant.Branch) error
	ListBranches(ctx context.Context, tenantID int64) ([]*tenant.Branch, error)
	SaveAPIKey(ctx context.Context, k *tenant.APIKey) error
	ResolveAPIKey(ctx context.Context, keyHash string) (*tenant.APIKey, *tenant.Tenant, error)
	DeactivateAPIKey(ctx context.Context, id int64) error
}
