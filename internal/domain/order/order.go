package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"rowfence/internal/tenancy"
)

// Order is a purchase of a widget placed at a specific branch. It is
// scoped by two tenant dimensions, so every read carries both tenant_id
// and branch_id predicates.
type Order struct {
	tenancy.Detachable

	ID         int64
	Reference  uuid.UUID
	TenantID   int64
	BranchID   int64
	WidgetID   int64
	Quantity   int64
	TotalCents int64
	Status     Status
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Status represents order status
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// PendingTTL is how long an order may sit unpaid before the expiry
// worker cancels it.
const PendingTTL = 30 * time.Minute

// Table names the backing table.
func (*Order) Table() string { return "orders" }

// TenantColumns declares both scoping dimensions, in predicate order.
func (*Order) TenantColumns() []string { return []string{"tenant_id", "branch_id"} }

// SetField assigns a column by name for scope stamping.
func (o *Order) SetField(column string, value any) error {
	id, ok := value.(int64)
	if !ok {
		return fmt.Errorf("orders.%s: want int64, got %T", column, value)
	}
	switch column {
	case "tenant_id":
		o.TenantID = id
	case "branch_id":
		o.BranchID = id
	default:
		return fmt.Errorf("orders has no assignable column %q", column)
	}
	return nil
}

// NewOrder creates a pending order with validation. Tenant and branch
// IDs are left zero for the tenancy scope to stamp.
func NewOrder(widgetID, quantity, unitPriceCents int64) (*Order, error) {
	if widgetID <= 0 {
		return nil, fmt.Errorf("invalid widget ID: %d", widgetID)
	}

	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive: %d", quantity)
	}

	if unitPriceCents < 0 {
		return nil, fmt.Errorf("unit price cannot be negative: %d", unitPriceCents)
	}

	now := time.Now()
	return &Order{
		Reference:  uuid.New(),
		WidgetID:   widgetID,
		Quantity:   quantity,
		TotalCents: unitPriceCents * quantity,
		Status:     StatusPending,
		ExpiresAt:  now.Add(PendingTTL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// MarkPaid transitions a pending order to paid
func (o *Order) MarkPaid() error {
	if o.Status != StatusPending {
		return fmt.Errorf("order %s cannot be paid in status %s", o.Reference, o.Status)
	}

	o.Status = StatusPaid
	o.UpdatedAt = time.Now()
	return nil
}

// Fulfill transitions a paid order to fulfilled
func (o *Order) Fulfill() error {
	if o.Status != StatusPaid {
		return fmt.Errorf("order %s cannot be fulfilled in status %s", o.Reference, o.Status)
	}

	o.Status = StatusFulfilled
	o.UpdatedAt = time.Now()
	return nil
}

// Cancel voids an order that has not shipped
func (o *Order) Cancel() error {
	if o.Status == StatusFulfilled || o.Status == StatusExpired {
		return fmt.Errorf("order %s cannot be cancelled in status %s", o.Reference, o.Status)
	}

	o.Status = StatusCancelled
	o.UpdatedAt = time.Now()
	return nil
}

// Expire times out a pending order
func (o *Order) Expire() error {
	if o.Status != StatusPending {
		return fmt.Errorf("order %s cannot expire in status %s", o.Reference, o.Status)
	}

	o.Status = StatusExpired
	o.UpdatedAt = time.Now()
	return nil
}

// IsOverdue reports whether a pending order has outlived its TTL
func (o *Order) IsOverdue(now time.Time) bool {
	return o.Status == StatusPending && now.After(o.ExpiresAt)
}
