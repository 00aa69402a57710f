package widget

import (
	"fmt"
	"strings"
	"time"

	"rowfence/internal/tenancy"
)

// Widget is a catalog item owned by a single tenant. It declares no
// tenant columns of its own, so the scope's default column applies.
type Widget struct {
	tenancy.Detachable

	ID         int64
	TenantID   int64
	SKU        string
	Name       string
	Status     Status
	PriceCents int64
	Quantity   int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Status represents widget lifecycle status
type Status string

const (
	StatusDraft   Status = "draft"
	StatusLive    Status = "live"
	StatusRetired Status = "retired"
)

// Table names the backing table.
func (*Widget) Table() string { return "widgets" }

// TenantColumns returns nil: widgets use the default tenant column.
func (*Widget) TenantColumns() []string { return nil }

// SetField assigns a column by name. The tenancy scope uses it to stamp
// discriminator values before insert.
func (w *Widget) SetField(column string, value any) error {
	switch column {
	case "tenant_id":
		id, ok := value.(int64)
		if !ok {
			return fmt.Errorf("widgets.tenant_id: want int64, got %T", value)
		}
		w.TenantID = id
	default:
		return fmt.Errorf("widgets has no assignable column %q", column)
	}
	return nil
}

// NewWidget creates a draft widget with validation. TenantID is left
// zero; the tenancy scope stamps it at insert time.
func NewWidget(sku, name string, priceCents, quantity int64) (*Widget, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return nil, fmt.Errorf("widget SKU is required")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("widget name is required")
	}

	if priceCents < 0 {
		return nil, fmt.Errorf("price cannot be negative: %d", priceCents)
	}

	if quantity < 0 {
		return nil, fmt.Errorf("quantity cannot be negative: %d", quantity)
	}

	now := time.Now()
	return &Widget{
		SKU:        sku,
		Name:       name,
		Status:     StatusDraft,
		PriceCents: priceCents,
		Quantity:   quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Publish moves a draft widget live
func (w *Widget) Publish() error {
	if w.Status == StatusRetired {
		return fmt.Errorf("cannot publish retired widget %d", w.ID)
	}

	w.Status = StatusLive
	w.UpdatedAt = time.Now()
	return nil
}

// Retire permanently retires the widget
func (w *Widget) Retire() {
	w.Status = StatusRetired
	w.UpdatedAt = time.Now()
}

// IsLive checks if the widget can be ordered
func (w *Widget) IsLive() bool {
	return w.Status == StatusLive
}

// AdjustQuantity applies a stock delta, rejecting drops below zero
func (w *Widget) AdjustQuantity(delta int64) error {
	next := w.Quantity + delta
	if next < 0 {
		return fmt.Errorf("widget %d stock cannot go below zero (have %d, delta %d)", w.ID, w.Quantity, delta)
	}

	w.Quantity = next
	w.UpdatedAt = time.Now()
	return nil
}
