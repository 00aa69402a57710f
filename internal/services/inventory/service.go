package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rowfence/internal/domain/order"
	"rowfence/internal/domain/widget"
	"rowfence/internal/store/repositories"
	"rowfence/internal/tenancy"
)

// Service handles the tenant-facing catalog and order operations. All
// scoped repository calls inherit the request scope from ctx.
type Service struct {
	widgetRepo   repositories.WidgetRepository
	orderRepo    repositories.OrderRepository
	tenantColumn string
}

// NewService creates a new inventory service. tenantColumn is the
// configured default discriminator, needed when the service builds its
// own scopes for background work.
func NewService(widgetRepo repositories.WidgetRepository, orderRepo repositories.OrderRepository, tenantColumn string) *Service {
	return &Service{
		widgetRepo:   widgetRepo,
		orderRepo:    orderRepo,
		tenantColumn: tenantColumn,
	}
}

// CreateWidget adds a catalog item; the scope stamps its owner
func (s *Service) CreateWidget(ctx context.Context, req CreateWidgetRequest) (*widget.Widget, error) {
	w, err := widget.NewWidget(req.SKU, req.Name, req.PriceCents, req.Quantity)
	if err != nil {
		return nil, &ValidationError{Field: "widget", Message: err.Error()}
	}
	if err := s.widgetRepo.Save(ctx, w); err != nil {
		return nil, &ServiceError{Op: "save_widget", Err: err}
	}
	return w, nil
}

// GetWidget fetches one widget within the request's tenants
func (s *Service) GetWidget(ctx context.Context, id int64) (*widget.Widget, error) {
	w, err := s.widgetRepo.FindByID(ctx, id)
	if err != nil {
		return nil, &ServiceError{Op: "find_widget", Err: err}
	}
	return w, nil
}

// GetWidgetBySKU fetches one widget by SKU within the request's tenants
func (s *Service) GetWidgetBySKU(ctx context.Context, sku string) (*widget.Widget, error) {
	w, err := s.widgetRepo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, &ServiceError{Op: "find_widget", Err: err}
	}
	return w, nil
}

// ListWidgets returns a page of the tenant's catalog
func (s *Service) ListWidgets(ctx context.Context, req ListRequest) ([]*widget.Widget, error) {
	req.Validate()
	widgets, err := s.widgetRepo.List(ctx, repositories.WidgetFilter{
		Status: widget.Status(req.Status),
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		return nil, &ServiceError{Op: "list_widgets", Err: err}
	}
	return widgets, nil
}

// PublishWidget makes a widget orderable
func (s *Service) PublishWidget(ctx context.Context, id int64) (*widget.Widget, error) {
	w, err := s.widgetRepo.FindByID(ctx, id)
	if err != nil {
		return nil, &ServiceError{Op: "find_widget", Err: err}
	}
	if err := w.Publish(); err != nil {
		return nil, &ValidationError{Field: "status", Message: err.Error()}
	}
	if err := s.widgetRepo.Save(ctx, w); err != nil {
		return nil, &ServiceError{Op: "save_widget", Err: err}
	}
	return w, nil
}

// RestockWidget applies a stock delta
func (s *Service) RestockWidget(ctx context.Context, id, delta int64) (*widget.Widget, error) {
	w, err := s.widgetRepo.FindByID(ctx, id)
	if err != nil {
		return nil, &ServiceError{Op: "find_widget", Err: err}
	}
	if err := w.AdjustQuantity(delta); err != nil {
		return nil, &ValidationError{Field: "quantity", Message: err.Error()}
	}
	if err := s.widgetRepo.Save(ctx, w); err != nil {
		return nil, &ServiceError{Op: "save_widget", Err: err}
	}
	return w, nil
}

// DeleteWidget removes a widget within the request's tenants
func (s *Service) DeleteWidget(ctx context.Context, id int64) error {
	if err := s.widgetRepo.Delete(ctx, id); err != nil {
		return &ServiceError{Op: "delete_widget", Err: err}
	}
	return nil
}

// PlaceOrder reserves stock and records a pending order
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*order.Order, error) {
	if req.Quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Message: "must be positive"}
	}

	var w *widget.Widget
	var err error
	switch {
	case req.WidgetID > 0:
		w, err = s.widgetRepo.FindByID(ctx, req.WidgetID)
	case req.SKU != "":
		w, err = s.widgetRepo.FindBySKU(ctx, req.SKU)
	default:
		return nil, &ValidationError{Field: "widgetId", Message: "widgetId or sku is required"}
	}
	if err != nil {
		return nil, &ServiceError{Op: "find_widget", Err: err}
	}
	if !w.IsLive() {
		return nil, &ValidationError{Field: "widgetId", Message: fmt.Sprintf("widget %d is not orderable", w.ID)}
	}

	o, err := order.NewOrder(w.ID, req.Quantity, w.PriceCents)
	if err != nil {
		return nil, &ValidationError{Field: "order", Message: err.Error()}
	}
	if err := s.orderRepo.Place(ctx, o); err != nil {
		return nil, &ServiceError{Op: "place_order", Err: err}
	}
	return o, nil
}

// GetOrder fetches an order by public reference
func (s *Service) GetOrder(ctx context.Context, ref uuid.UUID) (*order.Order, error) {
	o, err := s.orderRepo.FindByReference(ctx, ref)
	if err != nil {
		return nil, &ServiceError{Op: "find_order", Err: err}
	}
	return o, nil
}

// ListOrders returns a page of the tenant's orders
func (s *Service) ListOrders(ctx context.Context, req ListRequest) ([]*order.Order, error) {
	req.Validate()
	orders, err := s.orderRepo.List(ctx, repositories.OrderFilter{
		Status: order.Status(req.Status),
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		return nil, &ServiceError{Op: "list_orders", Err: err}
	}
	return orders, nil
}

// PayOrder transitions an order to paid
func (s *Service) PayOrder(ctx context.Context, ref uuid.UUID) (*order.Order, error) {
	return s.transition(ctx, ref, "pay_order", (*order.Order).MarkPaid)
}

// FulfillOrder transitions a paid order to fulfilled
func (s *Service) FulfillOrder(ctx context.Context, ref uuid.UUID) (*order.Order, error) {
	return s.transition(ctx, ref, "fulfill_order", (*order.Order).Fulfill)
}

// CancelOrder voids an order and returns its stock
func (s *Service) CancelOrder(ctx context.Context, ref uuid.UUID) (*order.Order, error) {
	o, err := s.transition(ctx, ref, "cancel_order", (*order.Order).Cancel)
	if err != nil {
		return nil, err
	}
	if err := s.restock(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// transition loads by reference, applies the state change and saves
func (s *Service) transition(ctx context.Context, ref uuid.UUID, op string, fn func(*order.Order) error) (*order.Order, error) {
	o, err := s.orderRepo.FindByReference(ctx, ref)
	if err != nil {
		return nil, &ServiceError{Op: op, Err: err}
	}
	if err := fn(o); err != nil {
		return nil, &ValidationError{Field: "status", Message: err.Error()}
	}
	if err := s.orderRepo.Save(ctx, o); err != nil {
		return nil, &ServiceError{Op: op, Err: err}
	}
	return o, nil
}

// restock returns a voided order's quantity to its widget
func (s *Service) restock(ctx context.Context, o *order.Order) error {
	w, err := s.widgetRepo.FindByID(ctx, o.WidgetID)
	if err != nil {
		return &ServiceError{Op: "restock", Err: err}
	}
	if err := w.AdjustQuantity(o.Quantity); err != nil {
		return &ServiceError{Op: "restock", Err: err}
	}
	if err := s.widgetRepo.Save(ctx, w); err != nil {
		return &ServiceError{Op: "restock", Err: err}
	}
	return nil
}

// ExpireOverdue cancels pending orders past their TTL and returns the
// stock. The overdue sweep is unscoped; each order is then expired
// under a scope built for that order's own tenants, so the scoped
// update and restock paths stay fenced.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time, limit int) (int, error) {
	overdue, err := s.orderRepo.ListOverdue(ctx, now, limit)
	if err != nil {
		return 0, &ServiceError{Op: "list_overdue", Err: err}
	}

	expired := 0
	for _, o := range overdue {
		tc := tenancy.NewContext()
		tc.AddTenant("tenant_id", o.TenantID)
		tc.AddTenant("branch_id", o.BranchID)
		octx := tenancy.WithScope(ctx, tenancy.NewScope(tc, s.tenantColumn))

		if err := o.Expire(); err != nil {
			continue
		}
		if err := s.orderRepo.Save(octx, o); err != nil {
			return expired, &ServiceError{Op: "expire_order", Err: err}
		}
		if err := s.restock(octx, o); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [%s]: %s", e.Field, e.Message)
}

// ServiceError represents a service operation error
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("inventory service [%s]: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
