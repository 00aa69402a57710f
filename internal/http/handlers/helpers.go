package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rowfence/internal/domain/order"
	"rowfence/internal/domain/widget"
	"rowfence/internal/services/directory"
	"rowfence/internal/services/inventory"
	"rowfence/internal/store/postgres"
	"rowfence/internal/tenancy"
)

// widgetView is the wire shape of a catalog item
type widgetView struct {
	ID         int64     `json:"id"`
	TenantID   int64     `json:"tenantId"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	PriceCents int64     `json:"priceCents"`
	Quantity   int64     `json:"quantity"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// orderView is the wire shape of an order. Orders are addressed by
// reference externally; the numeric ID stays internal.
type orderView struct {
	Reference  string    `json:"reference"`
	TenantID   int64     `json:"tenantId"`
	BranchID   int64     `json:"branchId"`
	WidgetID   int64     `json:"widgetId"`
	Quantity   int64     `json:"quantity"`
	TotalCents int64     `json:"totalCents"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expiresAt"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// listResponse represents paginated data
type listResponse struct {
	Data   any `json:"data"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func toWidgetView(w *widget.Widget) widgetView {
	return widgetView{
		ID:         w.ID,
		TenantID:   w.TenantID,
		SKU:        w.SKU,
		Name:       w.Name,
		Status:     string(w.Status),
		PriceCents: w.PriceCents,
		Quantity:   w.Quantity,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}

func toWidgetViews(ws []*widget.Widget) []widgetView {
	out := make([]widgetView, 0, len(ws))
	for _, w := range ws {
		out = append(out, toWidgetView(w))
	}
	return out
}

func toOrderView(o *order.Order) orderView {
	return orderView{
		Reference:  o.Reference.String(),
		TenantID:   o.TenantID,
		BranchID:   o.BranchID,
		WidgetID:   o.WidgetID,
		Quantity:   o.Quantity,
		TotalCents: o.TotalCents,
		Status:     string(o.Status),
		ExpiresAt:  o.ExpiresAt,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func toOrderViews(os []*order.Order) []orderView {
	out := make([]orderView, 0, len(os))
	for _, o := range os {
		out = append(out, toOrderView(o))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeServiceError maps service and store errors onto HTTP statuses.
// Rows invisible to the caller's tenants read as plain 404s, the same
// as rows that do not exist.
func writeServiceError(w http.ResponseWriter, err error) {
	var iv *inventory.ValidationError
	var dv *directory.ValidationError
	switch {
	case errors.As(err, &iv):
		http.Error(w, iv.Error(), http.StatusBadRequest)
	case errors.As(err, &dv):
		http.Error(w, dv.Error(), http.StatusBadRequest)
	case tenancy.IsNotFoundForTenant(err):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, postgres.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, postgres.ErrInsufficientStock):
		http.Error(w, "insufficient stock", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// parseListRequest parses HTTP query parameters into ListRequest
func parseListRequest(r *http.Request) inventory.ListRequest {
	req := inventory.ListRequest{
		Status: r.URL.Query().Get("status"),
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Limit = n
		}
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Offset = n
		}
	}

	return req
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func parseReferenceParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "reference"))
}
