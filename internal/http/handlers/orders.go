package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"rowfence/internal/domain/order"
	"rowfence/internal/services/inventory"
)

// PlaceOrder handles order placement using the inventory service
func PlaceOrder(inventoryService *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inventory.PlaceOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		placed, err := inventoryService.PlaceOrder(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toOrderView(placed))
	}
}

// GetOrder handles single order reads by public reference
func GetOrder(inventoryService *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := parseReferenceParam(r)
		if err != nil {
			http.Error(w, "invalid reference", http.StatusBadRequest)
			return
		}

		found, err := inventoryService.GetOrder(r.Context(), ref)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toOrderView(found))
	}
}

// ListOrders handles order listing requests
func ListOrders(inventoryService *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := parseListRequest(r)

		orders, err := inventoryService.ListOrders(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		req.Validate()
		writeJSON(w, http.StatusOK, listResponse{
			Data:   toOrderViews(orders),
			Limit:  req.Limit,
			Offset: req.Offset,
		})
	}
}

// PayOrder transitions an order to paid
func PayOrder(inventoryService *inventory.Service) http.HandlerFunc {
	return orderTransition(inventoryService.PayOrder)
}

// FulfillOrder transitions a paid order to fulfilled
func FulfillOrder(inventoryService *inventory.Service) http.HandlerFunc {
	return orderTransition(inventoryService.FulfillOrder)
}

// CancelOrder voids an order and returns its stock
func CancelOrder(inventoryService *inventory.Service) http.HandlerFunc {
	return orderTransition(inventoryService.CancelOrder)
}

// orderTransition wraps the reference-addressed state changes that share
// a request shape
func orderTransition(fn func(context.Context, uuid.UUID) (*order.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := parseReferenceParam(r)
		if err != nil {
			http.Error(w, "invalid reference", http.StatusBadRequest)
			return
		}

		o, err := fn(r.Context(), ref)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toOrderView(o))
	}
}
