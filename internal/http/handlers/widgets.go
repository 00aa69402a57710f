package handlers

import (
	"encoding/json"
	"net/http"

	"rowfence/internal/services/inventory"
)

// CreateWidget handles catalog item creation using the inventory service
func CreateWidget(inventoryService *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req inventory.CreateWidgetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		created, err := inventoryService.CreateWidget(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toWidgetView(created))
	}
}

// GetWidget handles single widget reads
func GetWidget(inventoryService *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "id")
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		found, err := inventoryService.GetWidget(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toWidgetView(found))
	}
}

// ListWidgets handles catalog listing requests
func ListWidgets(inventoryService *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := parseListRequest(r)

		widgets, err := inventoryService.ListWidgets(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		req.Validate()
		writeJSON(w, http.StatusOK, listResponse{
			Data:   toWidgetViews(widgets),
			Limit:  req.Limit,
			Offset: req.Offset,
		})
	}
}

// PublishWidget makes a widget orderable
func PublishWidget(inventoryService *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "id")
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		published, err := inventoryService.PublishWidget(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toWidgetView(published))
	}
}

// RestockWidget applies a stock delta to a widget
func RestockWidget(inventoryService *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "id")
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		var req struct {
			Delta int64 `json:"delta"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		restocked, err := inventoryService.RestockWidget(r.Context(), id, req.Delta)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toWidgetView(restocked))
	}
}

// DeleteWidget removes a widget from the caller's catalog
func DeleteWidget(inventoryService *inventory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseIDParam(r, "id")
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		if err := inventoryService.DeleteWidget(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
