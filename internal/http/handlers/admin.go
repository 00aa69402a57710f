package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"rowfence/internal/domain/tenant"
	"rowfence/internal/services/directory"
	"rowfence/internal/store/repositories"
)

type branchView struct {
	ID       int64  `json:"id"`
	TenantID int64  `json:"tenantId"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

func toBranchViews(bs []*tenant.Branch) []branchView {
	out := make([]branchView, 0, len(bs))
	for _, b := range bs {
		out = append(out, branchView{ID: b.ID, TenantID: b.TenantID, Name: b.Name, IsActive: b.IsActive})
	}
	return out
}

// OnboardTenant handles tenant onboarding using the directory service.
// The response carries the plaintext API key once; only its hash is
// stored.
func OnboardTenant(directoryService *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req directory.OnboardingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		response, err := directoryService.OnboardTenant(r.Context(), req)
		if err != nil {
			switch e := err.(type) {
			case *directory.ValidationError:
				http.Error(w, e.Error(), http.StatusBadRequest)
			case *directory.ServiceError:
				http.Error(w, "onboarding failed: "+e.Error(), http.StatusInternalServerError)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, response)
	}
}

// CreateBranch adds a branch to an existing tenant
func CreateBranch(directoryService *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := parseIDParam(r, "id")
		if err != nil {
			http.Error(w, "invalid tenant id", http.StatusBadRequest)
			return
		}

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		branch, err := directoryService.CreateBranch(r.Context(), tenantID, strings.TrimSpace(req.Name))
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, branchView{
			ID: branch.ID, TenantID: branch.TenantID, Name: branch.Name, IsActive: branch.IsActive,
		})
	}
}

// ListBranches lists a tenant's branches
func ListBranches(directoryService *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := parseIDParam(r, "id")
		if err != nil {
			http.Error(w, "invalid tenant id", http.StatusBadRequest)
			return
		}

		branches, err := directoryService.ListBranches(r.Context(), tenantID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBranchViews(branches))
	}
}

// IssueKey mints an additional API key for a tenant
func IssueKey(directoryService *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req directory.IssueKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}

		response, err := directoryService.IssueKey(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, response)
	}
}

// RevokeKey deactivates an API key. Cached identities age out within
// the cache TTL.
func RevokeKey(directoryService *directory.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyID, err := parseIDParam(r, "id")
		if err != nil {
			http.Error(w, "invalid key id", http.StatusBadRequest)
			return
		}

		if err := directoryService.RevokeKey(r.Context(), keyID); err != nil {
			writeServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ListAllWidgets lists widgets across every tenant for operators
func ListAllWidgets(widgetRepo repositories.WidgetRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := parseAdminPage(r)

		widgets, err := widgetRepo.ListAll(r.Context(), limit, offset)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, listResponse{Data: toWidgetViews(widgets), Limit: limit, Offset: offset})
	}
}

// ListAllOrders lists orders across every tenant for operators
func ListAllOrders(orderRepo repositories.OrderRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := parseAdminPage(r)

		orders, err := orderRepo.ListAll(r.Context(), limit, offset)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, listResponse{Data: toOrderViews(orders), Limit: limit, Offset: offset})
	}
}

func parseAdminPage(r *http.Request) (limit, offset int) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
