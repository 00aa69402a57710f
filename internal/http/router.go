package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"rowfence/internal/config"
	"rowfence/internal/http/handlers"
	middlewarex "rowfence/internal/http/middleware"
	"rowfence/internal/services/directory"
	"rowfence/internal/services/inventory"
	"rowfence/internal/store/repositories"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// RouterDependencies holds all dependencies for the HTTP router
type RouterDependencies struct {
	Config           config.Cfg
	DirectoryService *directory.Service
	InventoryService *inventory.Service
	WidgetRepo       repositories.WidgetRepository
	OrderRepo        repositories.OrderRepository
	Redis            *redis.Client
	KeyCache         *middlewarex.KeyCache
}

// NewRouter creates the HTTP router. Every /api/v1 route runs behind
// key auth and the tenant scope middleware, so handlers and services
// below never see a request without a scope in its context.
func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middlewarex.Metrics)

	// Health check (public)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"service": "rowfence",
		})
	})

	// Prometheus scrape endpoint (public)
	r.Handle("/metrics", promhttp.Handler())

	// Control plane (protected by admin token)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middlewarex.AdminAuth(deps.Config.Sec.AdminToken))

		r.Post("/onboard", handlers.OnboardTenant(deps.DirectoryService))
		r.Post("/tenants/{id}/branches", handlers.CreateBranch(deps.DirectoryService))
		r.Get("/tenants/{id}/branches", handlers.ListBranches(deps.DirectoryService))
		r.Post("/keys", handlers.IssueKey(deps.DirectoryService))
		r.Delete("/keys/{id}", handlers.RevokeKey(deps.DirectoryService))

		// Cross-tenant listings for operators
		r.Get("/widgets", handlers.ListAllWidgets(deps.WidgetRepo))
		r.Get("/orders", handlers.ListAllOrders(deps.OrderRepo))
	})

	// Tenant API (protected by API key auth, fenced per tenant)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarex.APIKeyAuth(deps.DirectoryService, deps.KeyCache))
		if deps.Redis != nil && deps.Config.Sec.RateLimitPerMin > 0 {
			r.Use(middlewarex.RateLimit(deps.Redis, int64(deps.Config.Sec.RateLimitPerMin), time.Minute))
		}
		r.Use(middlewarex.TenantScope(deps.Config.Tenancy.Column, deps.Config.Tenancy.BranchColumn))

		r.Route("/widgets", func(r chi.Router) {
			r.Post("/", handlers.CreateWidget(deps.InventoryService))
			r.Get("/", handlers.ListWidgets(deps.InventoryService))
			r.Get("/{id}", handlers.GetWidget(deps.InventoryService))
			r.Post("/{id}/publish", handlers.PublishWidget(deps.InventoryService))
			r.Post("/{id}/restock", handlers.RestockWidget(deps.InventoryService))
			r.Delete("/{id}", handlers.DeleteWidget(deps.InventoryService))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", handlers.PlaceOrder(deps.InventoryService))
			r.Get("/", handlers.ListOrders(deps.InventoryService))
			r.Get("/{reference}", handlers.GetOrder(deps.InventoryService))
			r.Post("/{reference}/pay", handlers.PayOrder(deps.InventoryService))
			r.Post("/{reference}/fulfill", handlers.FulfillOrder(deps.InventoryService))
			r.Post("/{reference}/cancel", handlers.CancelOrder(deps.InventoryService))
		})
	})

	return r
}
