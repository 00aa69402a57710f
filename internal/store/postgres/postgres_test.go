package postgres

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"rowfence/internal/domain/order"
	"rowfence/internal/domain/tenant"
	"rowfence/internal/domain/widget"
	"rowfence/internal/store/repositories"
	"rowfence/internal/tenancy"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestRepo starts a PostgreSQL container, migrates it and returns a
// Repo. Tests are skipped if no container runtime is available.
func setupTestRepo(t *testing.T) *Repo {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("rowfence_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	pool, err := Open(ctx, connStr)
	if err != nil {
		t.Fatalf("opening pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	return NewRepo(pool)
}

// seedTenant inserts a tenant with one branch and returns their IDs.
func seedTenant(t *testing.T, repo *Repo, name string) (int64, int64) {
	t.Helper()
	ctx := context.Background()

	tn, err := tenant.NewTenant(name)
	if err != nil {
		t.Fatalf("NewTenant: %v", err)
	}
	if err := repo.Tenants().Save(ctx, tn); err != nil {
		t.Fatalf("saving tenant: %v", err)
	}

	br, err := tenant.NewBranch(tn.ID, name+" main")
	if err != nil {
		t.Fatalf("NewBranch: %v", err)
	}
	if err := repo.Tenants().SaveBranch(ctx, br); err != nil {
		t.Fatalf("saving branch: %v", err)
	}
	return tn.ID, br.ID
}

// scopedCtx builds a request context carrying a scope for one tenant.
func scopedCtx(tenantID, branchID int64) context.Context {
	tc := tenancy.NewContext()
	tc.AddTenant("tenant_id", tenantID)
	if branchID > 0 {
		tc.AddTenant("branch_id", branchID)
	}
	return tenancy.WithScope(context.Background(), tenancy.NewScope(tc, "tenant_id"))
}

func mustWidget(t *testing.T, sku string, price, qty int64) *widget.Widget {
	t.Helper()
	w, err := widget.NewWidget(sku, "widget "+sku, price, qty)
	if err != nil {
		t.Fatalf("NewWidget: %v", err)
	}
	return w
}

func TestPostgres_InsertStampsTenant(t *testing.T) {
	repo := setupTestRepo(t)
	tenantA, _ := seedTenant(t, repo, "acme")
	ctx := scopedCtx(tenantA, 0)

	w := mustWidget(t, "SPROCKET-1", 1500, 10)
	if w.TenantID != 0 {
		t.Fatalf("fresh widget already owned: %d", w.TenantID)
	}
	if err := repo.Widgets().Save(ctx, w); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if w.TenantID != tenantA {
		t.Errorf("TenantID = %d, want %d (stamped at insert)", w.TenantID, tenantA)
	}

	got, err := repo.Widgets().FindByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.SKU != "SPROCKET-1" || got.TenantID != tenantA {
		t.Errorf("got %+v", got)
	}
}

func TestPostgres_TenantIsolation(t *testing.T) {
	repo := setupTestRepo(t)
	tenantA, _ := seedTenant(t, repo, "acme")
	tenantB, _ := seedTenant(t, repo, "globex")
	ctxA := scopedCtx(tenantA, 0)
	ctxB := scopedCtx(tenantB, 0)

	w := mustWidget(t, "GEAR-9", 900, 5)
	if err := repo.Widgets().Save(ctxA, w); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Tenant A sees its widget.
	if _, err := repo.Widgets().FindByID(ctxA, w.ID); err != nil {
		t.Fatalf("tenant A should see own widget: %v", err)
	}

	// Tenant B gets a tenant-aware not-found that still matches the
	// store sentinel.
	_, err := repo.Widgets().FindByID(ctxB, w.ID)
	if !tenancy.IsNotFoundForTenant(err) {
		t.Errorf("tenant B: err = %v, want NotFoundForTenant", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("tenant B: err does not wrap ErrNotFound: %v", err)
	}

	// No scope attached at all: the store refuses.
	if _, err := repo.Widgets().FindByID(context.Background(), w.ID); !errors.Is(err, tenancy.ErrNoScope) {
		t.Errorf("scopeless read: err = %v, want ErrNoScope", err)
	}

	// The admin surface sees across tenants.
	all, err := repo.Widgets().ListAll(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListAll = %d rows, want 1", len(all))
	}

	// Cross-tenant delete touches nothing.
	if err := repo.Widgets().Delete(ctxB, w.ID); !tenancy.IsNotFoundForTenant(err) {
		t.Errorf("cross-tenant delete: err = %v, want NotFoundForTenant", err)
	}
	if _, err := repo.Widgets().FindByID(ctxA, w.ID); err != nil {
		t.Errorf("widget vanished after cross-tenant delete attempt: %v", err)
	}
}

func TestPostgres_ScopedUpdate(t *testing.T) {
	repo := setupTestRepo(t)
	tenantA, _ := seedTenant(t, repo, "acme")
	tenantB, _ := seedTenant(t, repo, "globex")
	ctxA := scopedCtx(tenantA, 0)
	ctxB := scopedCtx(tenantB, 0)

	w := mustWidget(t, "BOLT-3", 250, 100)
	if err := repo.Widgets().Save(ctxA, w); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := w.Publish(); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := repo.Widgets().Save(ctxA, w); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.Widgets().FindByID(ctxA, w.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Status != widget.StatusLive {
		t.Errorf("Status = %q, want live", got.Status)
	}

	// The same update under tenant B's scope hits zero rows.
	w.Name = "hijacked"
	if err := repo.Widgets().Save(ctxB, w); !tenancy.IsNotFoundForTenant(err) {
		t.Errorf("cross-tenant update: err = %v, want NotFoundForTenant", err)
	}
}

func TestPostgres_PlaceOrder(t *testing.T) {
	repo := setupTestRepo(t)
	tenantA, branchA := seedTenant(t, repo, "acme")
	ctx := scopedCtx(tenantA, branchA)

	w := mustWidget(t, "COG-7", 1000, 3)
	if err := repo.Widgets().Save(ctx, w); err != nil {
		t.Fatalf("Save widget: %v", err)
	}

	o, err := order.NewOrder(w.ID, 2, w.PriceCents)
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	if err := repo.Orders().Place(ctx, o); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if o.TenantID != tenantA || o.BranchID != branchA {
		t.Errorf("order stamped %d/%d, want %d/%d", o.TenantID, o.BranchID, tenantA, branchA)
	}
	if o.TotalCents != 2000 {
		t.Errorf("TotalCents = %d, want 2000", o.TotalCents)
	}

	// Stock went down atomically.
	got, err := repo.Widgets().FindByID(ctx, w.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Quantity != 1 {
		t.Errorf("Quantity = %d, want 1", got.Quantity)
	}

	// A second oversized order is rejected and changes nothing.
	big, _ := order.NewOrder(w.ID, 5, w.PriceCents)
	if err := repo.Orders().Place(ctx, big); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("oversized order: err = %v, want ErrInsufficientStock", err)
	}
	got, _ = repo.Widgets().FindByID(ctx, w.ID)
	if got.Quantity != 1 {
		t.Errorf("Quantity after failed order = %d, want 1", got.Quantity)
	}

	// The order is visible by reference, but only inside the scope.
	byRef, err := repo.Orders().FindByReference(ctx, o.Reference)
	if err != nil {
		t.Fatalf("FindByReference: %v", err)
	}
	if byRef.ID != o.ID {
		t.Errorf("FindByReference = order %d, want %d", byRef.ID, o.ID)
	}
}

func TestPostgres_OrderBranchIsolation(t *testing.T) {
	repo := setupTestRepo(t)
	tenantA, branchA := seedTenant(t, repo, "acme")

	br2, err := tenant.NewBranch(tenantA, "acme annex")
	if err != nil {
		t.Fatalf("NewBranch: %v", err)
	}
	if err := repo.Tenants().SaveBranch(context.Background(), br2); err != nil {
		t.Fatalf("SaveBranch: %v", err)
	}

	ctx1 := scopedCtx(tenantA, branchA)
	ctx2 := scopedCtx(tenantA, br2.ID)

	w := mustWidget(t, "NUT-2", 100, 50)
	if err := repo.Widgets().Save(ctx1, w); err != nil {
		t.Fatalf("Save widget: %v", err)
	}

	o, _ := order.NewOrder(w.ID, 1, w.PriceCents)
	if err := repo.Orders().Place(ctx1, o); err != nil {
		t.Fatalf("Place: %v", err)
	}

	// Same tenant, different branch: the order is out of scope.
	if _, err := repo.Orders().FindByID(ctx2, o.ID); !tenancy.IsNotFoundForTenant(err) {
		t.Errorf("other branch: err = %v, want NotFoundForTenant", err)
	}

	// The widget carries only the tenant column, so both branches see it.
	if _, err := repo.Widgets().FindByID(ctx2, w.ID); err != nil {
		t.Errorf("widget should be visible across branches: %v", err)
	}
}

func TestPostgres_OverdueOrders(t *testing.T) {
	repo := setupTestRepo(t)
	tenantA, branchA := seedTenant(t, repo, "acme")
	ctx := scopedCtx(tenantA, branchA)

	w := mustWidget(t, "CAM-4", 500, 10)
	if err := repo.Widgets().Save(ctx, w); err != nil {
		t.Fatalf("Save widget: %v", err)
	}
	o, _ := order.NewOrder(w.ID, 1, w.PriceCents)
	if err := repo.Orders().Place(ctx, o); err != nil {
		t.Fatalf("Place: %v", err)
	}

	// Age the order past its TTL.
	if _, err := repo.DB().Exec(context.Background(),
		`UPDATE orders SET expires_at = now() - interval '1 hour' WHERE id = $1`, o.ID); err != nil {
		t.Fatalf("aging order: %v", err)
	}

	overdue, err := repo.Orders().ListOverdue(context.Background(), time.Now(), 10)
	if err != nil {
		t.Fatalf("ListOverdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != o.ID {
		t.Fatalf("ListOverdue = %+v, want the aged order", overdue)
	}

	// Expire it the way the worker does: under the order's own scope.
	stale := overdue[0]
	if err := stale.Expire(); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	workerCtx := scopedCtx(stale.TenantID, stale.BranchID)
	if err := repo.Orders().Save(workerCtx, stale); err != nil {
		t.Fatalf("saving expired order: %v", err)
	}

	got, err := repo.Orders().FindByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Status != order.StatusExpired {
		t.Errorf("Status = %q, want expired", got.Status)
	}
}

func TestPostgres_ListFilters(t *testing.T) {
	repo := setupTestRepo(t)
	tenantA, _ := seedTenant(t, repo, "acme")
	ctx := scopedCtx(tenantA, 0)

	live := mustWidget(t, "LIVE-1", 100, 5)
	if err := repo.Widgets().Save(ctx, live); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := live.Publish(); err != nil {
		t.Fatal(err)
	}
	if err := repo.Widgets().Save(ctx, live); err != nil {
		t.Fatalf("update: %v", err)
	}

	empty := mustWidget(t, "EMPTY-1", 100, 0)
	if err := repo.Widgets().Save(ctx, empty); err != nil {
		t.Fatalf("Save: %v", err)
	}

	byStatus, err := repo.Widgets().List(ctx, repositories.WidgetFilter{Status: widget.StatusLive})
	if err != nil {
		t.Fatalf("List by status: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].ID != live.ID {
		t.Errorf("List by status = %+v", byStatus)
	}

	inStock, err := repo.Widgets().List(ctx, repositories.WidgetFilter{InStock: true})
	if err != nil {
		t.Fatalf("List in stock: %v", err)
	}
	if len(inStock) != 1 || inStock[0].ID != live.ID {
		t.Errorf("List in stock = %+v", inStock)
	}
}

func TestPostgres_ResolveAPIKey(t *testing.T) {
	repo := setupTestRepo(t)
	tenantA, branchA := seedTenant(t, repo, "acme")
	ctx := context.Background()

	key, err := tenant.NewAPIKey(tenantA, &branchA, "ops", HashAPIKey("secret-key"))
	if err != nil {
		t.Fatalf("NewAPIKey: %v", err)
	}
	if err := repo.Tenants().SaveAPIKey(ctx, key); err != nil {
		t.Fatalf("SaveAPIKey: %v", err)
	}

	k, tn, err := repo.Tenants().ResolveAPIKey(ctx, HashAPIKey("secret-key"))
	if err != nil {
		t.Fatalf("ResolveAPIKey: %v", err)
	}
	if tn.ID != tenantA || k.BranchID == nil || *k.BranchID != branchA {
		t.Errorf("resolved %+v / %+v", k, tn)
	}

	if _, _, err := repo.Tenants().ResolveAPIKey(ctx, HashAPIKey("wrong")); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown key: err = %v, want ErrNotFound", err)
	}

	if err := repo.Tenants().DeactivateAPIKey(ctx, k.ID); err != nil {
		t.Fatalf("DeactivateAPIKey: %v", err)
	}
	if _, _, err := repo.Tenants().ResolveAPIKey(ctx, HashAPIKey("secret-key")); !errors.Is(err, ErrNotFound) {
		t.Errorf("deactivated key: err = %v, want ErrNotFound", err)
	}
}
