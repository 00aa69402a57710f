package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rowfence/internal/domain/tenant"
)

// tenantRepository implements TenantRepository over the control-plane
// tables. Nothing here is tenant-scoped; these rows define the tenants.
type tenantRepository struct {
	db *pgxpool.Pool
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *pgxpool.Pool) *tenantRepository {
	return &tenantRepository{db: db}
}

// HashAPIKey returns the stable SHA256 hex stored for an API key.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// Save saves a tenant (insert or update)
func (r *tenantRepository) Save(ctx context.Context, t *tenant.Tenant) error {
	if t.ID == 0 {
		return r.db.QueryRow(ctx,
			`INSERT INTO tenants (name, status) VALUES ($1, $2) RETURNING id`,
			t.Name, string(t.Status)).Scan(&t.ID)
	}
	_, err := r.db.Exec(ctx,
		`UPDATE tenants SET name = $1, status = $2 WHERE id = $3`,
		t.Name, string(t.Status), t.ID)
	return err
}

// FindByID finds a tenant by ID
func (r *tenantRepository) FindByID(ctx context.Context, id int64) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := r.db.QueryRow(ctx,
		`SELECT id, name, status FROM tenants WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// SaveBranch saves a branch (insert or update)
func (r *tenantRepository) SaveBranch(ctx context.Context, b *tenant.Branch) error {
	if b.ID == 0 {
		return r.db.QueryRow(ctx,
			`INSERT INTO branches (tenant_id, name, is_active) VALUES ($1, $2, $3) RETURNING id`,
			b.TenantID, b.Name, b.IsActive).Scan(&b.ID)
	}
	_, err := r.db.Exec(ctx,
		`UPDATE branches SET name = $1, is_active = $2 WHERE id = $3 AND tenant_id = $4`,
		b.Name, b.IsActive, b.ID, b.TenantID)
	return err
}

// ListBranches lists a tenant's branches
func (r *tenantRepository) ListBranches(ctx context.Context, tenantID int64) ([]*tenant.Branch, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tenant_id, name, is_active FROM branches WHERE tenant_id = $1 ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []*tenant.Branch
	for rows.Next() {
		var b tenant.Branch
		if err := rows.Scan(&b.ID, &b.TenantID, &b.Name, &b.IsActive); err != nil {
			return nil, err
		}
		branches = append(branches, &b)
	}
	return branches, rows.Err()
}

// SaveAPIKey stores a hashed API key
func (r *tenantRepository) SaveAPIKey(ctx context.Context, k *tenant.APIKey) error {
	if k.ID == 0 {
		return r.db.QueryRow(ctx,
			`INSERT INTO tenant_api_keys (tenant_id, branch_id, name, key_hash, is_active)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			k.TenantID, k.BranchID, k.Name, k.KeyHash, k.IsActive).Scan(&k.ID)
	}
	_, err := r.db.Exec(ctx,
		`UPDATE tenant_api_keys SET name = $1, is_active = $2 WHERE id = $3`,
		k.Name, k.IsActive, k.ID)
	return err
}

// ResolveAPIKey loads an active key and its tenant by hash
func (r *tenantRepository) ResolveAPIKey(ctx context.Context, keyHash string) (*tenant.APIKey, *tenant.Tenant, error) {
	var k tenant.APIKey
	var t tenant.Tenant
	err := r.db.QueryRow(ctx, `
		SELECT k.id, k.tenant_id, k.branch_id, k.name, k.key_hash, k.is_active,
		       t.id, t.name, t.status
		  FROM tenant_api_keys k
		  JOIN tenants t ON t.id = k.tenant_id
		 WHERE k.key_hash = $1 AND k.is_active`, keyHash).
		Scan(&k.ID, &k.TenantID, &k.BranchID, &k.Name, &k.KeyHash, &k.IsActive,
			&t.ID, &t.Name, &t.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return &k, &t, nil
}

// DeactivateAPIKey disables a key by ID
func (r *tenantRepository) DeactivateAPIKey(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE tenant_api_keys SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
