package tenant

import (
	"fmt"
	"strings"
)

// Tenant represents a business tenant in the system
type Tenant struct {
	ID     int64
	Name   string
	Status Status
}

// Status represents tenant status
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusClosed    Status = "closed"
)

// Branch is a physical or logical subdivision of a tenant. Rows scoped
// by both tenant and branch carry its ID in their branch_id column.
type Branch struct {
	ID       int64
	TenantID int64
	Name     string
	IsActive bool
}

// APIKey represents a tenant API key. BranchID is nil for keys that may
// act across all of the tenant's branches.
type APIKey struct {
	ID       int64
	TenantID int64
	BranchID *int64
	Name     string
	KeyHash  string
	IsActive bool
}

// NewTenant creates a new tenant with validation
func NewTenant(name string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}

	if len(name) < 2 || len(name) > 100 {
		return nil, fmt.Errorf("tenant name must be between 2 and 100 characters")
	}

	return &Tenant{
		Name:   name,
		Status: StatusActive,
	}, nil
}

// NewBranch creates a branch under a tenant with validation
func NewBranch(tenantID int64, name string) (*Branch, error) {
	if tenantID <= 0 {
		return nil, fmt.Errorf("invalid tenant ID: %d", tenantID)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("branch name is required")
	}

	return &Branch{
		TenantID: tenantID,
		Name:     name,
		IsActive: true,
	}, nil
}

// NewAPIKey creates a new API key with validation
func NewAPIKey(tenantID int64, branchID *int64, name, keyHash string) (*APIKey, error) {
	if tenantID <= 0 {
		return nil, fmt.Errorf("invalid tenant ID: %d", tenantID)
	}

	if branchID != nil && *branchID <= 0 {
		return nil, fmt.Errorf("invalid branch ID: %d", *branchID)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "default"
	}

	if keyHash == "" {
		return nil, fmt.Errorf("key hash is required")
	}

	return &APIKey{
		TenantID: tenantID,
		BranchID: branchID,
		Name:     name,
		KeyHash:  keyHash,
		IsActive: true,
	}, nil
}

// IsActive checks if tenant is active
func (t *Tenant) IsActive() bool {
	return t.Status == StatusActive
}

// Suspend suspends the tenant
func (t *Tenant) Suspend() error {
	if t.Status == StatusClosed {
		return fmt.Errorf("cannot suspend closed tenant")
	}

	t.Status = StatusSuspended
	return nil
}

// Activate activates the tenant
func (t *Tenant) Activate() error {
	if t.Status == StatusClosed {
		return fmt.Errorf("cannot activate closed tenant")
	}

	t.Status = StatusActive
	return nil
}

// Close permanently closes the tenant
func (t *Tenant) Close() error {
	t.Status = StatusClosed
	return nil
}

// CanPerformOperations checks if tenant can perform operations
func (t *Tenant) CanPerformOperations() bool {
	return t.Status == StatusActive
}

// IsValidForTenant checks if API key belongs to the tenant and is usable
func (a *APIKey) IsValidForTenant(tenantID int64) bool {
	return a.TenantID == tenantID && a.IsActive
}

// Deactivate deactivates the API key
func (a *APIKey) Deactivate() {
	a.IsActive = false
}

// Activate activates the API key
func (a *APIKey) Activate() {
	a.IsActive = true
}
