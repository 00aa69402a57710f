package directory

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"rowfence/internal/domain/tenant"
	"rowfence/internal/store/repositories"
)

// OnboardingRequest represents tenant onboarding data
type OnboardingRequest struct {
	Name       string `json:"name"`
	BranchName string `json:"branchName,omitempty"`
	APIKeyName string `json:"apiKeyName,omitempty"`
}

// OnboardingResponse represents tenant onboarding result. APIKey is the
// only copy of the plaintext key; the store keeps a hash.
type OnboardingResponse struct {
	TenantID   int64  `json:"tenantId"`
	BranchID   int64  `json:"branchId"`
	APIKey     string `json:"apiKey"`
	APIKeyName string `json:"apiKeyName"`
}

// IssueKeyRequest mints an additional key for an existing tenant
type IssueKeyRequest struct {
	TenantID int64  `json:"tenantId"`
	BranchID *int64 `json:"branchId,omitempty"`
	KeyName  string `json:"keyName,omitempty"`
}

// IssueKeyResponse carries the minted plaintext key
type IssueKeyResponse struct {
	KeyID  int64  `json:"keyId"`
	APIKey string `json:"apiKey"`
}

// Service handles the tenant control plane: tenants, branches and keys
type Service struct {
	tenantRepo repositories.TenantRepository
}

// NewService creates a new directory service
func NewService(tenantRepo repositories.TenantRepository) *Service {
	return &Service{tenantRepo: tenantRepo}
}

// OnboardTenant creates a tenant with a first branch and API key
func (s *Service) OnboardTenant(ctx context.Context, req OnboardingRequest) (*OnboardingResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "tenant name is required"}
	}

	newTenant, err := tenant.NewTenant(req.Name)
	if err != nil {
		return nil, &ServiceError{Op: "create_tenant", Err: err}
	}
	if err := s.tenantRepo.Save(ctx, newTenant); err != nil {
		return nil, &ServiceError{Op: "save_tenant", Err: err}
	}

	branchName := strings.TrimSpace(req.BranchName)
	if branchName == "" {
		branchName = "main"
	}
	branch, err := tenant.NewBranch(newTenant.ID, branchName)
	if err != nil {
		return nil, &ServiceError{Op: "create_branch", Err: err}
	}
	if err := s.tenantRepo.SaveBranch(ctx, branch); err != nil {
		return nil, &ServiceError{Op: "save_branch", Err: err}
	}

	apiKey, keyName, err := s.createAPIKey(ctx, newTenant.ID, &branch.ID, req.APIKeyName)
	if err != nil {
		return nil, &ServiceError{Op: "create_api_key", Err: err}
	}

	return &OnboardingResponse{
		TenantID:   newTenant.ID,
		BranchID:   branch.ID,
		APIKey:     apiKey,
		APIKeyName: keyName,
	}, nil
}

// CreateBranch adds a branch to an existing tenant
func (s *Service) CreateBranch(ctx context.Context, tenantID int64, name string) (*tenant.Branch, error) {
	if _, err := s.tenantRepo.FindByID(ctx, tenantID); err != nil {
		return nil, &ServiceError{Op: "find_tenant", Err: err}
	}

	branch, err := tenant.NewBranch(tenantID, name)
	if err != nil {
		return nil, &ServiceError{Op: "create_branch", Err: err}
	}
	if err := s.tenantRepo.SaveBranch(ctx, branch); err != nil {
		return nil, &ServiceError{Op: "save_branch", Err: err}
	}
	return branch, nil
}

// ListBranches lists a tenant's branches
func (s *Service) ListBranches(ctx context.Context, tenantID int64) ([]*tenant.Branch, error) {
	branches, err := s.tenantRepo.ListBranches(ctx, tenantID)
	if err != nil {
		return nil, &ServiceError{Op: "list_branches", Err: err}
	}
	return branches, nil
}

// IssueKey mints an additional API key for an existing tenant
func (s *Service) IssueKey(ctx context.Context, req IssueKeyRequest) (*IssueKeyResponse, error) {
	tn, err := s.tenantRepo.FindByID(ctx, req.TenantID)
	if err != nil {
		return nil, &ServiceError{Op: "find_tenant", Err: err}
	}
	if !tn.CanPerformOperations() {
		return nil, &ValidationError{Field: "tenantId", Message: "tenant is not active"}
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		return nil, &ServiceError{Op: "generate_key", Err: err}
	}
	keyObj, err := tenant.NewAPIKey(req.TenantID, req.BranchID, req.KeyName, hashAPIKey(apiKey))
	if err != nil {
		return nil, &ServiceError{Op: "create_api_key", Err: err}
	}
	if err := s.tenantRepo.SaveAPIKey(ctx, keyObj); err != nil {
		return nil, &ServiceError{Op: "save_api_key", Err: err}
	}

	return &IssueKeyResponse{KeyID: keyObj.ID, APIKey: apiKey}, nil
}

// RevokeKey disables an API key
func (s *Service) RevokeKey(ctx context.Context, keyID int64) error {
	if err := s.tenantRepo.DeactivateAPIKey(ctx, keyID); err != nil {
		return &ServiceError{Op: "revoke_key", Err: err}
	}
	return nil
}

// ResolveKey maps a plaintext API key to its key row and tenant
func (s *Service) ResolveKey(ctx context.Context, apiKey string) (*tenant.APIKey, *tenant.Tenant, error) {
	return s.tenantRepo.ResolveAPIKey(ctx, hashAPIKey(apiKey))
}

// createAPIKey generates and stores a new API key for the tenant
func (s *Service) createAPIKey(ctx context.Context, tenantID int64, branchID *int64, keyName string) (string, string, error) {
	apiKey, err := generateAPIKey()
	if err != nil {
		return "", "", err
	}

	keyObj, err := tenant.NewAPIKey(tenantID, branchID, keyName, hashAPIKey(apiKey))
	if err != nil {
		return "", "", err
	}
	if err := s.tenantRepo.SaveAPIKey(ctx, keyObj); err != nil {
		return "", "", err
	}

	return apiKey, keyObj.Name, nil
}

// generateAPIKey mints a random key with a recognizable prefix
func generateAPIKey() (string, error) {
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}
	return "rk_" + hex.EncodeToString(keyBytes), nil
}

// hashAPIKey creates a SHA256 hash of the API key for secure storage
func hashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
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
	return fmt.Sprintf("directory service [%s]: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
