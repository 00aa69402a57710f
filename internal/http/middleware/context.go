package middlewarex

import "context"

type ctxKey string

const (
	ctxIdentity ctxKey = "identity"
)

// Identity describes the caller authenticated for the current request.
// BranchID is nil when the API key is not pinned to a branch.
type Identity struct {
	TenantID   int64  `json:"tenantId"`
	BranchID   *int64 `json:"branchId,omitempty"`
	KeyID      int64  `json:"keyId"`
	TenantName string `json:"tenantName"`
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxIdentity).(Identity)
	return v, ok
}
