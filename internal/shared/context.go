package shared

import "context"

// Roles recognised across the API surface.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// Identity describes the authenticated caller as yielded by the auth verifier.
type Identity struct {
	ID    int64
	Email string
	Role  string
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

type contextKey string

const identityKey contextKey = "expenseflow.identity"

// ContextWithIdentity stores the caller identity on the context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the caller identity, nil when unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey).(*Identity); ok {
		return id
	}
	return nil
}
