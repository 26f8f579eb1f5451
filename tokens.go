package authkit

import "context"

// TokenService maintains the denormalized session view held by the token
// microservice. It is consulted after local state changes; the token format
// itself is out of this package's hands.
//
// Calls happen after the local transaction commits. A failure therefore
// means the local mutation is already durable and only the external view is
// stale — callers receive an ErrUpstream-classified error and must not
// treat it as a rollback.
type TokenService interface {
	// Issue creates a session token for a freshly assembled login context.
	Issue(ctx context.Context, info *LoginContext) (string, error)
	// Update replaces the stored login view for a user.
	Update(ctx context.Context, userRef string, info *LoginContext) error
}

// NopTokenService ignores all calls. Used when no token service is wired,
// and in tests.
type NopTokenService struct{}

// Issue returns an empty token.
func (NopTokenService) Issue(ctx context.Context, info *LoginContext) (string, error) {
	return "", nil
}

// Update does nothing.
func (NopTokenService) Update(ctx context.Context, userRef string, info *LoginContext) error {
	return nil
}
