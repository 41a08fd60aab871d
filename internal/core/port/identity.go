package port

import "context"

// IdentityResolver maps an opaque access token to a user id. The resolution
// strategy is an external concern; 0 means the token did not resolve.
type IdentityResolver interface {
	UserIDFromToken(ctx context.Context, token string) (int64, error)
}
