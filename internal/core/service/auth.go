package service

import (
	"context"

	"github.com/wowmobi/callsignal/internal/core/domain"
	"github.com/wowmobi/callsignal/internal/core/port"
)

// IntentClientLog proceeds without a resolved identity so diagnostics can be
// captured even when auth fails.
const IntentClientLog = "client_log"

// AuthGate validates the shared application secret and resolves the caller's
// identity before any intent is dispatched.
type AuthGate struct {
	resolver port.IdentityResolver
	keys     map[string]struct{}
}

// NewAuthGate accepts every configured key equivalent; deployments carry
// legacy aliases of the same secret.
func NewAuthGate(resolver port.IdentityResolver, keys []string) *AuthGate {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return &AuthGate{resolver: resolver, keys: set}
}

// Authorize checks the server key, then the identity. Error precedence:
// missing key, invalid key, unresolved identity (unless intent is
// client_log, which may run anonymously; it then returns user id 0).
func (g *AuthGate) Authorize(ctx context.Context, serverKey, accessToken, intent string) (int64, error) {
	if serverKey == "" {
		return 0, domain.MissingKey()
	}
	if _, ok := g.keys[serverKey]; !ok {
		return 0, domain.InvalidKey()
	}

	userID, err := g.resolver.UserIDFromToken(ctx, accessToken)
	if err != nil {
		return 0, domain.Persistence("Failed to resolve identity.", err)
	}
	if userID <= 0 && intent != IntentClientLog {
		return 0, domain.Unauthenticated()
	}
	return userID, nil
}
