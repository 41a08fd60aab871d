package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wowmobi/callsignal/internal/core/domain"
)

type fakeResolver struct {
	tokens map[string]int64
	err    error
}

func (r *fakeResolver) UserIDFromToken(ctx context.Context, token string) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.tokens[token], nil
}

func newTestGate() *AuthGate {
	resolver := &fakeResolver{tokens: map[string]int64{"tok-1": 1}}
	return NewAuthGate(resolver, []string{"primary-key", "legacy-key"})
}

func TestAuthorizeHappyPath(t *testing.T) {
	gate := newTestGate()

	uid, err := gate.Authorize(context.Background(), "primary-key", "tok-1", "create")
	require.NoError(t, err)
	assert.Equal(t, int64(1), uid)

	// any configured alias of the secret is accepted
	uid, err = gate.Authorize(context.Background(), "legacy-key", "tok-1", "poll")
	require.NoError(t, err)
	assert.Equal(t, int64(1), uid)
}

func TestAuthorizePrecedence(t *testing.T) {
	gate := newTestGate()

	// missing key outranks everything, even a valid token
	_, err := gate.Authorize(context.Background(), "", "tok-1", "create")
	assert.Equal(t, domain.KindMissingKey, errKind(t, err))

	_, err = gate.Authorize(context.Background(), "wrong", "tok-1", "create")
	assert.Equal(t, domain.KindInvalidKey, errKind(t, err))

	_, err = gate.Authorize(context.Background(), "primary-key", "unknown-token", "create")
	assert.Equal(t, domain.KindUnauthenticated, errKind(t, err))

	_, err = gate.Authorize(context.Background(), "primary-key", "", "create")
	assert.Equal(t, domain.KindUnauthenticated, errKind(t, err))
}

func TestAuthorizeClientLogRunsAnonymously(t *testing.T) {
	gate := newTestGate()

	uid, err := gate.Authorize(context.Background(), "primary-key", "", IntentClientLog)
	require.NoError(t, err)
	assert.Zero(t, uid)

	// the key gate still applies
	_, err = gate.Authorize(context.Background(), "wrong", "", IntentClientLog)
	assert.Equal(t, domain.KindInvalidKey, errKind(t, err))
}

func TestAuthorizeResolverFailure(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("db gone")}
	gate := NewAuthGate(resolver, []string{"primary-key"})

	_, err := gate.Authorize(context.Background(), "primary-key", "tok-1", "create")
	assert.Equal(t, domain.KindPersistence, errKind(t, err))
}
