package port

import (
	"context"

	"github.com/wowmobi/callsignal/internal/core/domain"
)

// PushDirectory is the external per-user push-token store. All lookups are
// read-only; a missing entry is not an error.
type PushDirectory interface {
	// DataToken returns the user's data-push token, "" when none.
	DataToken(ctx context.Context, userID int64) (string, error)

	// VoipTarget returns the user's VoIP push target, nil when none.
	VoipTarget(ctx context.Context, userID int64) (*domain.VoipTarget, error)

	// Profile returns display data for the user, nil when unknown.
	Profile(ctx context.Context, userID int64) (*domain.Profile, error)
}

// DataPusher delivers a flat key/value payload over the data-push channel.
type DataPusher interface {
	Push(ctx context.Context, token string, data map[string]string) error
}

// VoipPusher delivers a silent wake payload over the VoIP channel.
type VoipPusher interface {
	Push(ctx context.Context, target domain.VoipTarget, data map[string]any) error
}
