package port

import (
	"context"
	"time"

	"github.com/wowmobi/callsignal/internal/core/domain"
)

// CallRepository owns call rows and their lifecycle timestamps.
type CallRepository interface {
	// Create persists a new call and fills ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, call *domain.Call) error

	// Get returns the call or (nil, nil) when the id is unknown.
	Get(ctx context.Context, id int64) (*domain.Call, error)

	// SetStatus writes status and bumps updated_at.
	SetStatus(ctx context.Context, id int64, status domain.Status, at time.Time) error

	// Touch bumps updated_at without changing status.
	Touch(ctx context.Context, id int64, at time.Time) error

	// LatestRinging returns the most recent call still ringing for calleeID
	// created at or after since, or (nil, nil) when there is none.
	LatestRinging(ctx context.Context, calleeID int64, since time.Time) (*domain.Call, error)
}

// SignalRepository owns SDP and ICE rows, scoped by call id.
type SignalRepository interface {
	// ReplaceSdp removes any prior (call, role, type) record and inserts rec.
	ReplaceSdp(ctx context.Context, rec *domain.SdpRecord) error

	// LatestSdp returns the newest record for (call, role, type), or nil.
	LatestSdp(ctx context.Context, callID int64, role domain.Role, typ domain.SdpType) (*domain.SdpRecord, error)

	// LatestSdpExcludingRole returns the newest record of a type whose role
	// differs from the given one, or nil. Fallback for inconsistent role
	// assignment upstream; never hands a requester their own record back.
	LatestSdpExcludingRole(ctx context.Context, callID int64, role domain.Role, typ domain.SdpType) (*domain.SdpRecord, error)

	// HasCandidate reports whether an equivalent candidate already exists.
	// A stored NULL mid/mline matches any submitted value.
	HasCandidate(ctx context.Context, cand *domain.IceCandidate) (bool, error)

	// AddCandidate inserts an undelivered candidate and fills ID.
	AddCandidate(ctx context.Context, cand *domain.IceCandidate) error

	// ClaimUndelivered returns up to limit undelivered candidates for
	// (call, role) in insertion order and marks them delivered in the same
	// transaction.
	ClaimUndelivered(ctx context.Context, callID int64, role domain.Role, limit int) ([]domain.IceCandidate, error)

	// Purge deletes every SDP and ICE row of a call.
	Purge(ctx context.Context, callID int64) error
}
