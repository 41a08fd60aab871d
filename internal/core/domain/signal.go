package domain

import "time"

type SdpType string

const (
	SdpOffer  SdpType = "offer"
	SdpAnswer SdpType = "answer"
)

type SdpRecord struct {
	ID        int64
	CallID    int64
	Role      Role
	Type      SdpType
	SDP       string
	CreatedAt time.Time
}

type IceCandidate struct {
	ID            int64
	CallID        int64
	Role          Role
	Candidate     string
	SdpMid        *string
	SdpMlineIndex *int
	Delivered     bool
	CreatedAt     time.Time
}

// PendingSignals is what a poll hands back to one side of the call: the
// peer's latest offer/answer plus the undelivered candidate queue.
type PendingSignals struct {
	Offer      *SdpRecord
	Answer     *SdpRecord
	Candidates []IceCandidate
}
