package service

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wowmobi/callsignal/internal/core/domain"
	"github.com/wowmobi/callsignal/internal/core/port"
)

// pendingCandidateLimit caps how many queued candidates one poll drains.
const pendingCandidateLimit = 200

// SignalRelay stores and retrieves session descriptions and connectivity
// candidates between the two sides of a call.
type SignalRelay struct {
	calls   port.CallRepository
	signals port.SignalRepository
	push    *PushDispatcher
	now     func() time.Time
}

func NewSignalRelay(calls port.CallRepository, signals port.SignalRepository, push *PushDispatcher) *SignalRelay {
	return &SignalRelay{calls: calls, signals: signals, push: push, now: time.Now}
}

// RecordSdp replaces the requester's offer or answer. Recording an offer
// resets a non-terminal call to ringing, which unsticks a callee whose poll
// missed the initial invite; an offer on an ended or declined call is
// rejected rather than resurrecting it. An answer moves the call to answered.
func (s *SignalRelay) RecordSdp(ctx context.Context, callID, requesterID int64, typ domain.SdpType, sdp string) (*domain.Call, error) {
	call, role, err := participantCall(ctx, s.calls, callID, requesterID)
	if err != nil {
		return nil, err
	}
	if sdp == "" {
		return nil, domain.Validation("SDP is required.")
	}
	if call.Status.Terminal() {
		return nil, domain.InvalidAction("Call has already " + string(call.Status) + ".")
	}

	rec := &domain.SdpRecord{CallID: callID, Role: role, Type: typ, SDP: sdp}
	if err := s.signals.ReplaceSdp(ctx, rec); err != nil {
		return nil, domain.Persistence("Failed to save "+string(typ)+".", err)
	}

	fields := map[string]string{
		"signal": string(typ),
		"media":  string(call.Media),
	}
	switch typ {
	case domain.SdpOffer:
		if err := s.calls.SetStatus(ctx, callID, domain.StatusRinging, s.now()); err != nil {
			return nil, domain.Persistence("Failed to update status.", err)
		}
		call.Status = domain.StatusRinging
		fields["sdp_offer"] = sdp
		fields["call_status"] = string(call.Status)
	case domain.SdpAnswer:
		if err := s.calls.SetStatus(ctx, callID, domain.StatusAnswered, s.now()); err != nil {
			return nil, domain.Persistence("Failed to update status.", err)
		}
		call.Status = domain.StatusAnswered
		fields["sdp_answer"] = sdp
		fields["call_status"] = string(call.Status)
	}
	log.Info().Int64("call_id", callID).Str("role", string(role)).
		Str("sdp_type", string(typ)).Int("len", len(sdp)).Msg("sdp recorded")

	s.push.PeerSignal(ctx, call, requesterID, fields)
	return call, nil
}

// AddCandidate dedup-inserts an ICE candidate. A candidate identical to one
// already stored for the role is reported back as a duplicate without a
// write; the dedup check is read-then-write, so a race can admit a duplicate
// row, which a correct connectivity agent tolerates.
func (s *SignalRelay) AddCandidate(ctx context.Context, callID, requesterID int64, candidate string, mid *string, mline *int) (int64, bool, error) {
	call, role, err := participantCall(ctx, s.calls, callID, requesterID)
	if err != nil {
		return 0, false, err
	}
	if candidate == "" {
		return 0, false, domain.Validation("candidate is required.")
	}
	if call.Status.Terminal() {
		return 0, false, domain.InvalidAction("Call has already " + string(call.Status) + ".")
	}

	cand := &domain.IceCandidate{
		CallID:        callID,
		Role:          role,
		Candidate:     candidate,
		SdpMid:        mid,
		SdpMlineIndex: mline,
	}
	dup, err := s.signals.HasCandidate(ctx, cand)
	if err != nil {
		return 0, false, domain.Persistence("Failed to save candidate.", err)
	}
	if dup {
		return 0, true, nil
	}
	if err := s.signals.AddCandidate(ctx, cand); err != nil {
		return 0, false, domain.Persistence("Failed to save candidate.", err)
	}
	if err := s.calls.Touch(ctx, callID, s.now()); err != nil {
		log.Err(err).Int64("call_id", callID).Msg("touch after candidate failed")
	}

	fields := map[string]string{
		"signal":    "candidate",
		"candidate": candidate,
	}
	if mid != nil {
		fields["sdp_mid"] = *mid
	}
	if mline != nil {
		fields["sdp_mline_index"] = strconv.Itoa(*mline)
	}
	s.push.PeerSignal(ctx, call, requesterID, fields)
	return cand.ID, false, nil
}

// FetchPending collects what the other side has produced for the requester:
// latest offer and answer (falling back to any role when the role-scoped
// lookup is empty) and the undelivered candidate queue, marked delivered as
// part of serving it.
func (s *SignalRelay) FetchPending(ctx context.Context, callID int64, requesterRole domain.Role) (*domain.PendingSignals, error) {
	other := requesterRole.Other()

	offer, err := s.signals.LatestSdp(ctx, callID, other, domain.SdpOffer)
	if err != nil {
		return nil, domain.Persistence("Failed to load pending signals.", err)
	}
	if offer == nil {
		if offer, err = s.signals.LatestSdpExcludingRole(ctx, callID, requesterRole, domain.SdpOffer); err != nil {
			return nil, domain.Persistence("Failed to load pending signals.", err)
		}
	}

	answer, err := s.signals.LatestSdp(ctx, callID, other, domain.SdpAnswer)
	if err != nil {
		return nil, domain.Persistence("Failed to load pending signals.", err)
	}
	if answer == nil {
		if answer, err = s.signals.LatestSdpExcludingRole(ctx, callID, requesterRole, domain.SdpAnswer); err != nil {
			return nil, domain.Persistence("Failed to load pending signals.", err)
		}
	}

	cands, err := s.signals.ClaimUndelivered(ctx, callID, other, pendingCandidateLimit)
	if err != nil {
		return nil, domain.Persistence("Failed to load pending signals.", err)
	}

	return &domain.PendingSignals{Offer: offer, Answer: answer, Candidates: cands}, nil
}
