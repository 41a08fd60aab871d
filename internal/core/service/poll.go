package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wowmobi/callsignal/internal/core/domain"
	"github.com/wowmobi/callsignal/internal/core/port"
	"github.com/wowmobi/callsignal/internal/metrics"
)

// inactivityTimeout ends a call nobody has written to. A peer that crashed
// or lost the network without sending an explicit end would otherwise leave
// the other side polling forever.
const inactivityTimeout = 60 * time.Second

// PollCoordinator serves the polling read path and performs opportunistic
// timeout cleanup on every poll.
type PollCoordinator struct {
	calls   port.CallRepository
	signals port.SignalRepository
	relay   *SignalRelay
	push    *PushDispatcher
	now     func() time.Time
}

func NewPollCoordinator(calls port.CallRepository, signals port.SignalRepository, relay *SignalRelay, push *PushDispatcher) *PollCoordinator {
	return &PollCoordinator{calls: calls, signals: signals, relay: relay, push: push, now: time.Now}
}

// PollResult is one poll cycle's view of the call for the requester.
type PollResult struct {
	Status  domain.Status
	Media   domain.MediaType
	Pending *domain.PendingSignals
}

func (s *PollCoordinator) Poll(ctx context.Context, callID, requesterID int64) (*PollResult, error) {
	call, role, err := participantCall(ctx, s.calls, callID, requesterID)
	if err != nil {
		return nil, err
	}

	if !call.Status.Terminal() && s.now().Sub(call.LastActivity()) > inactivityTimeout {
		if next, terr := domain.Transition(call.Status, domain.ActionTimeout); terr == nil {
			if err := s.calls.SetStatus(ctx, callID, next, s.now()); err != nil {
				return nil, domain.Persistence("Failed to update status.", err)
			}
			if err := s.signals.Purge(ctx, callID); err != nil {
				log.Err(err).Int64("call_id", callID).Msg("timeout purge failed")
			}
			call.Status = next
			metrics.CallTimeouts.Inc()
			log.Info().Int64("call_id", callID).Str("role", string(role)).Msg("call timed out")

			s.push.PeerSignal(ctx, call, requesterID, map[string]string{
				"signal":      "action",
				"call_status": string(next),
				"reason":      "timeout",
			})
		}
	}

	pending, err := s.relay.FetchPending(ctx, callID, role)
	if err != nil {
		return nil, err
	}
	return &PollResult{Status: call.Status, Media: call.Media, Pending: pending}, nil
}

// Inbox returns the most recent still-ringing call addressed to the callee
// since the given time, or nil when there is none.
func (s *PollCoordinator) Inbox(ctx context.Context, calleeID int64, since time.Time) (*domain.Call, error) {
	call, err := s.calls.LatestRinging(ctx, calleeID, since)
	if err != nil {
		return nil, domain.Persistence("Failed to load inbox.", err)
	}
	return call, nil
}
