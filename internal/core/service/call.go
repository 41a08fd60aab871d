package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wowmobi/callsignal/internal/core/domain"
	"github.com/wowmobi/callsignal/internal/core/port"
	"github.com/wowmobi/callsignal/internal/metrics"
)

// CallService owns call records and the lifecycle state machine.
type CallService struct {
	calls   port.CallRepository
	signals port.SignalRepository
	push    *PushDispatcher
	now     func() time.Time
}

func NewCallService(calls port.CallRepository, signals port.SignalRepository, push *PushDispatcher) *CallService {
	return &CallService{calls: calls, signals: signals, push: push, now: time.Now}
}

// Create opens a ringing call and wakes the callee on both push channels.
func (s *CallService) Create(ctx context.Context, callerID, calleeID int64, media domain.MediaType) (*domain.Call, error) {
	call, err := domain.NewCall(callerID, calleeID, media)
	if err != nil {
		return nil, err
	}
	if err := s.calls.Create(ctx, call); err != nil {
		return nil, domain.Persistence("Failed to create call.", err)
	}
	metrics.CallsCreated.Inc()
	log.Info().Int64("call_id", call.ID).Int64("caller_id", callerID).
		Int64("callee_id", calleeID).Str("media", string(call.Media)).Msg("call created")

	s.push.Invite(ctx, call)
	return call, nil
}

// ApplyAction moves a call forward through the state machine. Terminal
// outcomes purge the call's signaling rows; the peer learns about the new
// status over the data channel only.
func (s *CallService) ApplyAction(ctx context.Context, callID, requesterID int64, action domain.Action) (domain.Status, error) {
	call, _, err := participantCall(ctx, s.calls, callID, requesterID)
	if err != nil {
		return "", err
	}

	next, err := domain.Transition(call.Status, action)
	if err != nil {
		return "", err
	}
	if err := s.calls.SetStatus(ctx, callID, next, s.now()); err != nil {
		return "", domain.Persistence("Failed to update status.", err)
	}
	metrics.ActionsApplied.WithLabelValues(string(action)).Inc()

	if next.Terminal() {
		if err := s.signals.Purge(ctx, callID); err != nil {
			log.Err(err).Int64("call_id", callID).Msg("signaling purge failed")
		}
	}
	log.Info().Int64("call_id", callID).Str("action", string(action)).
		Str("status", string(next)).Msg("action applied")

	s.push.PeerSignal(ctx, call, requesterID, map[string]string{
		"signal":      "action",
		"call_status": string(next),
	})
	return next, nil
}

// participantCall loads a call and checks the requester is one of its two
// sides. Shared by every call-scoped operation.
func participantCall(ctx context.Context, calls port.CallRepository, callID, requesterID int64) (*domain.Call, domain.Role, error) {
	call, err := calls.Get(ctx, callID)
	if err != nil {
		return nil, "", domain.Persistence("Failed to load call.", err)
	}
	if call == nil {
		return nil, "", domain.NotFound("Call not found.")
	}
	role, ok := call.Role(requesterID)
	if !ok {
		return nil, "", domain.Forbidden("Forbidden.")
	}
	return call, role, nil
}
