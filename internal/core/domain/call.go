package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/looplab/fsm"
)

type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// ParseMediaType normalizes a client-supplied media type. Anything that is
// not "video" falls back to audio.
func ParseMediaType(s string) MediaType {
	switch MediaType(strings.ToLower(strings.TrimSpace(s))) {
	case MediaVideo:
		return MediaVideo
	default:
		return MediaAudio
	}
}

type Status string

const (
	StatusRinging  Status = "ringing"
	StatusAnswered Status = "answered"
	StatusDeclined Status = "declined"
	StatusEnded    Status = "ended"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusDeclined || s == StatusEnded
}

type Action string

const (
	ActionAnswer  Action = "answer"
	ActionDecline Action = "decline"
	ActionEnd     Action = "end"

	// ActionTimeout is server-driven only, fired by the poll coordinator.
	ActionTimeout Action = "timeout"
)

// ParseAction validates a client-supplied action string. ActionTimeout is
// not reachable from the wire.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionAnswer:
		return ActionAnswer, nil
	case ActionDecline:
		return ActionDecline, nil
	case ActionEnd:
		return ActionEnd, nil
	default:
		return "", InvalidAction("Invalid action.")
	}
}

type Role string

const (
	RoleCaller Role = "caller"
	RoleCallee Role = "callee"
)

// Other returns the opposite side of the call.
func (r Role) Other() Role {
	if r == RoleCaller {
		return RoleCallee
	}
	return RoleCaller
}

type Call struct {
	ID        int64
	CallerID  int64
	CalleeID  int64
	Media     MediaType
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCall builds a ringing call after validating the participants.
func NewCall(callerID, calleeID int64, media MediaType) (*Call, error) {
	if calleeID <= 0 {
		return nil, Validation("recipient_id is required.")
	}
	if calleeID == callerID {
		return nil, Validation("Cannot call yourself.")
	}
	return &Call{
		CallerID: callerID,
		CalleeID: calleeID,
		Media:    media,
		Status:   StatusRinging,
	}, nil
}

// Role resolves the participant role of userID, if any.
func (c *Call) Role(userID int64) (Role, bool) {
	switch userID {
	case c.CallerID:
		return RoleCaller, true
	case c.CalleeID:
		return RoleCallee, true
	default:
		return "", false
	}
}

// PeerID returns the other participant.
func (c *Call) PeerID(userID int64) int64 {
	if userID == c.CallerID {
		return c.CalleeID
	}
	return c.CallerID
}

// LastActivity is the timestamp the inactivity check measures against.
func (c *Call) LastActivity() time.Time {
	if c.UpdatedAt.After(c.CreatedAt) {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

// lifecycle builds the call state machine positioned at the current status.
// Transitions only move forward; terminal states have no outgoing edges.
func lifecycle(current Status) *fsm.FSM {
	return fsm.NewFSM(
		string(current),
		fsm.Events{
			{Name: string(ActionAnswer), Src: []string{string(StatusRinging)}, Dst: string(StatusAnswered)},
			{Name: string(ActionDecline), Src: []string{string(StatusRinging)}, Dst: string(StatusDeclined)},
			{Name: string(ActionEnd), Src: []string{string(StatusRinging), string(StatusAnswered)}, Dst: string(StatusEnded)},
			{Name: string(ActionTimeout), Src: []string{string(StatusRinging), string(StatusAnswered)}, Dst: string(StatusEnded)},
		},
		fsm.Callbacks{},
	)
}

// Transition applies an action to a status and returns the resulting status.
func Transition(current Status, action Action) (Status, error) {
	m := lifecycle(current)
	if err := m.Event(context.Background(), string(action)); err != nil {
		var invalid fsm.InvalidEventError
		if errors.As(err, &invalid) {
			return "", InvalidAction("Invalid action for call status '" + string(current) + "'.")
		}
		return "", InvalidAction("Invalid action.")
	}
	return Status(m.Current()), nil
}

// Profile is the subset of the external user profile carried on VoIP invites.
type Profile struct {
	UserID int64
	Name   string
	Avatar string
}

// VoipTarget identifies a device reachable over the VoIP silent-push channel.
type VoipTarget struct {
	Token  string // hex device token
	Env    string // "sandbox" or "prod"; empty means use the configured default
	Bundle string // per-device bundle override, empty means configured default
}
