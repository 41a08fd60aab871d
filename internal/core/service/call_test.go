package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wowmobi/callsignal/internal/core/domain"
)

func TestCreateOpensRingingCall(t *testing.T) {
	env := newTestEnv(t)

	call, err := env.calls.Create(context.Background(), 1, 42, domain.MediaVideo)
	require.NoError(t, err)
	assert.Positive(t, call.ID)
	assert.Equal(t, domain.StatusRinging, call.Status)
	assert.Equal(t, domain.MediaVideo, call.Media)
}

func TestCreateWakesCalleeOnBothChannels(t *testing.T) {
	env := newTestEnv(t)

	call := env.newCall(t, domain.MediaAudio)

	require.Len(t, env.data.sent, 1)
	got := env.data.sent[0]
	assert.Equal(t, "fcm-callee", got.token)
	assert.Equal(t, "call_invite", got.data["type"])
	assert.Equal(t, "audio", got.data["media"])
	assert.Equal(t, "1", got.data["caller_id"])
	assert.NotEmpty(t, got.data["ts"])

	require.Len(t, env.voip.sent, 1)
	vp := env.voip.sent[0]
	assert.Equal(t, "aa11", vp.target.Token)
	assert.Equal(t, "call_invite", vp.data["type"])
	assert.Equal(t, call.ID, vp.data["call_id"])
	assert.Equal(t, "Alice", vp.data["caller_name"])
	assert.Equal(t, "https://cdn/a.png", vp.data["caller_avatar"])
}

func TestCreateValidatesParticipants(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.calls.Create(context.Background(), 1, 1, domain.MediaAudio)
	assert.Equal(t, domain.KindValidation, errKind(t, err))

	_, err = env.calls.Create(context.Background(), 1, 0, domain.MediaAudio)
	assert.Equal(t, domain.KindValidation, errKind(t, err))

	assert.Empty(t, env.data.sent)
	assert.Empty(t, env.voip.sent)
}

func TestApplyActionAnswer(t *testing.T) {
	env := newTestEnv(t)
	call := env.newCall(t, domain.MediaAudio)
	env.data.sent = nil

	status, err := env.calls.ApplyAction(context.Background(), call.ID, 42, domain.ActionAnswer)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAnswered, status)

	stored, err := env.poll.Poll(context.Background(), call.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAnswered, stored.Status)

	// caller is told, not the callee who acted
	require.Len(t, env.data.sent, 1)
	got := env.data.sent[0]
	assert.Equal(t, "fcm-caller", got.token)
	assert.Equal(t, "call_signal", got.data["type"])
	assert.Equal(t, "action", got.data["signal"])
	assert.Equal(t, "answered", got.data["call_status"])
}

func TestApplyActionTerminalPurgesSignaling(t *testing.T) {
	env := newTestEnv(t)
	call := env.newCall(t, domain.MediaAudio)

	_, err := env.relay.RecordSdp(context.Background(), call.ID, 1, domain.SdpOffer, "v=0 offer")
	require.NoError(t, err)
	_, _, err = env.relay.AddCandidate(context.Background(), call.ID, 1, "candidate:1 1 udp 1 10.0.0.1 4000 typ host", nil, nil)
	require.NoError(t, err)
	require.Equal(t, 1, env.sdpRows(t, call.ID))
	require.Equal(t, 1, env.iceRows(t, call.ID))

	status, err := env.calls.ApplyAction(context.Background(), call.ID, 42, domain.ActionDecline)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeclined, status)
	assert.Zero(t, env.sdpRows(t, call.ID))
	assert.Zero(t, env.iceRows(t, call.ID))
}

func TestApplyActionIllegalTransition(t *testing.T) {
	env := newTestEnv(t)
	call := env.newCall(t, domain.MediaAudio)

	_, err := env.calls.ApplyAction(context.Background(), call.ID, 42, domain.ActionDecline)
	require.NoError(t, err)

	// a declined call cannot be answered afterwards
	_, err = env.calls.ApplyAction(context.Background(), call.ID, 42, domain.ActionAnswer)
	assert.Equal(t, domain.KindInvalidAction, errKind(t, err))
}

func TestApplyActionAccessChecks(t *testing.T) {
	env := newTestEnv(t)
	call := env.newCall(t, domain.MediaAudio)

	_, err := env.calls.ApplyAction(context.Background(), 9999, 1, domain.ActionEnd)
	assert.Equal(t, domain.KindNotFound, errKind(t, err))

	_, err = env.calls.ApplyAction(context.Background(), call.ID, 77, domain.ActionEnd)
	assert.Equal(t, domain.KindForbidden, errKind(t, err))
}
