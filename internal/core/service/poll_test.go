package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wowmobi/callsignal/internal/core/domain"
)

func TestPollReturnsStatusAndMedia(t *testing.T) {
	env := newTestEnv(t)
	call := env.newCall(t, domain.MediaVideo)

	res, err := env.poll.Poll(context.Background(), call.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRinging, res.Status)
	assert.Equal(t, domain.MediaVideo, res.Media)
	require.NotNil(t, res.Pending)
	assert.Nil(t, res.Pending.Offer)
	assert.Empty(t, res.Pending.Candidates)
}

func TestPollEndsStaleCall(t *testing.T) {
	env := newTestEnv(t)
	call := env.newCall(t, domain.MediaAudio)

	_, err := env.relay.RecordSdp(context.Background(), call.ID, 1, domain.SdpOffer, "v=0 offer")
	require.NoError(t, err)
	env.age(t, call.ID, 2*time.Minute)
	env.data.sent = nil

	res, err := env.poll.Poll(context.Background(), call.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnded, res.Status)

	// signaling rows are gone with the call
	assert.Zero(t, env.sdpRows(t, call.ID))
	assert.Nil(t, res.Pending.Offer)

	// the side that did not poll hears about the timeout
	require.Len(t, env.data.sent, 1)
	got := env.data.sent[0]
	assert.Equal(t, "fcm-callee", got.token)
	assert.Equal(t, "action", got.data["signal"])
	assert.Equal(t, "ended", got.data["call_status"])
	assert.Equal(t, "timeout", got.data["reason"])
}

func TestPollFreshCallNotTimedOut(t *testing.T) {
	env := newTestEnv(t)
	call := env.newCall(t, domain.MediaAudio)
	env.age(t, call.ID, 30*time.Second)

	res, err := env.poll.Poll(context.Background(), call.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRinging, res.Status)
}

func TestPollCandidateWriteDefersTimeout(t *testing.T) {
	env := newTestEnv(t)
	call := env.newCall(t, domain.MediaAudio)
	env.age(t, call.ID, 2*time.Minute)

	// a write from either side counts as activity
	_, _, err := env.relay.AddCandidate(context.Background(), call.ID, 1, "candidate:fresh", nil, nil)
	require.NoError(t, err)

	res, err := env.poll.Poll(context.Background(), call.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRinging, res.Status)
}

func TestPollStaleTerminalCallStaysPut(t *testing.T) {
	env := newTestEnv(t)
	call := env.newCall(t, domain.MediaAudio)

	_, err := env.calls.ApplyAction(context.Background(), call.ID, 42, domain.ActionDecline)
	require.NoError(t, err)
	env.age(t, call.ID, time.Hour)
	env.data.sent = nil

	res, err := env.poll.Poll(context.Background(), call.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDeclined, res.Status)
	assert.Empty(t, env.data.sent)
}

func TestPollAccessChecks(t *testing.T) {
	env := newTestEnv(t)
	call := env.newCall(t, domain.MediaAudio)

	_, err := env.poll.Poll(context.Background(), 9999, 1)
	assert.Equal(t, domain.KindNotFound, errKind(t, err))

	_, err = env.poll.Poll(context.Background(), call.ID, 77)
	assert.Equal(t, domain.KindForbidden, errKind(t, err))
}

func TestInbox(t *testing.T) {
	env := newTestEnv(t)
	first := env.newCall(t, domain.MediaAudio)
	second := env.newCall(t, domain.MediaVideo)

	got, err := env.poll.Inbox(context.Background(), 42, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)

	// answered calls no longer ring
	_, err = env.calls.ApplyAction(context.Background(), second.ID, 42, domain.ActionAnswer)
	require.NoError(t, err)
	got, err = env.poll.Inbox(context.Background(), 42, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)

	none, err := env.poll.Inbox(context.Background(), 77, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Nil(t, none)
}
