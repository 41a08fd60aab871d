package service

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wowmobi/callsignal/internal/core/domain"
	"github.com/wowmobi/callsignal/internal/core/port"
	"github.com/wowmobi/callsignal/internal/metrics"
)

// PushDispatcher wakes the peer of a call over two disjoint channels. Both
// are fire-and-forget: the state write has already committed when a
// dispatcher method runs, and no delivery failure propagates to the caller.
type PushDispatcher struct {
	dir  port.PushDirectory
	data port.DataPusher
	voip port.VoipPusher
	now  func() time.Time
}

// NewPushDispatcher builds a dispatcher. data and voip may be nil when the
// respective channel is not configured; sends on a nil channel are dropped.
func NewPushDispatcher(dir port.PushDirectory, data port.DataPusher, voip port.VoipPusher) *PushDispatcher {
	return &PushDispatcher{dir: dir, data: data, voip: voip, now: time.Now}
}

// Invite wakes the callee of a fresh call. This is the only event that uses
// the VoIP channel: a second VoIP wake would re-trigger the native
// incoming-call screen on a device that already answered.
func (d *PushDispatcher) Invite(ctx context.Context, call *domain.Call) {
	ts := strconv.FormatInt(d.now().Unix(), 10)

	d.sendData(ctx, call.CalleeID, map[string]string{
		"type":      "call_invite",
		"call_id":   strconv.FormatInt(call.ID, 10),
		"media":     string(call.Media),
		"caller_id": strconv.FormatInt(call.CallerID, 10),
		"ts":        ts,
	})

	if d.voip == nil {
		return
	}
	target, err := d.dir.VoipTarget(ctx, call.CalleeID)
	if err != nil {
		log.Err(err).Int64("call_id", call.ID).Msg("voip target lookup failed")
		return
	}
	if target == nil {
		return
	}

	var name, avatar string
	if profile, err := d.dir.Profile(ctx, call.CallerID); err != nil {
		log.Err(err).Int64("call_id", call.ID).Msg("caller profile lookup failed")
	} else if profile != nil {
		name = profile.Name
		avatar = profile.Avatar
	}

	payload := map[string]any{
		"type":          "call_invite",
		"call_id":       call.ID,
		"media":         string(call.Media),
		"caller_id":     call.CallerID,
		"caller_name":   name,
		"caller_avatar": avatar,
		"ts":            d.now().Unix(),
	}
	if err := d.voip.Push(ctx, *target, payload); err != nil {
		metrics.PushFailures.WithLabelValues("voip").Inc()
		log.Err(err).Int64("call_id", call.ID).Int64("callee_id", call.CalleeID).Msg("voip invite failed")
		return
	}
	metrics.PushesSent.WithLabelValues("voip").Inc()
	log.Info().Int64("call_id", call.ID).Int64("callee_id", call.CalleeID).Msg("voip invite sent")
}

// PeerSignal notifies the other participant of a signaling event over the
// data channel only. Never VoIP.
func (d *PushDispatcher) PeerSignal(ctx context.Context, call *domain.Call, senderID int64, fields map[string]string) {
	peerID := call.PeerID(senderID)
	if peerID <= 0 {
		return
	}

	data := map[string]string{
		"type":    "call_signal",
		"call_id": strconv.FormatInt(call.ID, 10),
		"ts":      strconv.FormatInt(d.now().Unix(), 10),
	}
	for k, v := range fields {
		data[k] = v
	}
	d.sendData(ctx, peerID, data)
}

// sendData pushes over the data channel; a user without a token is silently
// unreachable (no retry, no queue).
func (d *PushDispatcher) sendData(ctx context.Context, userID int64, data map[string]string) {
	if d.data == nil {
		return
	}
	token, err := d.dir.DataToken(ctx, userID)
	if err != nil {
		log.Err(err).Int64("user_id", userID).Msg("data token lookup failed")
		return
	}
	if token == "" {
		log.Debug().Int64("user_id", userID).Str("type", data["type"]).Msg("no push target")
		return
	}
	if err := d.data.Push(ctx, token, data); err != nil {
		metrics.PushFailures.WithLabelValues("data").Inc()
		log.Err(err).Int64("user_id", userID).Str("type", data["type"]).Msg("data push failed")
		return
	}
	metrics.PushesSent.WithLabelValues("data").Inc()
}
