package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wowmobi/callsignal/internal/core/domain"
	"github.com/wowmobi/callsignal/internal/core/service"
)

type Handler struct {
	Auth  *service.AuthGate
	Calls *service.CallService
	Relay *service.SignalRelay
	Poll  *service.PollCoordinator
	Debug bool
}

func NewHandler(auth *service.AuthGate, calls *service.CallService, relay *service.SignalRelay, poll *service.PollCoordinator, debug bool) *Handler {
	return &Handler{
		Auth:  auth,
		Calls: calls,
		Relay: relay,
		Poll:  poll,
		Debug: debug,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/api/webrtc", h.ServeSignal)

	return r
}

// ServeSignal is the single signaling endpoint; the type parameter selects
// the intent. Domain errors are structured responses, never transport
// failures.
func (h *Handler) ServeSignal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, log.Logger, domain.Validation("Malformed request."))
		return
	}

	l := log.With().Str("req_id", uuid.NewString()).Logger()

	if r.Form.Has("ping") {
		writeJSON(w, map[string]any{"api_status": 200, "pong": time.Now().Unix()})
		return
	}

	intent := r.FormValue("type")
	userID, err := h.Auth.Authorize(r.Context(), r.FormValue("server_key"), r.FormValue("access_token"), intent)
	if err != nil {
		h.writeError(w, l, err)
		return
	}
	l = l.With().Int64("me_id", userID).Str("type", intent).Logger()

	switch intent {
	case "create":
		h.create(w, r, l, userID)
	case "offer":
		h.recordSdp(w, r, l, userID, domain.SdpOffer)
	case "answer":
		h.recordSdp(w, r, l, userID, domain.SdpAnswer)
	case "candidate":
		h.candidate(w, r, l, userID)
	case "poll":
		h.poll(w, r, l, userID)
	case "action":
		h.action(w, r, l, userID)
	case "client_log":
		h.clientLog(w, r, l, userID)
	case "inbox":
		h.inbox(w, r, l, userID)
	default:
		h.writeError(w, l, domain.InvalidAction("Invalid type."))
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, l zerolog.Logger, userID int64) {
	calleeID := formInt64(r, "recipient_id")
	media := domain.ParseMediaType(r.FormValue("media_type"))

	call, err := h.Calls.Create(r.Context(), userID, calleeID, media)
	if err != nil {
		h.writeError(w, l, err)
		return
	}
	writeOK(w, map[string]any{
		"call_id":    call.ID,
		"status":     string(call.Status),
		"media_type": string(call.Media),
	})
}

func (h *Handler) recordSdp(w http.ResponseWriter, r *http.Request, l zerolog.Logger, userID int64, typ domain.SdpType) {
	call, err := h.Relay.RecordSdp(r.Context(), formInt64(r, "call_id"), userID, typ, r.FormValue("sdp"))
	if err != nil {
		h.writeError(w, l, err)
		return
	}
	resp := map[string]any{"saved": true}
	if typ == domain.SdpAnswer {
		resp["status"] = string(call.Status)
	}
	writeOK(w, resp)
}

func (h *Handler) candidate(w http.ResponseWriter, r *http.Request, l zerolog.Logger, userID int64) {
	var mid *string
	if r.Form.Has("sdp_mid") {
		v := r.FormValue("sdp_mid")
		mid = &v
	}
	var mline *int
	if r.Form.Has("sdp_mline_index") {
		if v, err := strconv.Atoi(strings.TrimSpace(r.FormValue("sdp_mline_index"))); err == nil {
			mline = &v
		}
	}

	id, dup, err := h.Relay.AddCandidate(r.Context(), formInt64(r, "call_id"), userID, r.FormValue("candidate"), mid, mline)
	if err != nil {
		h.writeError(w, l, err)
		return
	}
	if dup {
		writeOK(w, map[string]any{"duplicate": true})
		return
	}
	writeOK(w, map[string]any{"id": id})
}

func (h *Handler) poll(w http.ResponseWriter, r *http.Request, l zerolog.Logger, userID int64) {
	res, err := h.Poll.Poll(r.Context(), formInt64(r, "call_id"), userID)
	if err != nil {
		h.writeError(w, l, err)
		return
	}

	cands := make([]map[string]any, 0, len(res.Pending.Candidates))
	for _, c := range res.Pending.Candidates {
		cands = append(cands, candidateDTO(c))
	}
	writeOK(w, map[string]any{
		"call_status":    string(res.Status),
		"media_type":     string(res.Media),
		"sdp_offer":      sdpDTO(res.Pending.Offer),
		"sdp_answer":     sdpDTO(res.Pending.Answer),
		"ice_candidates": cands,
	})
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request, l zerolog.Logger, userID int64) {
	action, err := domain.ParseAction(r.FormValue("action"))
	if err != nil {
		h.writeError(w, l, err)
		return
	}
	status, err := h.Calls.ApplyAction(r.Context(), formInt64(r, "call_id"), userID, action)
	if err != nil {
		h.writeError(w, l, err)
		return
	}
	writeOK(w, map[string]any{"status": string(status)})
}

// clientLog records client-side diagnostics; it is the one intent that runs
// without a resolved identity.
func (h *Handler) clientLog(w http.ResponseWriter, r *http.Request, l zerolog.Logger, userID int64) {
	var details any = r.FormValue("details")
	if raw, ok := details.(string); ok && raw != "" {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
			details = decoded
		}
	}
	l.Info().
		Int64("call_id", formInt64(r, "call_id")).
		Str("event", strings.TrimSpace(r.FormValue("event"))).
		Interface("details", details).
		Msg("client_log")
	writeOK(w, map[string]any{"logged": true})
}

func (h *Handler) inbox(w http.ResponseWriter, r *http.Request, l zerolog.Logger, userID int64) {
	since := time.Now().Add(-2 * time.Minute)
	if v := formInt64(r, "since"); v > 0 {
		since = time.Unix(v, 0)
	}

	call, err := h.Poll.Inbox(r.Context(), userID, since)
	if err != nil {
		h.writeError(w, l, err)
		return
	}
	var incoming map[string]any
	if call != nil {
		incoming = map[string]any{
			"id":         call.ID,
			"caller_id":  call.CallerID,
			"callee_id":  call.CalleeID,
			"media_type": string(call.Media),
			"status":     string(call.Status),
			"ts":         call.CreatedAt.Unix(),
		}
	}
	writeOK(w, map[string]any{"incoming": incoming})
}

func formInt64(r *http.Request, name string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue(name)), 10, 64)
	return v
}
