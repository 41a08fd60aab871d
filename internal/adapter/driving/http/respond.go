package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/wowmobi/callsignal/internal/core/domain"
)

// timeFormat matches what the mobile clients historically parsed out of the
// signaling responses.
const timeFormat = "2006-01-02 15:04:05"

func writeJSON(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"api_status": 200}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, body)
}

// writeError maps a domain error onto the response envelope. Auth failures
// use the numbered error envelope the clients key on; everything else is an
// api_status plus message. The HTTP status stays 200 either way.
func (h *Handler) writeError(w http.ResponseWriter, l zerolog.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		l.Err(err).Msg("unclassified failure")
		h.writeServerError(w, err)
		return
	}

	switch de.Kind {
	case domain.KindMissingKey:
		writeAuthError(w, 5, de.Message)
	case domain.KindInvalidKey:
		writeAuthError(w, 6, de.Message)
	case domain.KindUnauthenticated:
		writeAuthError(w, 401, de.Message)
	case domain.KindNotFound:
		writeJSON(w, map[string]any{"api_status": 404, "error": de.Message})
	case domain.KindForbidden:
		writeJSON(w, map[string]any{"api_status": 403, "error": de.Message})
	case domain.KindValidation, domain.KindInvalidAction:
		writeJSON(w, map[string]any{"api_status": 400, "error": de.Message})
	case domain.KindPersistence:
		l.Err(de).Msg("store failure")
		h.writeServerError(w, de)
	default:
		l.Err(de).Msg("unmapped error kind")
		h.writeServerError(w, de)
	}
}

func (h *Handler) writeServerError(w http.ResponseWriter, err error) {
	msg := "Internal server error."
	if h.Debug {
		msg += " :: " + err.Error()
	}
	writeJSON(w, map[string]any{"api_status": 500, "error": msg})
}

func writeAuthError(w http.ResponseWriter, id int, text string) {
	writeJSON(w, map[string]any{
		"api_status": "400",
		"errors":     map[string]any{"error_id": id, "error_text": text},
	})
}

func sdpDTO(rec *domain.SdpRecord) map[string]any {
	if rec == nil {
		return nil
	}
	return map[string]any{
		"id":         rec.ID,
		"call_id":    rec.CallID,
		"role":       string(rec.Role),
		"sdp_type":   string(rec.Type),
		"sdp":        rec.SDP,
		"created_at": rec.CreatedAt.Format(timeFormat),
	}
}

func candidateDTO(c domain.IceCandidate) map[string]any {
	dto := map[string]any{
		"id":              c.ID,
		"candidate":       c.Candidate,
		"sdp_mid":         nil,
		"sdp_mline_index": nil,
		"created_at":      c.CreatedAt.Format(timeFormat),
	}
	if c.SdpMid != nil {
		dto["sdp_mid"] = *c.SdpMid
	}
	if c.SdpMlineIndex != nil {
		dto["sdp_mline_index"] = *c.SdpMlineIndex
	}
	return dto
}
