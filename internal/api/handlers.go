package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	pionwebrtc "github.com/pion/webrtc/v3"

	"codesync/internal/coordinator"
	"codesync/internal/models"
	"codesync/internal/session"
	"codesync/internal/utils"
)

type Handlers struct {
	log          *utils.Logger
	coord        *coordinator.Coordinator
	upgrader     websocket.Upgrader
	webrtcConfig pionwebrtc.Configuration
}

// NewHandlers wires the HTTP surface. allowedOrigins is the websocket
// origin allow-list; empty means every origin is accepted.
func NewHandlers(log *utils.Logger, coord *coordinator.Coordinator, allowedOrigins []string) *Handlers {
	return &Handlers{
		log:   log,
		coord: coord,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		webrtcConfig: utils.GetWebRTCConfig(),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

// Status is the liveness probe: connection count, active room ids and a
// timestamp. Monitoring only; the coordination logic never reads it.
func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.coord.Status())
}

func (h *Handlers) GetRoomStatus(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		http.Error(w, "roomId is required", http.StatusBadRequest)
		return
	}
	status, ok := h.coord.RoomStatus(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	writeJSON(w, status)
}

// GetWebRTCConfig hands clients the ICE server list for the peer
// connections whose signaling this service relays.
func (h *Handlers) GetWebRTCConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]interface{}{"iceServers": h.webrtcConfig.ICEServers})
}

// CollabWS is the websocket entry point. Each connection gets a fresh
// socket id, lives through the read loop below, and is torn down exactly
// once when the read side fails.
func (h *Handlers) CollabWS(w http.ResponseWriter, r *http.Request) {
	var tokenRoom string
	if token := r.URL.Query().Get("token"); token != "" {
		claims, err := utils.ValidateRoomToken(token)
		if err != nil {
			http.Error(w, "invalid room token", http.StatusUnauthorized)
			return
		}
		tokenRoom = claims.RoomID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	client := session.NewClient(uuid.New().String(), conn)
	h.coord.Connect(client)
	defer h.coord.Disconnect(client)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env models.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			h.log.Warn("malformed frame", "socketId", client.ID, "error", err.Error())
			continue
		}

		if env.Event == models.EventJoin && tokenRoom != "" && !joinMatchesToken(env.Data, tokenRoom) {
			client.Send(errFrame("room token does not grant access to this room"))
			continue
		}

		if err := h.coord.Dispatch(client, env); err != nil {
			if verr, ok := coordinator.IsValidation(err); ok {
				client.Send(errFrame(verr.Message))
			}
		}
	}
}

func joinMatchesToken(data json.RawMessage, tokenRoom string) bool {
	var req models.JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return false
	}
	return req.RoomID == tokenRoom
}

func errFrame(msg string) models.Frame {
	return models.Frame{Event: models.EventError, Data: models.ErrorPayload{Message: msg}}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
