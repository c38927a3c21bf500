package coordinator

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"codesync/internal/metrics"
	"codesync/internal/models"
	"codesync/internal/session"
	"codesync/internal/state"
	"codesync/internal/utils"
)

// Publisher receives best-effort presence notifications. Implementations
// must never block on the coordinator's behalf.
type Publisher interface {
	Publish(event models.PresenceEvent)
}

// Coordinator routes every inbound event over the shared tables and decides
// the fan-out: broadcast to the room minus the sender, or point-to-point to
// one target socket. A single mutex serializes dispatch so each event is
// fully processed, including all its sends, before the next one starts.
type Coordinator struct {
	mu      sync.Mutex
	state   *state.State
	clients map[string]*session.Client
	log     *utils.Logger
	pub     Publisher
}

func New(st *state.State, log *utils.Logger, pub Publisher) *Coordinator {
	return &Coordinator{
		state:   st,
		clients: make(map[string]*session.Client),
		log:     log,
		pub:     pub,
	}
}

// Connect registers a live connection. The socket starts unjoined; only a
// join event binds it to a room.
func (co *Coordinator) Connect(c *session.Client) {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.clients[c.ID] = c
	metrics.SetConnections(len(co.clients))
}

// Dispatch routes one inbound envelope from the given sender. It returns a
// *models.ValidationError when the event failed validation and the sender
// should be told; every other failure is logged and swallowed so that a
// single bad frame never tears down the session.
func (co *Coordinator) Dispatch(c *session.Client, env models.Envelope) error {
	co.mu.Lock()
	defer co.mu.Unlock()

	metrics.IncEvent(env.Event)

	switch env.Event {
	case models.EventJoin:
		return co.handleJoin(c, env.Data)
	case models.EventCodeChange:
		co.handleCodeChange(c, env.Data)
	case models.EventCursorMove:
		co.handleCursorMove(c, env.Data)
	case models.EventSelectionChange:
		co.handleSelectionChange(c, env.Data)
	case models.EventCallOffer:
		co.relayOffer(c, env.Data, models.EventIncomingCall)
	case models.EventCallAnswer:
		co.relayAnswer(c, env.Data, models.EventCallAccepted)
	case models.EventNegoNeeded:
		co.relayOffer(c, env.Data, models.EventNegoNeeded)
	case models.EventNegoDone:
		co.relayAnswer(c, env.Data, models.EventNegoFinal)
	case models.EventScreenStart:
		co.relayScreen(c, env.Data, models.EventScreenStarted)
	case models.EventScreenStop:
		co.relayScreen(c, env.Data, models.EventScreenStopped)
	default:
		co.log.Warn("unknown event", "event", env.Event, "socketId", c.ID)
	}
	return nil
}

// Disconnect tears down all state for the connection. It fires once per
// connection lifetime from the transport, but stays safe to process even
// when no join was ever recorded.
func (co *Coordinator) Disconnect(c *session.Client) {
	co.mu.Lock()
	defer co.mu.Unlock()

	delete(co.clients, c.ID)
	metrics.SetConnections(len(co.clients))

	p, ok := co.state.Lookup(c.ID)
	if !ok {
		return
	}
	co.leaveRoom(p)
}

// leaveRoom removes the participant from both tables, destroys the room the
// moment it empties, and notifies whoever remains. Caller holds the lock.
func (co *Coordinator) leaveRoom(p models.Participant) {
	co.state.Remove(p.SocketID)
	remaining := co.state.RemoveMember(p.RoomID, p.SocketID)
	if remaining == 0 {
		co.state.DeleteRoom(p.RoomID)
		co.state.ClearDocument(p.RoomID)
		co.publish(models.PresenceEvent{Type: "room-closed", RoomID: p.RoomID})
	} else {
		co.broadcast(p.RoomID, p.SocketID, models.Frame{
			Event: models.EventUserDisconnected,
			Data:  models.UserDisconnected{SocketID: p.SocketID, Email: p.Email},
		})
	}
	metrics.SetRooms(len(co.state.RoomIDs()))
	co.publish(models.PresenceEvent{
		Type: "user-left", RoomID: p.RoomID, SocketID: p.SocketID, Email: p.Email,
	})
}

func (co *Coordinator) handleJoin(c *session.Client, data json.RawMessage) error {
	var req models.JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		co.log.Warn("malformed join payload", "socketId", c.ID, "error", err.Error())
		return nil
	}
	if req.RoomID == "" || req.Email == "" {
		return models.ErrRoomAndEmailRequired
	}

	// Re-joining from an already-joined socket counts as leaving first, so
	// a connection is never in two rooms at once.
	if prev, ok := co.state.Lookup(c.ID); ok {
		co.leaveRoom(prev)
	}

	p := models.Participant{SocketID: c.ID, Email: req.Email, RoomID: req.RoomID}
	co.state.Register(p)
	co.state.EnsureRoom(req.RoomID)
	co.state.AddMember(req.RoomID, p)
	metrics.SetRooms(len(co.state.RoomIDs()))

	members := co.state.ListMembers(req.RoomID)
	users := make([]models.UserInfo, 0, len(members))
	for _, m := range members {
		users = append(users, models.UserInfo{Email: m.Email, SocketID: m.SocketID})
	}

	c.Send(models.Frame{
		Event: models.EventJoined,
		Data: models.JoinedPayload{
			RoomID: req.RoomID,
			Email:  req.Email,
			Users:  users,
			Code:   co.state.Document(req.RoomID),
		},
	})
	co.broadcast(req.RoomID, c.ID, models.Frame{
		Event: models.EventUserJoined,
		Data:  models.UserJoinedPayload{Email: req.Email, SocketID: c.ID},
	})
	co.publish(models.PresenceEvent{
		Type: "user-joined", RoomID: req.RoomID, SocketID: c.ID, Email: req.Email,
	})
	return nil
}

func (co *Coordinator) handleCodeChange(c *session.Client, data json.RawMessage) {
	p, ok := co.joined(c, models.EventCodeChange)
	if !ok {
		return
	}
	var req models.CodeChange
	if err := json.Unmarshal(data, &req); err != nil {
		co.log.Warn("malformed code-change payload", "socketId", c.ID, "error", err.Error())
		return
	}
	// Last writer wins; the sender's own room is authoritative for routing.
	co.state.SetDocument(p.RoomID, req.Code)
	co.broadcast(p.RoomID, c.ID, models.Frame{
		Event: models.EventCodeChanged,
		Data: models.CodeChanged{
			Code:           req.Code,
			CursorPosition: req.CursorPosition,
			ChangedBy:      c.ID,
		},
	})
}

func (co *Coordinator) handleCursorMove(c *session.Client, data json.RawMessage) {
	p, ok := co.joined(c, models.EventCursorMove)
	if !ok {
		return
	}
	var req models.CursorMove
	if err := json.Unmarshal(data, &req); err != nil {
		co.log.Warn("malformed cursor-move payload", "socketId", c.ID, "error", err.Error())
		return
	}
	co.broadcast(p.RoomID, c.ID, models.Frame{
		Event: models.EventCursorMoved,
		Data: models.CursorMoved{
			CursorPosition: req.CursorPosition,
			SocketID:       c.ID,
			Email:          p.Email,
		},
	})
}

func (co *Coordinator) handleSelectionChange(c *session.Client, data json.RawMessage) {
	p, ok := co.joined(c, models.EventSelectionChange)
	if !ok {
		return
	}
	var req models.SelectionChange
	if err := json.Unmarshal(data, &req); err != nil {
		co.log.Warn("malformed selection-change payload", "socketId", c.ID, "error", err.Error())
		return
	}
	co.broadcast(p.RoomID, c.ID, models.Frame{
		Event: models.EventSelectionChanged,
		Data: models.SelectionChanged{
			Selection: req.Selection,
			SocketID:  c.ID,
			Email:     p.Email,
		},
	})
}

// relayOffer forwards offer-carrying signaling to one target socket. The
// target does not have to share a room with the sender; negotiation may span
// participants this coordinator never validated pairing for.
func (co *Coordinator) relayOffer(c *session.Client, data json.RawMessage, outEvent string) {
	if _, ok := co.joined(c, outEvent); !ok {
		return
	}
	var req models.OfferRequest
	if err := json.Unmarshal(data, &req); err != nil || req.To == "" {
		co.log.Warn("malformed signaling payload", "socketId", c.ID, "event", outEvent)
		return
	}
	co.sendTo(req.To, models.Frame{
		Event: outEvent,
		Data:  models.OfferDelivery{From: c.ID, Offer: req.Offer},
	})
}

func (co *Coordinator) relayAnswer(c *session.Client, data json.RawMessage, outEvent string) {
	if _, ok := co.joined(c, outEvent); !ok {
		return
	}
	var req models.AnswerRequest
	if err := json.Unmarshal(data, &req); err != nil || req.To == "" {
		co.log.Warn("malformed signaling payload", "socketId", c.ID, "event", outEvent)
		return
	}
	co.sendTo(req.To, models.Frame{
		Event: outEvent,
		Data:  models.AnswerDelivery{From: c.ID, Ans: req.Ans},
	})
}

func (co *Coordinator) relayScreen(c *session.Client, data json.RawMessage, outEvent string) {
	if _, ok := co.joined(c, outEvent); !ok {
		return
	}
	var req models.ScreenRequest
	if err := json.Unmarshal(data, &req); err != nil || req.To == "" {
		co.log.Warn("malformed signaling payload", "socketId", c.ID, "event", outEvent)
		return
	}
	co.sendTo(req.To, models.Frame{
		Event: outEvent,
		Data:  models.ScreenDelivery{From: c.ID},
	})
}

// joined resolves the sender's participant record; events other than join
// are only meaningful from a joined socket.
func (co *Coordinator) joined(c *session.Client, event string) (models.Participant, bool) {
	p, ok := co.state.Lookup(c.ID)
	if !ok {
		co.log.Warn("event from unjoined socket", "event", event, "socketId", c.ID)
	}
	return p, ok
}

// broadcast fans one frame out to every member of the room except the
// sender. The exclusion keeps authoritative local state from echoing back.
func (co *Coordinator) broadcast(roomID, senderID string, frame models.Frame) {
	for _, m := range co.state.ListMembers(roomID) {
		if m.SocketID == senderID {
			continue
		}
		co.sendTo(m.SocketID, frame)
	}
}

// sendTo delivers to one socket; a missing target is a silent no-op.
func (co *Coordinator) sendTo(socketID string, frame models.Frame) {
	if target, ok := co.clients[socketID]; ok {
		target.Send(frame)
		metrics.IncDelivered(frame.Event)
	}
}

func (co *Coordinator) publish(event models.PresenceEvent) {
	if co.pub == nil {
		return
	}
	event.Timestamp = time.Now()
	co.pub.Publish(event)
}

// Status reports the liveness snapshot for external monitoring.
func (co *Coordinator) Status() models.StatusResponse {
	co.mu.Lock()
	defer co.mu.Unlock()
	return models.StatusResponse{
		Connections: len(co.clients),
		Rooms:       co.state.RoomIDs(),
		Timestamp:   time.Now(),
	}
}

// RoomStatus reports one room's member list, or false if the room is gone.
func (co *Coordinator) RoomStatus(roomID string) (models.RoomStatus, bool) {
	co.mu.Lock()
	defer co.mu.Unlock()
	if !co.state.RoomExists(roomID) {
		return models.RoomStatus{}, false
	}
	members := co.state.ListMembers(roomID)
	users := make([]models.UserInfo, 0, len(members))
	for _, m := range members {
		users = append(users, models.UserInfo{Email: m.Email, SocketID: m.SocketID})
	}
	return models.RoomStatus{RoomID: roomID, UserCount: len(users), Users: users}, true
}

// IsValidation reports whether err is the client-visible validation error.
func IsValidation(err error) (*models.ValidationError, bool) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
