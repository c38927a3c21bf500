package models

import (
	"encoding/json"
	"time"
)

// Wire event names. Inbound names are what clients emit; outbound names are
// what the coordinator fans out. The "incomming:call" spelling is part of the
// wire protocol and must not be corrected.
const (
	EventJoin            = "join"
	EventCodeChange      = "code-change"
	EventCursorMove      = "cursor-move"
	EventSelectionChange = "selection-change"
	EventCallOffer       = "user:call"
	EventCallAnswer      = "call:accepted"
	EventNegoNeeded      = "peer:nego:needed"
	EventNegoDone        = "peer:nego:done"
	EventScreenStart     = "screen:start"
	EventScreenStop      = "screen:stop"

	EventJoined           = "joined"
	EventUserJoined       = "user:joined"
	EventCodeChanged      = "code-changed"
	EventCursorMoved      = "cursor-moved"
	EventSelectionChanged = "selection-changed"
	EventUserDisconnected = "user:disconnected"
	EventIncomingCall     = "incomming:call"
	EventCallAccepted     = "call:accepted"
	EventNegoFinal        = "peer:nego:final"
	EventScreenStarted    = "screen:started"
	EventScreenStopped    = "screen:stopped"
	EventError            = "error"
)

// Envelope is the inbound frame shape: a tagged event with an opaque payload
// that each handler decodes into its own struct.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Frame is an outbound event.
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Participant is one joined connection: exactly one record per live socket,
// bound to exactly one room.
type Participant struct {
	SocketID string `json:"socketId"`
	Email    string `json:"email"`
	RoomID   string `json:"roomId"`
}

// UserInfo is the public shape of a participant in member lists.
type UserInfo struct {
	Email    string `json:"email"`
	SocketID string `json:"socketId"`
}

/*** Room events ***/

type JoinRequest struct {
	RoomID string `json:"roomId"`
	Email  string `json:"email"`
}

// JoinedPayload is the full room-state snapshot sent to a joiner. Users is
// the complete member list including the joiner; Code is the entire current
// document, not a diff, so late joiners reconstruct state from one message.
type JoinedPayload struct {
	RoomID string     `json:"roomId"`
	Email  string     `json:"email"`
	Users  []UserInfo `json:"users"`
	Code   string     `json:"code"`
}

type UserJoinedPayload struct {
	Email    string `json:"email"`
	SocketID string `json:"socketId"`
}

type CodeChange struct {
	RoomID         string          `json:"roomId"`
	Code           string          `json:"code"`
	CursorPosition json.RawMessage `json:"cursorPosition"`
}

type CodeChanged struct {
	Code           string          `json:"code"`
	CursorPosition json.RawMessage `json:"cursorPosition"`
	ChangedBy      string          `json:"changedBy"`
}

type CursorMove struct {
	RoomID         string          `json:"roomId"`
	CursorPosition json.RawMessage `json:"cursorPosition"`
}

type CursorMoved struct {
	CursorPosition json.RawMessage `json:"cursorPosition"`
	SocketID       string          `json:"socketId"`
	Email          string          `json:"email"`
}

type SelectionChange struct {
	RoomID    string          `json:"roomId"`
	Selection json.RawMessage `json:"selection"`
}

type SelectionChanged struct {
	Selection json.RawMessage `json:"selection"`
	SocketID  string          `json:"socketId"`
	Email     string          `json:"email"`
}

type UserDisconnected struct {
	SocketID string `json:"socketId"`
	Email    string `json:"email"`
}

/*** Signaling relays (payloads are opaque SDP/ICE blobs) ***/

type OfferRequest struct {
	To    string          `json:"to"`
	Offer json.RawMessage `json:"offer"`
}

type OfferDelivery struct {
	From  string          `json:"from"`
	Offer json.RawMessage `json:"offer"`
}

type AnswerRequest struct {
	To  string          `json:"to"`
	Ans json.RawMessage `json:"ans"`
}

type AnswerDelivery struct {
	From string          `json:"from"`
	Ans  json.RawMessage `json:"ans"`
}

type ScreenRequest struct {
	To string `json:"to"`
}

type ScreenDelivery struct {
	From string `json:"from"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

/*** Monitoring surfaces ***/

type StatusResponse struct {
	Connections int       `json:"connections"`
	Rooms       []string  `json:"rooms"`
	Timestamp   time.Time `json:"timestamp"`
}

type RoomStatus struct {
	RoomID    string     `json:"roomId"`
	UserCount int        `json:"userCount"`
	Users     []UserInfo `json:"users"`
}

// PresenceEvent is published to Redis for external monitors when room
// membership changes. Best-effort; never feeds back into coordinator state.
type PresenceEvent struct {
	Type       string    `json:"type"` // "user-joined", "user-left", "room-closed"
	RoomID     string    `json:"roomId"`
	SocketID   string    `json:"socketId,omitempty"`
	Email      string    `json:"email,omitempty"`
	InstanceID string    `json:"instanceId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ValidationError is the only participant-visible failure: it maps to an
// error{message} frame on the offending connection and nothing else.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var ErrRoomAndEmailRequired = &ValidationError{Message: "Room ID and email are required"}
