package state

import "codesync/internal/models"

// DefaultDocument is the placeholder content of a freshly created room.
const DefaultDocument = "// Start coding here..."

// State bundles the three tables behind the coordinator: the session
// directory (socket -> participant), room membership (room -> ordered
// members), and the shared document store (room -> latest code).
//
// State is not safe for concurrent use. The coordinator owns every instance
// and serializes all access; nothing else may touch the tables. Tests
// construct isolated instances directly.
type State struct {
	sessions map[string]models.Participant
	rooms    map[string]*memberList
	docs     map[string]string
}

func New() *State {
	return &State{
		sessions: make(map[string]models.Participant),
		rooms:    make(map[string]*memberList),
		docs:     make(map[string]string),
	}
}

// memberList keeps participants in insertion order. The order of the member
// list returned on join is part of the observable contract, so a bare map
// is not enough.
type memberList struct {
	order   []string
	members map[string]models.Participant
}

func newMemberList() *memberList {
	return &memberList{members: make(map[string]models.Participant)}
}

/*** Session directory ***/

func (s *State) Register(p models.Participant) {
	s.sessions[p.SocketID] = p
}

func (s *State) Lookup(socketID string) (models.Participant, bool) {
	p, ok := s.sessions[socketID]
	return p, ok
}

func (s *State) Remove(socketID string) {
	delete(s.sessions, socketID)
}

func (s *State) SessionCount() int { return len(s.sessions) }

/*** Room membership ***/

// EnsureRoom creates the room with an empty member set and the default
// document if it does not exist yet. No-op otherwise.
func (s *State) EnsureRoom(roomID string) {
	if _, ok := s.rooms[roomID]; ok {
		return
	}
	s.rooms[roomID] = newMemberList()
	if _, ok := s.docs[roomID]; !ok {
		s.docs[roomID] = DefaultDocument
	}
}

func (s *State) AddMember(roomID string, p models.Participant) {
	room, ok := s.rooms[roomID]
	if !ok {
		return
	}
	if _, exists := room.members[p.SocketID]; !exists {
		room.order = append(room.order, p.SocketID)
	}
	room.members[p.SocketID] = p
}

// RemoveMember removes the socket from the room and returns the remaining
// member count. Removing from an unknown room or an absent member is a
// harmless no-op so that disconnect cleanup stays idempotent.
func (s *State) RemoveMember(roomID, socketID string) int {
	room, ok := s.rooms[roomID]
	if !ok {
		return 0
	}
	if _, exists := room.members[socketID]; exists {
		delete(room.members, socketID)
		for i, id := range room.order {
			if id == socketID {
				room.order = append(room.order[:i], room.order[i+1:]...)
				break
			}
		}
	}
	return len(room.members)
}

// ListMembers returns the room's participants in insertion order.
func (s *State) ListMembers(roomID string) []models.Participant {
	room, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]models.Participant, 0, len(room.members))
	for _, id := range room.order {
		out = append(out, room.members[id])
	}
	return out
}

func (s *State) RoomExists(roomID string) bool {
	_, ok := s.rooms[roomID]
	return ok
}

func (s *State) DeleteRoom(roomID string) {
	delete(s.rooms, roomID)
}

func (s *State) RoomIDs() []string {
	out := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}
	return out
}

/*** Shared document store ***/

// Document returns the latest known code for the room, or the placeholder
// when nothing has been stored.
func (s *State) Document(roomID string) string {
	if doc, ok := s.docs[roomID]; ok {
		return doc
	}
	return DefaultDocument
}

// SetDocument replaces the room's content. Last writer wins; there is no
// merge and deliberately no operational transform.
func (s *State) SetDocument(roomID, content string) {
	s.docs[roomID] = content
}

func (s *State) ClearDocument(roomID string) {
	delete(s.docs, roomID)
}
