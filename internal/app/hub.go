package app

import (
	"encoding/json"
	"sync"
)

// Event is one message on a session channel. The type tag is folded into
// the serialized object, so receivers can switch on msg.type directly.
type Event struct {
	Type string
	Data map[string]any
}

func (e Event) MarshalJSON() ([]byte, error) {
	payload := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		payload[k] = v
	}
	payload["type"] = e.Type
	return json.Marshal(payload)
}

// Role distinguishes the session host from joined participants.
type Role int

const (
	RoleParticipant Role = iota
	RoleHost
)

// Audience selects the recipients of a broadcast.
type Audience int

const (
	AudienceAll Audience = iota
	AudienceHost
	AudienceParticipants
)

// Client is one live connection able to receive events. Send must not
// block; it reports false when the client cannot keep up, after which the
// hub evicts and closes it.
type Client interface {
	Send(ev Event) bool
	Close()
}

// Hub maintains per-session-code rooms of live connections and routes
// broadcasts to the host, the participants, or everyone. There is no 1:1
// participant delivery in this protocol.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	hosts        map[Client]struct{}
	participants map[Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

// Join registers a connection under code. A participant joining changes the
// participant count, which is pushed to the host audience.
func (h *Hub) Join(code string, role Role, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[code]
	if !ok {
		rm = &room{
			hosts:        make(map[Client]struct{}),
			participants: make(map[Client]struct{}),
		}
		h.rooms[code] = rm
	}
	if role == RoleHost {
		rm.hosts[c] = struct{}{}
		// Bring a late-joining host up to date on the current roster size.
		ok := c.Send(Event{
			Type: "participant_count",
			Data: map[string]any{"count": len(rm.participants)},
		})
		if !ok {
			delete(rm.hosts, c)
			c.Close()
		}
		return
	}
	rm.participants[c] = struct{}{}
	h.notifyCountLocked(code, rm)
}

// Leave removes a connection from the room, dropping the room once empty.
// A departing participant triggers a participant_count update to the host.
func (h *Hub) Leave(code string, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[code]
	if !ok {
		return
	}
	if _, isHost := rm.hosts[c]; isHost {
		delete(rm.hosts, c)
	} else if _, isParticipant := rm.participants[c]; isParticipant {
		delete(rm.participants, c)
		h.notifyCountLocked(code, rm)
	}
	if len(rm.hosts) == 0 && len(rm.participants) == 0 {
		delete(h.rooms, code)
	}
}

// Broadcast fans ev out to the selected audience in the session's room.
func (h *Hub) Broadcast(code string, audience Audience, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[code]
	if !ok {
		return
	}
	if audience == AudienceAll || audience == AudienceHost {
		h.sendAllLocked(rm.hosts, ev)
	}
	if audience == AudienceAll || audience == AudienceParticipants {
		h.sendAllLocked(rm.participants, ev)
	}
}

// ParticipantCount reports the number of live participant connections.
func (h *Hub) ParticipantCount(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rm, ok := h.rooms[code]; ok {
		return len(rm.participants)
	}
	return 0
}

func (h *Hub) notifyCountLocked(code string, rm *room) {
	h.sendAllLocked(rm.hosts, Event{
		Type: "participant_count",
		Data: map[string]any{"count": len(rm.participants)},
	})
}

func (h *Hub) sendAllLocked(clients map[Client]struct{}, ev Event) {
	for c := range clients {
		if !c.Send(ev) {
			// Slow consumers are evicted rather than allowed to stall the room.
			delete(clients, c)
			c.Close()
		}
	}
}
