package transport

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"teamshout/api/game"
)

// Hub is the room-scoped publish primitive: it tracks which sessions are
// members of which room and fans server events out to them. It implements
// game.Broadcaster.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Session]struct{})}
}

func (h *Hub) Join(code string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[code] == nil {
		h.rooms[code] = make(map[*Session]struct{})
	}
	h.rooms[code][s] = struct{}{}
}

func (h *Hub) Leave(code string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[code]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
}

// Broadcast sends the event to every member of the room. Slow members are
// skipped rather than blocking the caller; their write pump will close the
// connection when it falls too far behind.
func (h *Hub) Broadcast(code string, e game.ServerEvent) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("room", code).Str("event", e.Event).Msg("dropping unencodable event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[code] {
		s.send(data)
	}
}

// SendTo sends the event only to the session currently bound to playerID.
func (h *Hub) SendTo(code, playerID string, e game.ServerEvent) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("room", code).Str("event", e.Event).Msg("dropping unencodable event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[code] {
		if s.PlayerID() == playerID {
			s.send(data)
		}
	}
}
