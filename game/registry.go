package game

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const roomCodePrefix = "shout-"

// validRoomCode checks the caller-supplied code format: the shout- prefix
// followed by a non-empty suffix.
func validRoomCode(code string) bool {
	return strings.HasPrefix(code, roomCodePrefix) && len(code) > len(roomCodePrefix)
}

// Registry owns every live room in the process, keyed by room code. Rooms
// are created on first join and remove themselves once empty past the
// grace window.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	settings Settings

	broadcaster Broadcaster
	source      PromptSource
}

func NewRegistry(settings Settings, broadcaster Broadcaster, source PromptSource) *Registry {
	return &Registry{
		rooms:       make(map[string]*Room),
		settings:    settings,
		broadcaster: broadcaster,
		source:      source,
	}
}

// GetOrCreate returns the room for code, creating and starting it when the
// code is unseen. Fails only on a malformed code.
func (reg *Registry) GetOrCreate(code string) (*Room, error) {
	if !validRoomCode(code) {
		return nil, ErrInvalidRoomCode
	}

	reg.mu.RLock()
	room, ok := reg.rooms[code]
	reg.mu.RUnlock()
	if ok {
		return room, nil
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if room, ok := reg.rooms[code]; ok {
		return room, nil
	}
	room = NewRoom(code, reg.settings, reg.broadcaster, reg.source, func() {
		reg.Remove(code)
	})
	reg.rooms[code] = room
	go room.run()
	log.Info().Str("room", code).Msg("room created")
	return room, nil
}

// Get returns the room for code, or nil when it does not exist.
func (reg *Registry) Get(code string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[code]
}

// Remove drops the room and stops its actor. Idempotent.
func (reg *Registry) Remove(code string) {
	reg.mu.Lock()
	room, ok := reg.rooms[code]
	delete(reg.rooms, code)
	reg.mu.Unlock()
	if ok {
		room.stop()
		log.Info().Str("room", code).Msg("room removed")
	}
}

// Len reports the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
