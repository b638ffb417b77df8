package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"teamshout/api/game"
)

const outboundBuffer = 64

// clientEnvelope is the wire shape of every client -> server message.
type clientEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Session is one websocket client. The read pump decodes envelopes and
// dispatches them against the room registry; the write pump drains the
// outbound queue filled by the hub.
type Session struct {
	conn     *wsConn
	hub      *Hub
	registry *game.Registry
	limiter  *rate.Limiter

	mu       sync.Mutex
	playerID string
	roomCode string

	out      chan []byte
	done     chan struct{}
	doneOnce sync.Once
}

func NewSession(conn *wsConn, hub *Hub, registry *game.Registry) *Session {
	return &Session{
		conn:     conn,
		hub:      hub,
		registry: registry,
		limiter:  rate.NewLimiter(5, 10),
		out:      make(chan []byte, outboundBuffer),
		done:     make(chan struct{}),
	}
}

func (s *Session) PlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

func (s *Session) room() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomCode, s.playerID
}

func (s *Session) bind(code, playerID string) {
	s.mu.Lock()
	s.roomCode = code
	s.playerID = playerID
	s.mu.Unlock()
}

// send queues data for the write pump without blocking; a full queue means
// the client is too slow and the frame is dropped.
func (s *Session) send(data []byte) {
	select {
	case s.out <- data:
	default:
		log.Warn().Str("player", s.PlayerID()).Msg("outbound queue full, dropping frame")
	}
}

func (s *Session) sendEvent(e game.ServerEvent) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	s.send(data)
}

// ReadPump consumes client envelopes until the socket errors, then releases
// the player's connection binding.
func (s *Session) ReadPump() {
	defer s.disconnect()

	for {
		data, err := s.conn.Read()
		if err != nil {
			return
		}
		if !s.limiter.Allow() {
			continue
		}
		var env clientEnvelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			log.Debug().Msg("ignoring malformed client frame")
			continue
		}
		s.dispatch(env)
	}
}

// WritePump forwards queued frames and keeps the connection alive with
// pings.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close("")
	}()

	for {
		select {
		case data := <-s.out:
			if err := s.conn.Write(data); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.conn.Ping(); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) disconnect() {
	s.doneOnce.Do(func() {
		code, playerID := s.room()
		if code != "" {
			if room := s.registry.Get(code); room != nil {
				room.Disconnect(playerID)
			}
			s.hub.Leave(code, s)
		}
		close(s.done)
	})
}

func (s *Session) dispatch(env clientEnvelope) {
	switch env.Event {
	case "join-room":
		var data game.JoinRoomData
		if json.Unmarshal(env.Data, &data) != nil {
			return
		}
		s.handleJoin(data)
	case "generate-prompts":
		var data game.GeneratePromptsData
		if json.Unmarshal(env.Data, &data) != nil {
			return
		}
		if room := s.registry.Get(data.Room); room != nil {
			res := room.GeneratePrompts(context.Background(), s.PlayerID(), data)
			s.sendEvent(game.ServerEvent{Event: "generate-result", Data: res})
		} else {
			s.sendEvent(game.ServerEvent{Event: "generate-result", Data: game.Result{Error: "Room missing"}})
		}
	case "start-game":
		var data struct {
			Room string `json:"room"`
		}
		if json.Unmarshal(env.Data, &data) != nil {
			return
		}
		if room := s.registry.Get(data.Room); room != nil {
			res := room.StartGame(context.Background(), s.PlayerID())
			s.sendEvent(game.ServerEvent{Event: "start-result", Data: res})
		} else {
			s.sendEvent(game.ServerEvent{Event: "start-result", Data: game.Result{Error: "Room missing"}})
		}
	case "submit-answer":
		var data game.SubmitAnswerData
		if json.Unmarshal(env.Data, &data) != nil {
			return
		}
		if data.PlayerID == "" {
			data.PlayerID = s.PlayerID()
		}
		if room := s.registry.Get(data.Room); room != nil {
			room.SubmitAnswer(data)
		}
	case "next-round":
		var data struct {
			Room string `json:"room"`
		}
		if json.Unmarshal(env.Data, &data) != nil {
			return
		}
		if room := s.registry.Get(data.Room); room != nil {
			room.NextRound(s.PlayerID())
		}
	default:
		log.Debug().Str("event", env.Event).Msg("ignoring unknown client event")
	}
}

func (s *Session) handleJoin(data game.JoinRoomData) {
	if data.PlayerID == "" {
		data.PlayerID = uuid.NewString()
	}

	room, err := s.registry.GetOrCreate(data.Room)
	if err != nil {
		s.sendEvent(game.ServerEvent{Event: "join-result", Data: game.JoinResult{Error: "Invalid room code"}})
		return
	}

	// Leave any previous room before binding to the new one.
	if prev, prevPlayer := s.room(); prev != "" && prev != data.Room {
		if old := s.registry.Get(prev); old != nil {
			old.Disconnect(prevPlayer)
		}
		s.hub.Leave(prev, s)
	}

	// Membership must be in place before Join so this session receives the
	// resulting player-list broadcast and its own direct replays.
	s.bind(data.Room, data.PlayerID)
	s.hub.Join(data.Room, s)

	res := room.Join(context.Background(), data)
	s.sendEvent(game.ServerEvent{Event: "join-result", Data: res})
}
