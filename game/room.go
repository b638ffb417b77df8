package game

import (
	"sync"
	"time"

	"teamshout/api/prompts"
)

type Phase int

const (
	PHASE_LOBBY Phase = iota
	PHASE_ROUND_ACTIVE
	PHASE_ROUND_ENDED
	PHASE_GAME_OVER
)

// Settings are the per-process game constants, injected at room creation.
type Settings struct {
	MaxRounds         int
	RoundTime         time.Duration
	NextRoundDelay    time.Duration
	EmptyRoomGrace    time.Duration
	DefaultTheme      string
	DefaultDifficulty string
	DefaultNumPrompts int
	GenerationTimeout time.Duration
}

// Player is one room member. Score is cumulative across rounds and only
// ever grows, and only through round finalization.
type Player struct {
	Name     string `json:"name"`
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
}

// submission is one answer event. answerOrder keeps these append-only
// within a round and is the authoritative input to scoring.
type submission struct {
	playerID string
	at       time.Time
	correct  bool
	raw      string
}

type joinRequest struct {
	data  JoinRoomData
	reply chan JoinResult
}

// clientEnvelope carries one client event into the room actor. event is one
// of GeneratePromptsData, startGameRequest, SubmitAnswerData or
// nextRoundRequest; reply may be nil for fire-and-forget events.
type clientEnvelope struct {
	from  string
	event any
	reply chan Result
}

type startGameRequest struct{}
type nextRoundRequest struct{}

type timerKind int

const (
	timerRoundExpired timerKind = iota
	timerNextRound
	timerIdleProbe
)

// timerEvent is a timed callback delivered into the actor. roundID is the
// token captured when the timer was scheduled; a mismatch with the room's
// live roundID marks the event as stale.
type timerEvent struct {
	kind    timerKind
	roundID int
}

// promptResult carries a finished generation back into the actor.
// generationID is the token captured when the generation was requested; a
// mismatch with the room's live generationID marks the set as superseded.
type promptResult struct {
	generationID int
	prompts      []prompts.Prompt
}

// Room is one isolated game session. All fields are owned by the actor
// goroutine draining the channels below; nothing outside the handle*
// methods may touch them.
type Room struct {
	code     string
	settings Settings

	broadcaster Broadcaster
	source      PromptSource
	onEmpty     func()

	// players keeps join order; connection bindings are tracked separately
	// so a disconnected player keeps their accumulated score.
	players   []*Player
	hostID    string
	connected map[string]bool

	prompts      []prompts.Prompt
	promptsReady bool
	numRounds    int
	generationID int

	phase          Phase
	currentRound   int
	roundID        int
	currentPrompt  *prompts.Prompt
	roundStartedAt time.Time
	roundEnded     bool
	gameStarted    bool
	gameEnded      bool
	answers        map[string]submission
	answerOrder    []submission
	lastActive     time.Time

	// set while a start-game waits for a default prompt set
	pendingStart chan Result

	joins         chan joinRequest
	inbox         chan clientEnvelope
	removals      chan string
	timers        chan timerEvent
	promptResults chan promptResult

	closed    chan struct{}
	closeOnce sync.Once
}

// NewRoom builds a room in the lobby phase. onEmpty is called from the
// actor once the room has been empty for the grace window; it must remove
// the room from its registry.
func NewRoom(code string, settings Settings, broadcaster Broadcaster, source PromptSource, onEmpty func()) *Room {
	return &Room{
		code:          code,
		settings:      settings,
		broadcaster:   broadcaster,
		source:        source,
		onEmpty:       onEmpty,
		connected:     make(map[string]bool),
		numRounds:     settings.DefaultNumPrompts,
		phase:         PHASE_LOBBY,
		answers:       make(map[string]submission),
		joins:         make(chan joinRequest),
		inbox:         make(chan clientEnvelope, 256),
		removals:      make(chan string, 64),
		timers:        make(chan timerEvent, 16),
		promptResults: make(chan promptResult, 4),
		closed:        make(chan struct{}),
	}
}

func (r *Room) Code() string { return r.code }

func (r *Room) playerByID(id string) *Player {
	for _, p := range r.players {
		if p.PlayerID == id {
			return p
		}
	}
	return nil
}

func (r *Room) connectedCount() int {
	n := 0
	for _, live := range r.connected {
		if live {
			n++
		}
	}
	return n
}

// playersSnapshot copies the player list so broadcast payloads cannot race
// with later score mutations.
func (r *Room) playersSnapshot() []Player {
	out := make([]Player, len(r.players))
	for i, p := range r.players {
		out[i] = *p
	}
	return out
}

func (r *Room) scoreboard() []ScoreEntry {
	out := make([]ScoreEntry, len(r.players))
	for i, p := range r.players {
		out[i] = ScoreEntry{Name: p.Name, Score: p.Score}
	}
	return out
}
