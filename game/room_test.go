package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"teamshout/api/prompts"
)

// recordedEvent is one emission captured by the recording broadcaster;
// to is empty for room-wide broadcasts.
type recordedEvent struct {
	to    string
	event ServerEvent
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) Broadcast(code string, e ServerEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{event: e})
}

func (b *recordingBroadcaster) SendTo(code, playerID string, e ServerEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{to: playerID, event: e})
}

// take returns everything recorded so far and resets the log.
func (b *recordingBroadcaster) take() []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

func (b *recordingBroadcaster) count(eventName string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, rec := range b.events {
		if rec.event.Event == eventName {
			n++
		}
	}
	return n
}

func (b *recordingBroadcaster) last(eventName string) (ServerEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].event.Event == eventName {
			return b.events[i].event, true
		}
	}
	return ServerEvent{}, false
}

type stubSource struct {
	prompts []prompts.Prompt
}

func (s stubSource) Generate(ctx context.Context, theme, difficulty string, count int) []prompts.Prompt {
	return prompts.Normalize(s.prompts, count)
}

func testSettings() Settings {
	return Settings{
		MaxRounds:         15,
		RoundTime:         10 * time.Second,
		NextRoundDelay:    time.Hour,
		EmptyRoomGrace:    time.Hour,
		DefaultTheme:      "general",
		DefaultDifficulty: "easy",
		DefaultNumPrompts: 10,
		GenerationTimeout: time.Second,
	}
}

// newBenchRoom builds a room whose handlers are driven directly by the
// test, without the actor goroutine, so every step is deterministic.
func newBenchRoom(settings Settings, rec *recordingBroadcaster) *Room {
	return NewRoom("shout-test", settings, rec, stubSource{}, nil)
}

func joinSync(r *Room, data JoinRoomData, now time.Time) JoinResult {
	reply := make(chan JoinResult, 1)
	r.handleJoin(joinRequest{data: data, reply: reply}, now)
	return <-reply
}

func TestRoomGameScenario(t *testing.T) {
	t.Parallel()
	rec := &recordingBroadcaster{}
	r := newBenchRoom(testSettings(), rec)
	t0 := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	alice := Player{Name: "alice", PlayerID: "a1"}
	bob := Player{Name: "bob", PlayerID: "b1"}

	testCases := []struct {
		desc     string
		action   func(t *testing.T)
		expected []recordedEvent
	}{
		{
			desc: "alice joins and becomes host",
			action: func(t *testing.T) {
				res := joinSync(r, JoinRoomData{Room: "shout-test", Name: "alice", PlayerID: "a1", IsHost: true}, t0)
				assert.True(t, res.Success)
				assert.Equal(t, "a1", res.PlayerID)
			},
			expected: []recordedEvent{
				{event: makePlayerList([]Player{alice}, "a1")},
			},
		},
		{
			desc: "bob joins",
			action: func(t *testing.T) {
				res := joinSync(r, JoinRoomData{Room: "shout-test", Name: "bob", PlayerID: "b1"}, t0)
				assert.True(t, res.Success)
			},
			expected: []recordedEvent{
				{event: makePlayerList([]Player{alice, bob}, "a1")},
			},
		},
		{
			desc: "bob cannot start the game",
			action: func(t *testing.T) {
				reply := make(chan Result, 1)
				r.handleStartGame("b1", reply, t0)
				assert.Equal(t, Result{Error: "Only host can start"}, <-reply)
			},
			expected: []recordedEvent{},
		},
		{
			desc: "alice starts with a two-round prompt set",
			action: func(t *testing.T) {
				r.prompts = []prompts.Prompt{
					{Text: "Say a color", Answers: []string{"red"}},
					{Text: "Say a number", Answers: []string{"one"}},
				}
				r.promptsReady = true
				r.numRounds = 2

				reply := make(chan Result, 1)
				r.handleStartGame("a1", reply, t0)
				assert.Equal(t, Result{Success: true}, <-reply)
				assert.Equal(t, 1, r.roundID)
			},
			expected: []recordedEvent{
				{event: makeGameStart()},
				{event: makeNewRound(prompts.Prompt{Text: "Say a color", Answers: []string{"red"}}, 1, []Player{alice, bob}, 10)},
			},
		},
		{
			desc: "alice answers correctly, case-insensitive",
			action: func(t *testing.T) {
				r.handleSubmitAnswer(SubmitAnswerData{PlayerID: "a1", Answer: "Red"}, t0.Add(time.Second))
			},
			expected: []recordedEvent{
				{event: makeAnswerReceived("alice", "Red", true)},
			},
		},
		{
			desc: "bob answers wrong, everyone answered, round ends with 5 points for alice",
			action: func(t *testing.T) {
				r.handleSubmitAnswer(SubmitAnswerData{PlayerID: "b1", Answer: "blue"}, t0.Add(2*time.Second))
				assert.True(t, r.roundEnded)
			},
			expected: []recordedEvent{
				{event: makeAnswerReceived("bob", "blue", false)},
				{event: makeRoundEnded(
					[]ScoreEntry{{Name: "alice", Score: 5}, {Name: "bob", Score: 0}},
					[]Award{{PlayerID: "a1", Name: "alice", Points: 5, Position: 1}},
				)},
			},
		},
		{
			desc: "late expiry timer for the finished round is a no-op",
			action: func(t *testing.T) {
				r.handleTimer(timerEvent{kind: timerRoundExpired, roundID: 1}, t0.Add(10*time.Second))
			},
			expected: []recordedEvent{},
		},
		{
			desc: "delayed continuation starts round two",
			action: func(t *testing.T) {
				r.handleTimer(timerEvent{kind: timerNextRound}, t0.Add(4*time.Second))
				assert.Equal(t, 2, r.roundID)
			},
			expected: []recordedEvent{
				{event: makeNewRound(prompts.Prompt{Text: "Say a number", Answers: []string{"one"}},
					2, []Player{{Name: "alice", PlayerID: "a1", Score: 5}, bob}, 10)},
			},
		},
		{
			desc: "forcing next round while one is active is ignored",
			action: func(t *testing.T) {
				r.handleNextRound("a1", t0.Add(5*time.Second))
				assert.Equal(t, 2, r.roundID)
			},
			expected: []recordedEvent{},
		},
		{
			desc: "alice answers wrong in round two",
			action: func(t *testing.T) {
				r.handleSubmitAnswer(SubmitAnswerData{PlayerID: "a1", Answer: "seven"}, t0.Add(5*time.Second))
			},
			expected: []recordedEvent{
				{event: makeAnswerReceived("alice", "seven", false)},
			},
		},
		{
			desc: "her second answer this round is dropped even though it is correct",
			action: func(t *testing.T) {
				r.handleSubmitAnswer(SubmitAnswerData{PlayerID: "a1", Answer: "one"}, t0.Add(6*time.Second))
				assert.Len(t, r.answerOrder, 1)
			},
			expected: []recordedEvent{},
		},
		{
			desc: "round two times out, nothing awarded, game over",
			action: func(t *testing.T) {
				r.handleTimer(timerEvent{kind: timerRoundExpired, roundID: 2}, t0.Add(14*time.Second))
			},
			expected: []recordedEvent{
				{event: makeRoundEnded(
					[]ScoreEntry{{Name: "alice", Score: 5}, {Name: "bob", Score: 0}},
					[]Award{},
				)},
				{event: makeGameOver([]Player{{Name: "alice", PlayerID: "a1", Score: 5}, bob})},
			},
		},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			tC.action(t)
			assert.Equal(t, tC.expected, append([]recordedEvent{}, rec.take()...))
		})
	}
}

func TestRoundEndsExactlyOnceUnderBothTriggers(t *testing.T) {
	t.Parallel()
	rec := &recordingBroadcaster{}
	r := newBenchRoom(testSettings(), rec)
	t0 := time.Now()

	joinSync(r, JoinRoomData{Room: "shout-test", Name: "alice", PlayerID: "a1", IsHost: true}, t0)
	r.prompts = []prompts.Prompt{{Text: "Say a color", Answers: []string{"red"}}}
	r.promptsReady = true
	r.numRounds = 1

	reply := make(chan Result, 1)
	r.handleStartGame("a1", reply, t0)
	<-reply
	rec.take()

	// all-answered fires first, then the expiry timer for the same round
	r.handleSubmitAnswer(SubmitAnswerData{PlayerID: "a1", Answer: "red"}, t0.Add(time.Second))
	r.handleTimer(timerEvent{kind: timerRoundExpired, roundID: r.roundID}, t0.Add(10*time.Second))

	assert.Equal(t, 1, rec.count("round-ended"))
	assert.Equal(t, 5, r.playerByID("a1").Score, "scoring must run exactly once")
}

func TestStaleTimerNeverEndsTheNextRound(t *testing.T) {
	t.Parallel()
	rec := &recordingBroadcaster{}
	r := newBenchRoom(testSettings(), rec)
	t0 := time.Now()

	joinSync(r, JoinRoomData{Room: "shout-test", Name: "alice", PlayerID: "a1", IsHost: true}, t0)
	r.prompts = []prompts.Prompt{
		{Text: "Say a color", Answers: []string{"red"}},
		{Text: "Say a number", Answers: []string{"one"}},
	}
	r.promptsReady = true
	r.numRounds = 2

	reply := make(chan Result, 1)
	r.handleStartGame("a1", reply, t0)
	<-reply

	r.handleSubmitAnswer(SubmitAnswerData{PlayerID: "a1", Answer: "red"}, t0.Add(time.Second))
	staleID := r.roundID
	r.handleTimer(timerEvent{kind: timerNextRound}, t0.Add(3*time.Second))
	rec.take()

	r.handleTimer(timerEvent{kind: timerRoundExpired, roundID: staleID}, t0.Add(11*time.Second))

	assert.False(t, r.roundEnded, "round two must still be live")
	assert.Empty(t, rec.take())
}

func TestAllAnsweredCountsOnlyConnectedPlayers(t *testing.T) {
	t.Parallel()
	rec := &recordingBroadcaster{}
	r := newBenchRoom(testSettings(), rec)
	t0 := time.Now()

	joinSync(r, JoinRoomData{Room: "shout-test", Name: "alice", PlayerID: "a1", IsHost: true}, t0)
	joinSync(r, JoinRoomData{Room: "shout-test", Name: "bob", PlayerID: "b1"}, t0)
	joinSync(r, JoinRoomData{Room: "shout-test", Name: "carol", PlayerID: "c1"}, t0)
	r.prompts = []prompts.Prompt{{Text: "Say a color", Answers: []string{"red"}}}
	r.promptsReady = true
	r.numRounds = 1

	reply := make(chan Result, 1)
	r.handleStartGame("a1", reply, t0)
	<-reply

	r.handleRemovePlayer("c1", t0.Add(time.Second))
	r.handleSubmitAnswer(SubmitAnswerData{PlayerID: "a1", Answer: "red"}, t0.Add(2*time.Second))
	assert.False(t, r.roundEnded)

	r.handleSubmitAnswer(SubmitAnswerData{PlayerID: "b1", Answer: "red"}, t0.Add(3*time.Second))
	assert.True(t, r.roundEnded, "both connected players answered")
}

func TestHostReassignmentPicksEarliestJoinedConnectedPlayer(t *testing.T) {
	t.Parallel()
	rec := &recordingBroadcaster{}
	r := newBenchRoom(testSettings(), rec)
	t0 := time.Now()

	joinSync(r, JoinRoomData{Room: "shout-test", Name: "alice", PlayerID: "a1", IsHost: true}, t0)
	joinSync(r, JoinRoomData{Room: "shout-test", Name: "bob", PlayerID: "b1"}, t0)
	joinSync(r, JoinRoomData{Room: "shout-test", Name: "carol", PlayerID: "c1"}, t0)

	r.handleRemovePlayer("a1", t0.Add(time.Second))
	assert.Equal(t, "b1", r.hostID)

	r.handleRemovePlayer("b1", t0.Add(2*time.Second))
	assert.Equal(t, "c1", r.hostID)

	r.handleRemovePlayer("c1", t0.Add(3*time.Second))
	assert.Equal(t, "", r.hostID)
}

func TestRejoinKeepsScoreAndRebindsConnection(t *testing.T) {
	t.Parallel()
	rec := &recordingBroadcaster{}
	r := newBenchRoom(testSettings(), rec)
	t0 := time.Now()

	joinSync(r, JoinRoomData{Room: "shout-test", Name: "alice", PlayerID: "a1", IsHost: true}, t0)
	r.playerByID("a1").Score = 8
	r.handleRemovePlayer("a1", t0.Add(time.Second))

	res := joinSync(r, JoinRoomData{Room: "shout-test", Name: "alice", PlayerID: "a1"}, t0.Add(2*time.Second))
	assert.True(t, res.Success)
	assert.Equal(t, 8, r.playerByID("a1").Score)
	assert.True(t, r.connected["a1"])
	assert.Len(t, r.players, 1)
}

func TestLateJoinerGetsRemainingRoundTime(t *testing.T) {
	t.Parallel()
	rec := &recordingBroadcaster{}
	r := newBenchRoom(testSettings(), rec)
	t0 := time.Now()

	joinSync(r, JoinRoomData{Room: "shout-test", Name: "alice", PlayerID: "a1", IsHost: true}, t0)
	r.prompts = []prompts.Prompt{{Text: "Say a color", Answers: []string{"red"}}}
	r.promptsReady = true
	r.numRounds = 1

	reply := make(chan Result, 1)
	r.handleStartGame("a1", reply, t0)
	<-reply
	rec.take()

	joinSync(r, JoinRoomData{Room: "shout-test", Name: "bob", PlayerID: "b1"}, t0.Add(4*time.Second))

	events := rec.take()
	assert.Len(t, events, 3, "player-list, prompts-status replay and new-round replay")
	assert.Equal(t, "b1", events[2].to)
	data, ok := events[2].event.Data.(NewRoundData)
	assert.True(t, ok)
	assert.Equal(t, 6, data.Time)
}

func TestStartGeneratesDefaultsWhenNoPromptsWereRequested(t *testing.T) {
	t.Parallel()
	rec := &recordingBroadcaster{}
	settings := testSettings()
	settings.DefaultNumPrompts = 3
	r := NewRoom("shout-test", settings, rec, stubSource{}, nil)
	t0 := time.Now()

	joinSync(r, JoinRoomData{Room: "shout-test", Name: "alice", PlayerID: "a1", IsHost: true}, t0)

	reply := make(chan Result, 1)
	r.handleStartGame("a1", reply, t0)
	select {
	case <-reply:
		t.Fatal("start must be held until a prompt set exists")
	default:
	}

	res := <-r.promptResults
	r.handlePromptResult(res, t0.Add(time.Second))
	assert.Equal(t, Result{Success: true}, <-reply)

	assert.True(t, r.gameStarted)
	assert.Equal(t, 3, r.numRounds)
	assert.Len(t, r.prompts, 3)
	assert.Equal(t, 1, rec.count("game-start"))
	assert.Equal(t, 1, rec.count("new-round"))

	// second start is rejected
	reply2 := make(chan Result, 1)
	r.handleStartGame("a1", reply2, t0.Add(2*time.Second))
	assert.Equal(t, Result{Error: "Game already started"}, <-reply2)
}

func TestPromptSetArrivingAfterStartIsDiscarded(t *testing.T) {
	t.Parallel()
	rec := &recordingBroadcaster{}
	r := newBenchRoom(testSettings(), rec)
	t0 := time.Now()

	joinSync(r, JoinRoomData{Room: "shout-test", Name: "alice", PlayerID: "a1", IsHost: true}, t0)
	fixed := []prompts.Prompt{{Text: "Say a color", Answers: []string{"red"}}}
	r.prompts = fixed
	r.promptsReady = true
	r.numRounds = 1

	reply := make(chan Result, 1)
	r.handleStartGame("a1", reply, t0)
	<-reply

	r.handlePromptResult(promptResult{prompts: []prompts.Prompt{{Text: "Different", Answers: []string{"x"}}}}, t0.Add(time.Second))
	assert.Equal(t, fixed, r.prompts, "prompt set is fixed once the game is running")
}

func TestGeneratePromptsRejectedOnceGameStarted(t *testing.T) {
	t.Parallel()
	rec := &recordingBroadcaster{}
	r := newBenchRoom(testSettings(), rec)
	t0 := time.Now()

	joinSync(r, JoinRoomData{Room: "shout-test", Name: "alice", PlayerID: "a1", IsHost: true}, t0)
	r.prompts = []prompts.Prompt{
		{Text: "Say a color", Answers: []string{"red"}},
		{Text: "Say a number", Answers: []string{"one"}},
		{Text: "Say a shape", Answers: []string{"circle"}},
	}
	r.promptsReady = true
	r.numRounds = 3

	reply := make(chan Result, 1)
	r.handleStartGame("a1", reply, t0)
	<-reply
	rec.take()

	// regenerating mid-game must not touch the running game's prompt set
	reply2 := make(chan Result, 1)
	r.handleGeneratePrompts("a1", GeneratePromptsData{NumPrompts: 1}, reply2, t0.Add(time.Second))
	assert.Equal(t, Result{Error: "Game already started"}, <-reply2)
	assert.Equal(t, 3, r.numRounds)
	assert.True(t, r.promptsReady)
	assert.Empty(t, rec.take(), "rejected request must not broadcast prompts-status")

	r.handleTimer(timerEvent{kind: timerRoundExpired, roundID: r.roundID}, t0.Add(11*time.Second))
	assert.False(t, r.gameEnded, "game must run all three rounds")
	assert.Equal(t, 1, rec.count("round-ended"))
	assert.Equal(t, 0, rec.count("game-over"))
}

func TestSupersededPromptSetIsDiscarded(t *testing.T) {
	t.Parallel()
	rec := &recordingBroadcaster{}
	r := newBenchRoom(testSettings(), rec)
	t0 := time.Now()

	joinSync(r, JoinRoomData{Room: "shout-test", Name: "alice", PlayerID: "a1", IsHost: true}, t0)

	reply1 := make(chan Result, 1)
	r.handleGeneratePrompts("a1", GeneratePromptsData{NumPrompts: 2}, reply1, t0)
	<-reply1
	reply2 := make(chan Result, 1)
	r.handleGeneratePrompts("a1", GeneratePromptsData{NumPrompts: 3}, reply2, t0)
	<-reply2
	rec.take()

	stale := <-r.promptResults
	fresh := <-r.promptResults
	if stale.generationID > fresh.generationID {
		stale, fresh = fresh, stale
	}

	r.handlePromptResult(stale, t0.Add(time.Second))
	assert.False(t, r.promptsReady, "set from the superseded request must not land")

	r.handlePromptResult(fresh, t0.Add(2*time.Second))
	assert.True(t, r.promptsReady)
	assert.Len(t, r.prompts, r.numRounds)
	assert.Equal(t, 1, rec.count("prompts-status"))

	// a straggler copy of the old set changes nothing
	r.handlePromptResult(stale, t0.Add(3*time.Second))
	assert.Len(t, r.prompts, 3)
}

func TestGeneratePromptsClampsRequestedCount(t *testing.T) {
	t.Parallel()
	rec := &recordingBroadcaster{}
	r := newBenchRoom(testSettings(), rec)
	t0 := time.Now()

	joinSync(r, JoinRoomData{Room: "shout-test", Name: "alice", PlayerID: "a1", IsHost: true}, t0)

	reply := make(chan Result, 1)
	r.handleGeneratePrompts("a1", GeneratePromptsData{NumPrompts: 99}, reply, t0)
	assert.Equal(t, Result{Success: true}, <-reply)
	assert.Equal(t, 15, r.numRounds)

	res := <-r.promptResults
	assert.Len(t, res.prompts, 15)

	reply2 := make(chan Result, 1)
	r.handleGeneratePrompts("b1", GeneratePromptsData{NumPrompts: 5}, reply2, t0)
	assert.Equal(t, Result{Error: "Only host can generate prompts"}, <-reply2)
}
