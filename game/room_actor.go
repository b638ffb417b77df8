package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// run drains the room's channels until the room is closed. It is the only
// goroutine allowed to mutate room state, which serializes every handler
// and timer callback for this room.
func (r *Room) run() {
	for {
		select {
		case <-r.closed:
			return
		case req := <-r.joins:
			r.handleJoin(req, time.Now())
		case env := <-r.inbox:
			r.handleClientEnvelope(env, time.Now())
		case playerID := <-r.removals:
			r.handleRemovePlayer(playerID, time.Now())
		case ev := <-r.timers:
			r.handleTimer(ev, time.Now())
		case res := <-r.promptResults:
			r.handlePromptResult(res, time.Now())
		}
	}
}

func (r *Room) stop() {
	r.closeOnce.Do(func() { close(r.closed) })
}

// Join registers (or re-binds) a player and returns the structured ack.
func (r *Room) Join(ctx context.Context, data JoinRoomData) JoinResult {
	reply := make(chan JoinResult, 1)
	select {
	case r.joins <- joinRequest{data: data, reply: reply}:
	case <-r.closed:
		return JoinResult{Error: ErrRoomClosed.Error()}
	case <-ctx.Done():
		return JoinResult{Error: ctx.Err().Error()}
	}
	select {
	case res := <-reply:
		return res
	case <-r.closed:
		return JoinResult{Error: ErrRoomClosed.Error()}
	case <-ctx.Done():
		return JoinResult{Error: ctx.Err().Error()}
	}
}

// GeneratePrompts asks the prompt source for a fresh set. Host only. The
// ack is immediate; completion is announced with prompts-status broadcasts.
func (r *Room) GeneratePrompts(ctx context.Context, playerID string, data GeneratePromptsData) Result {
	return r.request(ctx, clientEnvelope{from: playerID, event: data})
}

// StartGame begins round 1. Host only. When no prompt set was
// pre-generated the call blocks until a default set exists.
func (r *Room) StartGame(ctx context.Context, playerID string) Result {
	return r.request(ctx, clientEnvelope{from: playerID, event: startGameRequest{}})
}

// SubmitAnswer records a player's answer for the active round. Late,
// duplicate and out-of-round submissions are absorbed silently.
func (r *Room) SubmitAnswer(data SubmitAnswerData) {
	r.post(clientEnvelope{from: data.PlayerID, event: data})
}

// NextRound force-advances past a finished round. Host only; ignored while
// a round is active.
func (r *Room) NextRound(playerID string) {
	r.post(clientEnvelope{from: playerID, event: nextRoundRequest{}})
}

// Disconnect drops the player's live connection binding. Their score is
// retained for a rejoin.
func (r *Room) Disconnect(playerID string) {
	select {
	case r.removals <- playerID:
	case <-r.closed:
	}
}

func (r *Room) request(ctx context.Context, env clientEnvelope) Result {
	env.reply = make(chan Result, 1)
	select {
	case r.inbox <- env:
	case <-r.closed:
		return Result{Error: ErrRoomClosed.Error()}
	case <-ctx.Done():
		return Result{Error: ctx.Err().Error()}
	}
	select {
	case res := <-env.reply:
		return res
	case <-r.closed:
		return Result{Error: ErrRoomClosed.Error()}
	case <-ctx.Done():
		return Result{Error: ctx.Err().Error()}
	}
}

func (r *Room) post(env clientEnvelope) {
	select {
	case r.inbox <- env:
	case <-r.closed:
	}
}

// deliverTimer feeds a timed callback back into the actor. Dropping the
// event when the room is gone is fine: stale events are no-ops anyway.
func (r *Room) deliverTimer(ev timerEvent) {
	select {
	case r.timers <- ev:
	case <-r.closed:
	}
}

func (r *Room) scheduleRoundExpiry(roundID int) {
	time.AfterFunc(r.settings.RoundTime, func() {
		r.deliverTimer(timerEvent{kind: timerRoundExpired, roundID: roundID})
	})
}

func (r *Room) scheduleNextRound() {
	time.AfterFunc(r.settings.NextRoundDelay, func() {
		r.deliverTimer(timerEvent{kind: timerNextRound})
	})
}

func (r *Room) scheduleIdleProbe() {
	time.AfterFunc(r.settings.EmptyRoomGrace, func() {
		r.deliverTimer(timerEvent{kind: timerIdleProbe})
	})
}

// generateAsync runs the prompt source off the actor goroutine and posts
// the result back as an envelope. The handler re-validates room state when
// the result arrives.
func (r *Room) generateAsync(theme, difficulty string, count, generationID int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.settings.GenerationTimeout)
		defer cancel()
		generated := r.source.Generate(ctx, theme, difficulty, count)
		select {
		case r.promptResults <- promptResult{generationID: generationID, prompts: generated}:
		case <-r.closed:
			log.Debug().Str("room", r.code).Msg("discarding prompts for closed room")
		}
	}()
}
