package game

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

func reply(ch chan Result, res Result) {
	if ch != nil {
		ch <- res
	}
}

func (r *Room) handleJoin(req joinRequest, now time.Time) {
	data := req.data
	r.lastActive = now

	prevScore := 0
	if existing := r.playerByID(data.PlayerID); existing != nil {
		prevScore = existing.Score
		for i, p := range r.players {
			if p.PlayerID == data.PlayerID {
				r.players = append(r.players[:i], r.players[i+1:]...)
				break
			}
		}
	}
	r.players = append(r.players, &Player{Name: data.Name, PlayerID: data.PlayerID, Score: prevScore})
	r.connected[data.PlayerID] = true

	if r.hostID == "" || !r.connected[r.hostID] {
		if data.IsHost || r.hostID == "" {
			r.hostID = data.PlayerID
		}
	}

	r.broadcaster.Broadcast(r.code, makePlayerList(r.playersSnapshot(), r.hostID))

	if r.promptsReady {
		r.broadcaster.SendTo(r.code, data.PlayerID, makePromptsStatus("ready"))
	}

	// Late joiner during a live round: replay new-round with remaining time.
	if r.currentPrompt != nil && !r.roundEnded {
		remaining := r.settings.RoundTime - now.Sub(r.roundStartedAt)
		if remaining < 0 {
			remaining = 0
		}
		r.broadcaster.SendTo(r.code, data.PlayerID,
			makeNewRound(*r.currentPrompt, r.currentRound, r.playersSnapshot(), int(remaining.Seconds())))
	}

	log.Info().Str("room", r.code).Str("player", data.PlayerID).Msg("player joined")
	req.reply <- JoinResult{Success: true, Room: r.code, PlayerID: data.PlayerID}
}

func (r *Room) handleClientEnvelope(env clientEnvelope, now time.Time) {
	switch ev := env.event.(type) {
	case GeneratePromptsData:
		r.handleGeneratePrompts(env.from, ev, env.reply, now)
	case startGameRequest:
		r.handleStartGame(env.from, env.reply, now)
	case SubmitAnswerData:
		r.handleSubmitAnswer(ev, now)
	case nextRoundRequest:
		r.handleNextRound(env.from, now)
	default:
		log.Debug().Str("room", r.code).Msg("dropping unknown client event")
	}
}

func (r *Room) handleGeneratePrompts(from string, data GeneratePromptsData, replyCh chan Result, now time.Time) {
	r.lastActive = now
	if from != r.hostID {
		reply(replyCh, Result{Error: "Only host can generate prompts"})
		return
	}
	// The prompt set is fixed once the game is running; regenerating would
	// desync numRounds from the rounds already played.
	if r.gameStarted || r.pendingStart != nil {
		reply(replyCh, Result{Error: "Game already started"})
		return
	}

	theme := data.Theme
	if theme == "" {
		theme = r.settings.DefaultTheme
	}
	difficulty := data.Difficulty
	if difficulty == "" {
		difficulty = r.settings.DefaultDifficulty
	}
	count := data.NumPrompts
	if count < 1 {
		count = r.settings.DefaultNumPrompts
	}
	if count > r.settings.MaxRounds {
		count = r.settings.MaxRounds
	}

	r.promptsReady = false
	r.numRounds = count
	r.generationID++
	r.broadcaster.Broadcast(r.code, makePromptsStatus("generating"))
	r.generateAsync(theme, difficulty, count, r.generationID)
	reply(replyCh, Result{Success: true})
}

func (r *Room) handlePromptResult(res promptResult, now time.Time) {
	// A newer generation request supersedes this one; numRounds already
	// reflects the newer count, so the older set must not land.
	if res.generationID != r.generationID {
		log.Debug().Str("room", r.code).Msg("discarding superseded prompt set")
		return
	}
	// Prompts are fixed once the game is running; a result landing after
	// start (other than the one start itself is waiting on) is stale.
	if r.gameStarted && r.pendingStart == nil {
		log.Debug().Str("room", r.code).Msg("discarding prompt set, game already started")
		return
	}

	r.prompts = res.prompts
	r.promptsReady = true
	r.broadcaster.Broadcast(r.code, makePromptsStatus("ready"))
	log.Info().Str("room", r.code).Int("prompts", len(res.prompts)).Msg("prompts ready")

	if r.pendingStart != nil {
		replyCh := r.pendingStart
		r.pendingStart = nil
		r.beginGame(replyCh, now)
	}
}

func (r *Room) handleStartGame(from string, replyCh chan Result, now time.Time) {
	r.lastActive = now
	if from != r.hostID {
		reply(replyCh, Result{Error: "Only host can start"})
		return
	}
	if r.gameStarted || r.pendingStart != nil {
		reply(replyCh, Result{Error: "Game already started"})
		return
	}

	if !r.promptsReady {
		// No pre-generated set; build a default one before round 1. The
		// ack is held until the set exists.
		r.numRounds = r.settings.DefaultNumPrompts
		r.generationID++
		r.broadcaster.Broadcast(r.code, makePromptsStatus("generating"))
		r.generateAsync(r.settings.DefaultTheme, r.settings.DefaultDifficulty, r.settings.DefaultNumPrompts, r.generationID)
		r.pendingStart = replyCh
		return
	}
	r.beginGame(replyCh, now)
}

func (r *Room) beginGame(replyCh chan Result, now time.Time) {
	r.gameStarted = true
	r.gameEnded = false
	r.currentRound = 0
	r.roundID = 0
	r.roundEnded = false
	r.answers = make(map[string]submission)
	r.answerOrder = nil

	log.Info().Str("room", r.code).Str("host", r.hostID).Int("rounds", r.numRounds).Msg("game starting")
	r.broadcaster.Broadcast(r.code, makeGameStart())
	r.startRound(now)
	reply(replyCh, Result{Success: true})
}

func (r *Room) startRound(now time.Time) {
	if r.currentRound >= r.numRounds || r.currentRound >= len(r.prompts) {
		r.gameEnded = true
		r.phase = PHASE_GAME_OVER
		r.broadcaster.Broadcast(r.code, makeGameOver(r.playersSnapshot()))
		return
	}

	r.answers = make(map[string]submission)
	r.answerOrder = nil
	r.roundEnded = false
	r.roundID++

	prompt := r.prompts[r.currentRound]
	r.currentPrompt = &prompt
	r.currentRound++
	r.roundStartedAt = now
	r.phase = PHASE_ROUND_ACTIVE

	log.Info().Str("room", r.code).Int("round", r.currentRound).Str("prompt", prompt.Text).Msg("round started")
	r.broadcaster.Broadcast(r.code,
		makeNewRound(prompt, r.currentRound, r.playersSnapshot(), int(r.settings.RoundTime.Seconds())))
	r.scheduleRoundExpiry(r.roundID)
}

func (r *Room) handleSubmitAnswer(data SubmitAnswerData, now time.Time) {
	r.lastActive = now
	if !r.gameStarted || r.currentPrompt == nil || r.roundEnded {
		return
	}
	if _, already := r.answers[data.PlayerID]; already {
		return
	}
	player := r.playerByID(data.PlayerID)
	if player == nil {
		return
	}

	raw := strings.TrimSpace(data.Answer)
	sub := submission{
		playerID: data.PlayerID,
		at:       now,
		correct:  r.currentPrompt.Accepts(raw),
		raw:      raw,
	}
	r.answers[data.PlayerID] = sub
	r.answerOrder = append(r.answerOrder, sub)

	r.broadcaster.Broadcast(r.code, makeAnswerReceived(player.Name, raw, sub.correct))

	if r.allConnectedAnswered() {
		r.endRound(now, "all-answered")
	}
}

func (r *Room) allConnectedAnswered() bool {
	n := 0
	for pid, live := range r.connected {
		if !live {
			continue
		}
		if _, ok := r.answers[pid]; !ok {
			return false
		}
		n++
	}
	return n > 0
}

func (r *Room) handleNextRound(from string, now time.Time) {
	r.lastActive = now
	if from != r.hostID {
		return
	}
	if !r.gameStarted || r.gameEnded {
		return
	}
	if r.currentPrompt != nil && !r.roundEnded {
		return
	}
	r.startRound(now)
}

// endRound is the single finalization point for a round. The roundEnded
// check-and-set runs inside the actor, so whichever trigger arrives first
// (expiry timer or last answer) wins and the other is a no-op.
func (r *Room) endRound(now time.Time, reason string) {
	if r.roundEnded {
		return
	}
	r.roundEnded = true
	r.phase = PHASE_ROUND_ENDED

	awarded := applyScoring(r.answerOrder, r.players)
	log.Info().Str("room", r.code).Int("round", r.currentRound).Str("reason", reason).
		Int("awards", len(awarded)).Msg("round ended")
	r.broadcaster.Broadcast(r.code, makeRoundEnded(r.scoreboard(), awarded))

	if r.currentRound >= r.numRounds {
		r.gameEnded = true
		r.phase = PHASE_GAME_OVER
		log.Info().Str("room", r.code).Msg("game over")
		r.broadcaster.Broadcast(r.code, makeGameOver(r.playersSnapshot()))
		return
	}
	r.scheduleNextRound()
}

func (r *Room) handleTimer(ev timerEvent, now time.Time) {
	switch ev.kind {
	case timerRoundExpired:
		if ev.roundID != r.roundID || r.roundEnded {
			return
		}
		r.endRound(now, "timer")
	case timerNextRound:
		if !r.gameStarted || r.gameEnded {
			return
		}
		if r.currentPrompt != nil && !r.roundEnded {
			return
		}
		r.startRound(now)
	case timerIdleProbe:
		if r.connectedCount() > 0 {
			return
		}
		log.Info().Str("room", r.code).Msg("room empty past grace window, cleaning up")
		if r.onEmpty != nil {
			r.onEmpty()
		}
		r.stop()
	}
}

func (r *Room) handleRemovePlayer(playerID string, now time.Time) {
	r.lastActive = now
	delete(r.connected, playerID)

	if r.hostID == playerID {
		// Earliest-joined connected player becomes the new host, so the
		// choice is deterministic.
		r.hostID = ""
		for _, p := range r.players {
			if r.connected[p.PlayerID] {
				r.hostID = p.PlayerID
				break
			}
		}
	}

	r.broadcaster.Broadcast(r.code, makePlayerList(r.playersSnapshot(), r.hostID))

	if r.connectedCount() == 0 {
		r.scheduleIdleProbe()
	}
}
