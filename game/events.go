package game

import "teamshout/api/prompts"

// Client -> server event payloads. Malformed payloads are dropped by the
// transport before they reach a room.

type JoinRoomData struct {
	Room     string `json:"room"`
	Name     string `json:"name"`
	PlayerID string `json:"playerId"`
	IsHost   bool   `json:"isHost"`
}

type GeneratePromptsData struct {
	Room       string `json:"room"`
	Theme      string `json:"theme"`
	Difficulty string `json:"difficulty"`
	NumPrompts int    `json:"numPrompts"`
}

type SubmitAnswerData struct {
	Room     string `json:"room"`
	PlayerID string `json:"playerId"`
	Answer   string `json:"answer"`
}

// Result is the structured ack returned to the caller of a room operation.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// JoinResult acks a join-room request.
type JoinResult struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Room     string `json:"room,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
}

// ServerEvent is one room-scoped broadcast (or a direct message to a single
// member), serialized to clients as {"event": ..., "data": ...}.
type ServerEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type PlayerListData struct {
	Players      []Player `json:"players"`
	HostPlayerID string   `json:"hostPlayerId"`
}

type PromptsStatusData struct {
	Status string `json:"status"`
}

type NewRoundData struct {
	Prompt  string   `json:"prompt"`
	Round   int      `json:"round"`
	Players []Player `json:"players"`
	Time    int      `json:"time"`
}

type AnswerReceivedData struct {
	Name      string `json:"name"`
	Answer    string `json:"answer"`
	IsCorrect bool   `json:"isCorrect"`
}

type ScoreEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type Award struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
	Position int    `json:"position"`
}

type RoundEndedData struct {
	Scoreboard []ScoreEntry `json:"scoreboard"`
	Awarded    []Award      `json:"awarded"`
}

type GameOverData struct {
	Players []Player `json:"players"`
}

func makePlayerList(players []Player, hostID string) ServerEvent {
	return ServerEvent{Event: "player-list", Data: PlayerListData{Players: players, HostPlayerID: hostID}}
}

func makePromptsStatus(status string) ServerEvent {
	return ServerEvent{Event: "prompts-status", Data: PromptsStatusData{Status: status}}
}

func makeGameStart() ServerEvent {
	return ServerEvent{Event: "game-start", Data: struct{}{}}
}

func makeNewRound(prompt prompts.Prompt, round int, players []Player, seconds int) ServerEvent {
	return ServerEvent{Event: "new-round", Data: NewRoundData{
		Prompt:  prompt.Text,
		Round:   round,
		Players: players,
		Time:    seconds,
	}}
}

func makeAnswerReceived(name, answer string, correct bool) ServerEvent {
	return ServerEvent{Event: "answer-received", Data: AnswerReceivedData{Name: name, Answer: answer, IsCorrect: correct}}
}

func makeRoundEnded(scoreboard []ScoreEntry, awarded []Award) ServerEvent {
	return ServerEvent{Event: "round-ended", Data: RoundEndedData{Scoreboard: scoreboard, Awarded: awarded}}
}

func makeGameOver(players []Player) ServerEvent {
	return ServerEvent{Event: "game-over", Data: GameOverData{Players: players}}
}
