package game

import (
	"context"

	"teamshout/api/prompts"
)

// Broadcaster fans events out to the members of a room. Broadcast reaches
// every member, SendTo only the member currently bound to playerID. Both
// must be safe for concurrent use and must never block the caller.
type Broadcaster interface {
	Broadcast(code string, e ServerEvent)
	SendTo(code, playerID string, e ServerEvent)
}

// PromptSource produces exactly count well-formed prompts. Implementations
// recover upstream failures internally (fallback pool), so there is no
// error path; the call may take substantial time.
type PromptSource interface {
	Generate(ctx context.Context, theme, difficulty string, count int) []prompts.Prompt
}
