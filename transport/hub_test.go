package transport

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamshout/api/game"
)

func drain(t *testing.T, s *Session) []game.ServerEvent {
	t.Helper()
	var out []game.ServerEvent
	for {
		select {
		case data := <-s.out:
			var e game.ServerEvent
			require.NoError(t, json.Unmarshal(data, &e))
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestHubBroadcastReachesOnlyRoomMembers(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	a := NewSession(nil, hub, nil)
	b := NewSession(nil, hub, nil)
	other := NewSession(nil, hub, nil)

	hub.Join("shout-1", a)
	hub.Join("shout-1", b)
	hub.Join("shout-2", other)

	hub.Broadcast("shout-1", game.ServerEvent{Event: "prompts-status", Data: game.PromptsStatusData{Status: "ready"}})

	assert.Len(t, drain(t, a), 1)
	assert.Len(t, drain(t, b), 1)
	assert.Empty(t, drain(t, other))
}

func TestHubSendToTargetsBoundPlayer(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	a := NewSession(nil, hub, nil)
	a.bind("shout-1", "p-a")
	b := NewSession(nil, hub, nil)
	b.bind("shout-1", "p-b")

	hub.Join("shout-1", a)
	hub.Join("shout-1", b)

	hub.SendTo("shout-1", "p-b", game.ServerEvent{Event: "prompts-status", Data: game.PromptsStatusData{Status: "ready"}})

	assert.Empty(t, drain(t, a))
	got := drain(t, b)
	require.Len(t, got, 1)
	assert.Equal(t, "prompts-status", got[0].Event)
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	a := NewSession(nil, hub, nil)
	hub.Join("shout-1", a)
	hub.Leave("shout-1", a)
	hub.Leave("shout-1", a) // idempotent

	hub.Broadcast("shout-1", game.ServerEvent{Event: "game-start", Data: struct{}{}})
	assert.Empty(t, drain(t, a))
}

func TestMalformedEnvelopeIsIgnored(t *testing.T) {
	t.Parallel()
	s := NewSession(nil, NewHub(), nil)

	var env clientEnvelope
	assert.Error(t, json.Unmarshal([]byte("not json"), &env))

	// an envelope with an unknown event must not panic or emit anything
	s.dispatch(clientEnvelope{Event: "reboot-universe"})
	assert.Empty(t, drain(t, s))
}
