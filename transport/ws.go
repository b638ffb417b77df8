package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"teamshout/api/game"
)

// Handler upgrades clients onto the game's websocket channel.
type Handler struct {
	hub      *Hub
	registry *game.Registry
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, registry *game.Registry, checkOrigin func(*http.Request) bool) *Handler {
	return &Handler{
		hub:      hub,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Serve is the gin handler for GET /ws.
func (h *Handler) Serve(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ctx.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	session := NewSession(newWSConn(conn), h.hub, h.registry)
	go session.WritePump()
	go session.ReadPump()
}
