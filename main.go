package main

import (
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"teamshout/api/config"
	"teamshout/api/game"
	"teamshout/api/prompts"
	"teamshout/api/transport"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(ctx *gin.Context) { ctx.String(http.StatusOK, "healthy") })

	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowCredentials: true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{
				"Content-Type",
				"Upgrade",
				"Connection",
				"Sec-WebSocket-Key",
				"Sec-WebSocket-Version",
				"Sec-WebSocket-Extensions",
				"Sec-WebSocket-Protocol",
			},
		}))
	}

	return r
}

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}
	if cfg.CohereAPIKey == "" {
		log.Warn().Msg("COHERE_API_KEY not set, prompt generation will use the fallback pool")
	}

	settings := game.Settings{
		MaxRounds:         cfg.MaxRounds,
		RoundTime:         cfg.RoundTime,
		NextRoundDelay:    cfg.NextRoundDelay,
		EmptyRoomGrace:    cfg.EmptyRoomGrace,
		DefaultTheme:      cfg.DefaultTheme,
		DefaultDifficulty: cfg.DefaultDifficulty,
		DefaultNumPrompts: cfg.DefaultNumPrompts,
		GenerationTimeout: cfg.GenerationTimeout,
	}

	source := prompts.NewClient(cfg.CohereAPIKey, cfg.CohereModel, cfg.CohereURL, cfg.GenerationTimeout)
	hub := transport.NewHub()
	registry := game.NewRegistry(settings, hub, source)

	origins := cfg.Origins()
	checkOrigin := func(req *http.Request) bool {
		if len(origins) == 0 {
			return true
		}
		return slices.Contains(origins, req.Header.Get("Origin"))
	}

	r := CreateServer(origins)
	wsHandler := transport.NewHandler(hub, registry, checkOrigin)
	r.GET("/ws", wsHandler.Serve)

	log.Info().Str("addr", cfg.Addr).Msg("team shout server listening")
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
