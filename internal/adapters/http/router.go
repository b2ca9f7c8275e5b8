package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chatter/internal/adapters/signal"
	"github.com/dkeye/Chatter/internal/app/orch"
	"github.com/dkeye/Chatter/internal/auth"
	"github.com/dkeye/Chatter/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, tokens *auth.Manager) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": o.Registry.Len(), "rooms": len(o.Presence.Rooms())})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ws := signal.NewSignalWSController(o, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.SendBuffer,
	})
	h := &handlers{orch: o}

	api := r.Group("/api")
	api.Use(AuthMiddleware(tokens))

	api.GET("/ws", func(c *gin.Context) {
		ws.HandleSignal(ctx, c, memberFrom(c))
	})

	rooms := api.Group("/chatrooms")
	rooms.POST("", h.createRoom)
	rooms.GET("", h.listRooms)
	rooms.GET("/:roomId", h.getRoom)
	rooms.GET("/:roomId/members", h.members)
	rooms.POST("/:roomId/admin/kick", h.kick)

	return r
}
