package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dkeye/Chatter/internal/adapters/cache"
	router "github.com/dkeye/Chatter/internal/adapters/http"
	"github.com/dkeye/Chatter/internal/adapters/store"
	"github.com/dkeye/Chatter/internal/app"
	"github.com/dkeye/Chatter/internal/app/orch"
	"github.com/dkeye/Chatter/internal/auth"
	"github.com/dkeye/Chatter/internal/core"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var rooms app.RoomStore = store.NewRooms(db)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		rooms = cache.New(client, rooms, cfg.CacheTTL)
		log.Info().Str("redis", cfg.RedisAddr).Dur("ttl", cfg.CacheTTL).Msg("room cache enabled")
	}

	sink := store.NewAsyncSink(store.NewMessages(db), cfg.SinkWorkers, cfg.SinkQueue)
	defer sink.Close()

	policy, err := app.NewPolicy(cfg.SlowPolicy, cfg.SlowStrikes)
	if err != nil {
		return err
	}
	cooldown := core.NewCooldown(cfg.ChatCooldown)
	o := orch.New(app.NewRegistry(policy), rooms, cooldown, sink)
	tokens := auth.NewManager(cfg.Secret, cfg.TokenTTL)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router.SetupRouter(ctx, cfg, o, tokens),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Chatter server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sweepCooldowns(gctx, cooldown, cfg.CooldownSweep)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		return err
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}

// sweepCooldowns evicts limiter state of members idle for longer than every.
func sweepCooldowns(ctx context.Context, c *core.Cooldown, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := c.Sweep(now, every); n > 0 {
				log.Debug().Int("evicted", n).Int("left", c.Len()).Msg("cooldown sweep")
			}
		}
	}
}
