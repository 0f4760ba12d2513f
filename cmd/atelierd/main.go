// atelierd runs the background side of the workspace core: it applies
// migrations on boot and sweeps expired invites on a schedule, invalidating
// the cache of every workspace the sweep touched.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/atelierhq/atelier-api/internal/cache"
	"github.com/atelierhq/atelier-api/internal/config"
	"github.com/atelierhq/atelier-api/internal/database"
	"github.com/atelierhq/atelier-api/internal/services"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.IsProduction() {
		log = zerolog.New(os.Stdout)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return log.Level(level).With().Timestamp().Logger()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := newLogger(cfg)
	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := cache.Connect(ctx, cache.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	workspaceCache := cache.New(redisClient, cfg.CacheTTL, log)
	inviteService := services.NewInviteService(db)

	scheduler := cron.New()
	_, err = scheduler.AddFunc("@every "+cfg.InviteSweepInterval.String(), func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		workspaceIDs, err := inviteService.SweepExpired(sweepCtx)
		if err != nil {
			log.Error().Err(err).Msg("invite sweep failed")
			return
		}
		for _, id := range workspaceIDs {
			if _, err := workspaceCache.InvalidateWorkspace(sweepCtx, id); err != nil {
				log.Warn().Err(err).
					Str("workspace_id", id.String()).
					Msg("failed to invalidate cache after invite sweep")
			}
		}
		if len(workspaceIDs) > 0 {
			log.Info().Int("workspaces", len(workspaceIDs)).Msg("expired invites swept")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to schedule invite sweep")
	}
	scheduler.Start()

	log.Info().Str("env", cfg.Env).Msg("atelierd started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	<-scheduler.Stop().Done()
}
