package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinical-api/internal/app"
	"github.com/jwalitptl/clinical-api/internal/config"
	"github.com/jwalitptl/clinical-api/internal/repository"
	"github.com/jwalitptl/clinical-api/internal/repository/memory"
	"github.com/jwalitptl/clinical-api/internal/repository/postgres"
	internalWorker "github.com/jwalitptl/clinical-api/internal/worker"
	"github.com/jwalitptl/clinical-api/pkg/logger"
	"github.com/jwalitptl/clinical-api/pkg/messaging"
	"github.com/jwalitptl/clinical-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinical-api/pkg/metrics"
	"github.com/jwalitptl/clinical-api/pkg/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.SetGlobal(logger.New(cfg.Log.ToLoggerConfig()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repos repository.Repositories
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		repos = memory.New().Repositories()
	default:
		db, err := postgres.NewDB(ctx, cfg.Database.ToPostgresConfig())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				log.Fatal().Err(err).Msg("failed to migrate database")
			}
		}
		repos = postgres.NewRepositories(db)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	api := app.New(cfg, repos, app.Options{Registry: registry})

	// Nothing outside this process can read the in-memory outbox, so it is
	// drained here instead of by cmd/worker.
	if cfg.Database.Driver == config.DriverMemory && cfg.Outbox.Enabled {
		broker := inProcessBroker(ctx, cfg)
		defer broker.Close()
		startOutbox(ctx, cfg, repos.Outbox, broker, api.Metrics)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server exited properly")
}

func inProcessBroker(ctx context.Context, cfg *config.Config) messaging.Broker {
	broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), log.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, events stay in process")
		return messaging.NewMemoryBroker()
	}
	return broker
}

func startOutbox(ctx context.Context, cfg *config.Config, repo repository.OutboxRepository, broker messaging.Broker, m *metrics.Metrics) {
	processor, err := worker.NewOutboxProcessor(repo, broker, cfg.Outbox.ToWorkerConfig(), log.Logger, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox processor")
	}
	go processor.Start(ctx)

	cleanup := internalWorker.NewOutboxCleanupWorker(repo, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, log.Logger, m)
	go cleanup.Start(ctx)
}
