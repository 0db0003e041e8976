package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/rankwatch/internal/commands"
	"github.com/mauv0809/rankwatch/internal/config"
	"github.com/mauv0809/rankwatch/internal/database"
	"github.com/mauv0809/rankwatch/internal/fanout"
	"github.com/mauv0809/rankwatch/internal/game"
	"github.com/mauv0809/rankwatch/internal/game/raider"
	server "github.com/mauv0809/rankwatch/internal/http"
	"github.com/mauv0809/rankwatch/internal/metrics"
	"github.com/mauv0809/rankwatch/internal/notifier/slack"
	"github.com/mauv0809/rankwatch/internal/pubsub"
	"github.com/mauv0809/rankwatch/internal/scheduler"
	"github.com/mauv0809/rankwatch/internal/tracker"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %s", err)
	}
	log.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	log.Info("Database initialization time recorded", "duration_ms", time.Since(startTime).Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	raiderGame := raider.Game(cfg.Raider.BaseURL)
	raiderStore := tracker.New(db, raiderGame.Descriptor)
	if err := raiderStore.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare %s store: %s", raiderGame.Kind(), err)
	}
	registry, err := game.NewRegistry(game.Kind{Game: raiderGame, Store: raiderStore})
	if err != nil {
		log.Fatalf("Failed to register kinds: %s", err)
	}

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	counters := metrics.New(db)
	notifier := slack.NewNotifier(cfg.Slack.Token, cfg.Slack.OperatorChannelID, metricsSvc, cfg.Slack.DryRun)
	publisher, err := pubsub.New(ctx, cfg.ProjectID)
	if err != nil {
		log.Fatalf("Failed to initialize pubsub: %s", err)
	}
	defer publisher.Close()

	engine := fanout.NewEngine(notifier, metricsSvc, publisher, cfg.Schedule.DeliveryTimeout)
	sched := scheduler.New(registry, engine, notifier, notifier, metricsSvc, counters, scheduler.Config{
		RefreshInterval: cfg.Schedule.RefreshInterval,
		CleanupInterval: cfg.Schedule.CleanupInterval,
		FetchTimeout:    cfg.Schedule.FetchTimeout,
	})
	cmds := commands.New(registry, engine, notifier, counters, cfg.Schedule.CommandTimeout)

	s := server.NewServer(sched, cmds, counters, metricsHandler, cfg)

	// Jobs stay parked until Slack accepts the bot token.
	go func() {
		if err := notifier.WaitReady(ctx); err != nil {
			log.Warn("Stopped waiting for Slack", "error", err)
		}
	}()
	sched.Start(ctx)

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Error("Server error", "error", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")

		// Create a context with a timeout for the shutdown.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	// A job run in progress finishes before the database closes.
	sched.Stop()
	log.Info("Server process shutting down")
}
