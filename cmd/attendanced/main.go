/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse the CLI (cobra) and load the YAML configuration
  2. Initialize SQLite store
  3. Wire tracker, calculation engine, reminder scheduler, achievements
  4. Restore the tracking status from the store
  5. Start server with graceful shutdown

COMMANDS:
  attendanced serve   Run the HTTP server (the default when no command is
                      given)

FLAGS:
  --config   YAML configuration path (default: attendanced.yaml)
  --port     HTTP server port (overrides the config file)
  --db       SQLite database path (overrides the config file)
             Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the reminder and maintenance schedulers
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./attendanced serve --db="./data/attendance.db"

  # Run with in-memory database
  ./attendanced serve --db=":memory:"

  # Run on different port
  ./attendanced serve --port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - config: YAML configuration loading
  - store/sqlite: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/attendance-engine/achievements"
	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/calc"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/engine"
	"github.com/warp/attendance-engine/notify"
	"github.com/warp/attendance-engine/reminders"
	"github.com/warp/attendance-engine/store/sqlite"
	"github.com/warp/attendance-engine/tracking"
)

var (
	flagConfig string
	flagPort   int
	flagDB     string
)

func main() {
	root := &cobra.Command{
		Use:   "attendanced",
		Short: "Attendance time-accounting engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "attendanced.yaml", "YAML configuration path")
	root.PersistentFlags().IntVar(&flagPort, "port", 0, "HTTP server port (overrides config)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (overrides config)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve() error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagPort != 0 {
		cfg.Server.Port = flagPort
	}
	if flagDB != "" {
		cfg.Server.DBPath = flagDB
	}

	log := newLogger(cfg.Server.LogLevel)

	settings, err := cfg.Settings.EngineSettings()
	if err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	provider := engine.NewStaticSettings(settings)

	store, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	// Wiring: calc is shared by tracker, reminders and the API; the
	// reminder scheduler observes the tracker's status transitions.
	clock := engine.SystemClock{}
	calcEngine := calc.New(store, provider, clock)
	tracker := tracking.New(store, provider, clock, calcEngine)
	sink := notify.NewLogSink(log)
	defer sink.Close()

	sched := reminders.New(provider, sink, clock, tracker, calcEngine, log)
	defer sched.Close()
	tracker.RegisterStatusObserver(sched.OnStatusChanged)

	ach := achievements.New(store, provider, clock)
	ach.RegisterUnlockObserver(func(a engine.Achievement) {
		sink.ShowNotification("Achievement unlocked", string(a.Key))
	})

	if err := tracker.Restore(context.Background()); err != nil {
		log.Warn().Err(err).Msg("status restore failed, starting idle")
	}
	sched.Reschedule()

	maintenance := api.NewMaintenance(store, ach, clock, log)
	maintenance.Start()
	defer maintenance.Stop()

	handler := api.NewHandler(store, tracker, calcEngine, ach, provider, sched, clock, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("db", cfg.Server.DBPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}
