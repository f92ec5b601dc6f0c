package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"notifyhub/api"
	"notifyhub/auth"
	"notifyhub/infrastructure/ws"
	"notifyhub/moderation"
	"notifyhub/mutation"
	"notifyhub/notify"
	"notifyhub/observability"
	"notifyhub/projection"
	"notifyhub/repositories"
	"notifyhub/runtime"
	"notifyhub/runtime/workers"
	"notifyhub/search"
)

// Exit codes to provide meaningful status to the operating system or
// service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// main stays a thin wrapper so every defer in run executes before the
	// process exits.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	censoredChar, err := config.CharacterRune()
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Durable store (BadgerDB)
	options := badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	store := repositories.NewBadgerStore(db, logger, config.LimitMessages)

	// 3. Search index (Bluge)
	index, err := search.Open(config.BlugeFilepath, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open search index: %w", err)
	}
	defer func() {
		logger.Info("Closing search index...")
		_ = index.Close()
	}()

	// 4. Moderation
	words, err := moderation.DefaultWords()
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to load moderation words: %w", err)
	}
	moderator, err := moderation.NewModerator(words, censoredChar, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to build moderator: %w", err)
	}

	// 5. Hub assembly
	stats := observability.NewStats()
	registry := runtime.NewRegistry()
	router := runtime.NewRouter(registry, logger, stats, config.DeliveryTimeout)
	handlers := mutation.NewHandlers(store, &moderator, logger)
	notifier := notify.NewNotifier(store, router, logger, stats)
	hub := runtime.NewHub(logger, registry, router, store, handlers, notifier,
		stats, config.BufferSize, config.NumberOfWorkers)

	feed := projection.NewActivityFeed(config.ActivityLimit)
	hub.Tap(index, feed)

	// 6. Supervised workers
	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(hub, workers.NewHealthWorker(logger, stats, config.HealthInterval))
	supervisorDone := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(supervisorDone)
	}()

	// 7. HTTP + websocket server
	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	wsServer := ws.NewServer(logger, hub, tokens, stats, config.ConnectionBufferSize)
	restAPI := api.New(logger, store, tokens, feed, index, stats)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:         address,
		Handler:      restAPI.Router(wsServer),
		ReadTimeout:  30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for stop or error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 9. Graceful shutdown: stop accepting connections, then drain workers.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	supervisor.Stop()
	<-supervisorDone
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}
