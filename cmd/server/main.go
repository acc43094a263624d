package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-core/auth"
	"chat-core/moderation"
	"chat-core/reducer"
	"chat-core/runtime"
	"chat-core/service"
	"chat-core/session"
	"chat-core/store"
	"chat-core/views"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before exit.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB), optional
	var db *badger.DB
	if config.BadgerFilepath != "" {
		var err error
		db, err = badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
	} else {
		log.Info("No badger path configured, store is memory only")
	}

	// 3. Core: store, views, reducers
	st, err := store.New(log, db)
	if err != nil {
		return fmt.Errorf("store loading failed: %w", err)
	}

	registry := views.NewRegistry(log)
	viewEngine := views.NewEngine(log, st, registry, config.DeltaBufferSize)

	var moderator reducer.Moderator
	if config.ModerationEnabled {
		replacement, err := replacementRune(config.ModerationCharReplacement)
		if err != nil {
			return err
		}
		m, err := moderation.NewFromEmbedded(replacement)
		if err != nil {
			return fmt.Errorf("moderation setup failed: %w", err)
		}
		moderator = m
	}
	reducers := reducer.NewEngine(log, st, viewEngine, moderator)
	chat := service.NewChatService(reducers, viewEngine)

	// 4. Supervision & session adapter
	supervisor := runtime.NewSupervisor(log, config.RestartInterval)
	supervisor.Add(runtime.NewHealthWorker(log, config.HealthInterval))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go supervisor.Run(ctx)

	tokens := auth.NewTokens(config.TokenSecret, config.TokenDuration)
	sessions := session.NewServer(log, chat, tokens, supervisor)

	mux := http.NewServeMux()
	mux.Handle("/ws", sessions.Handler(ctx))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting session server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("session server error: %w", err)
		}
	}()

	// 5. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 6. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	supervisor.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

func replacementRune(str string) (rune, error) {
	runes := []rune(str)
	if len(runes) != 1 {
		return 0, fmt.Errorf("MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q", str)
	}
	return runes[0], nil
}
