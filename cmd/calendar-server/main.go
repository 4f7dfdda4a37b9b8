// Package main is the entry point for the campaign calendar server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Formille/CthulhuCalender/internal/config"
	"github.com/Formille/CthulhuCalender/internal/engine"
	"github.com/Formille/CthulhuCalender/internal/events"
	"github.com/Formille/CthulhuCalender/internal/infra/ai"
	"github.com/Formille/CthulhuCalender/internal/infra/storage"
	"github.com/Formille/CthulhuCalender/internal/narrator"
	"github.com/Formille/CthulhuCalender/internal/network"
	"github.com/Formille/CthulhuCalender/internal/platform/logger"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	log.Println("[CALENDAR-SERVER] Initializing campaign calendar server...")

	appLogger := logger.NewLogger()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			appLogger.Error("Failed to load configuration: %v", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	appLogger.Info("Initializing SQLite database %q...", cfg.Database.Path)
	db, err := storage.InitSQLite(cfg.Database.Path)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	saveRepo := storage.NewSQLiteSaveRepository(db)
	eventRepo := storage.NewSQLiteEventRepository(db)

	appLogger.Info("Bootstrapping event log...")
	eventLog := events.NewLog(storage.NewEventPersisterAdapter(eventRepo))

	appLogger.Info("Bootstrapping progression engine...")
	gameEngine := engine.New(eventLog, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLogger.Info("Bootstrapping WebSocket hub...")
	hub := network.NewHub(appLogger)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	appLogger.Info("Bootstrapping narrator (%s)...", cfg.LLM.Provider)
	budgetGate := ai.NewBudgetGate(cfg.Budget.DailyUSD, cfg.Budget.MonthlyUSD)
	var provider ai.LLMProvider
	switch cfg.LLM.Provider {
	case "mistral":
		provider = ai.NewMistralProvider(cfg.LLM.APIKey, cfg.LLM.Model, budgetGate)
	case "openai":
		provider = ai.NewOpenAIProvider(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL, budgetGate)
	case "none":
		// Deterministic fallback text only.
	}
	diaryNarrator := narrator.New(provider, eventLog, appLogger, cfg.Campaign.Year)

	server := NewServer(gameEngine, diaryNarrator, saveRepo, eventRepo, hub, appLogger,
		cfg.Campaign.Year, cfg.Campaign.PlayerName)

	mux := http.NewServeMux()
	server.Routes(mux)

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}

	go func() {
		appLogger.Info("Listening on %s", cfg.Server.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed: %v", err)
			cancel()
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		appLogger.Info("Shutdown signal received.")
	case <-ctx.Done():
	}

	cancel()
	if err := httpServer.Shutdown(context.Background()); err != nil {
		appLogger.Error("HTTP shutdown failed: %v", err)
	}
	appLogger.Info("Server stopped.")
}
