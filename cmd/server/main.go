// Roddle - Daily AI Riddle Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/roddlehq/roddle/internal/api"
	"github.com/roddlehq/roddle/internal/auth"
	"github.com/roddlehq/roddle/internal/config"
	"github.com/roddlehq/roddle/internal/crypt"
	"github.com/roddlehq/roddle/internal/game"
	"github.com/roddlehq/roddle/internal/llm"
	"github.com/roddlehq/roddle/internal/middleware"
	"github.com/roddlehq/roddle/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	gate, err := crypt.New(cfg.EncryptionKey)
	if err != nil {
		slog.Error("Failed to initialize encryption", "error", err)
		os.Exit(1)
	}

	// Initialize model backends and the orchestrator.
	ollama := llm.NewOllamaClient(cfg.OllamaURL)
	openai := llm.NewOpenAIClient("")
	anthropic := llm.NewAnthropicClient("")
	orchestrator := llm.NewOrchestrator(ollama, openai, anthropic, cfg.DefaultModel)

	if ollama.IsAvailable(context.Background(), cfg.DefaultModel) {
		slog.Info("Local model backend reachable", "url", cfg.OllamaURL, "model", cfg.DefaultModel)
	} else {
		slog.Warn("Local model backend unreachable at startup", "url", cfg.OllamaURL)
	}

	// Initialize services.
	svc := game.NewService(repo, orchestrator, gate)
	tokens := auth.NewTokens(cfg.JWTSecret)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, gate)
	authHandler := api.NewAuthHandler(baseHandler, tokens)
	riddleHandler := api.NewRiddleHandler(baseHandler, svc)
	userHandler := api.NewUserHandler(baseHandler)
	modelsHandler := api.NewModelsHandler(baseHandler, ollama, cfg.DefaultModel)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	corsOrigins := []string{"*"}
	if !cfg.IsDevelopment() {
		corsOrigins = []string{cfg.FrontendURL}
	}
	r.Use(middleware.CORS(corsOrigins))

	// Public routes.
	authHandler.RegisterPublicRoutes(r)
	modelsHandler.RegisterPublicRoutes(r)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(repo, tokens))
		authHandler.RegisterRoutes(r)
		riddleHandler.RegisterRoutes(r)
		userHandler.RegisterRoutes(r)
		modelsHandler.RegisterRoutes(r)
	})

	// Create server. Generation requests can hold a worker for the full
	// model timeout, so the write timeout stays generous.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
