// Portfolio site server: static shell, contact relay, presence, profile
// data API, and the server-driven background animation.
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
	"github.com/skylerlchan/personal-website/internal/api"
	"github.com/skylerlchan/personal-website/internal/cache"
	"github.com/skylerlchan/personal-website/internal/config"
	"github.com/skylerlchan/personal-website/internal/conversation"
	"github.com/skylerlchan/personal-website/internal/flowfield"
	"github.com/skylerlchan/personal-website/internal/middleware"
	"github.com/skylerlchan/personal-website/internal/profile"
	"github.com/skylerlchan/personal-website/internal/relay"
	"github.com/skylerlchan/personal-website/internal/store"
	"github.com/skylerlchan/personal-website/internal/theme"
	"github.com/skylerlchan/personal-website/web"
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

	tg := relay.NewClient(cfg.TelegramAPIBase, cfg.TelegramBotToken, cfg.TelegramChatID)
	if !tg.Configured() {
		slog.Warn("Telegram relay not configured, contact delivery disabled and presence reports offline")
	}

	var responses cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := redisCache.Close(); closeErr != nil {
				slog.Error("Failed to close Redis cache", "error", closeErr)
			}
		}()
		responses = redisCache
		slog.Info("Response cache backed by Redis")
	} else {
		responses = cache.NewMemory()
	}

	aggregator := profile.New(cfg.DataDir, cfg.SiteURL)
	themes := theme.NewRegistry(theme.Light)

	// Initialize handlers.
	apiHandler := api.NewHandler(tg, tg, repo, responses, aggregator, cfg.PresenceCacheTTL, cfg.ProfileCacheTTL)
	chatHandler := conversation.NewWebSocketHandler(tg, presenceAdapter{tg}, repo, cfg.FrontendURL, cfg.IsDevelopment())
	backgroundHandler := flowfield.NewStreamHandler(themes, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	// API routes.
	apiHandler.RegisterRoutes(r)

	// WebSocket endpoints.
	r.Get("/ws/chat", chatHandler.ServeHTTP)
	r.Get("/ws/background", backgroundHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket streams stay open indefinitely
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store.StartRetentionWorker(ctx, repo, cfg.InboxRetention)

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

// presenceAdapter narrows the relay client to the conversation package's
// presence contract.
type presenceAdapter struct {
	client *relay.Client
}

func (a presenceAdapter) LastActivity(ctx context.Context) (bool, int64) {
	p := a.client.LastActivity(ctx)
	return p.Online, p.LastSeen
}
