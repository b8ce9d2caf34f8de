package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rg/danmakubot/internal/bot"
	"github.com/rg/danmakubot/internal/cache"
	"github.com/rg/danmakubot/internal/config"
	"github.com/rg/danmakubot/internal/danmaku"
	"github.com/rg/danmakubot/internal/httpserver"
	"github.com/rg/danmakubot/internal/logging"
	"github.com/rg/danmakubot/internal/messaging/telegram"
	"github.com/rg/danmakubot/internal/retention"
	"github.com/rg/danmakubot/internal/security"
	"github.com/rg/danmakubot/internal/storage"
)

const (
	logRotationInterval = time.Minute
	retentionInterval   = time.Hour
	// Telegram sends on top of the API call share one request deadline.
	requestTimeoutSlack = 30 * time.Second
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot (default)",
		Args:  cobra.NoArgs,
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Path)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logger.Close()
	logger.SetLevel(cfg.Log.Level)
	slog.SetDefault(logger.Logger)

	slog.Info("Starting danmakubot")
	slog.Info("Configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.StartRotation(ctx, cfg.Log.MaxSize, logRotationInterval)

	store, err := storage.NewStorage(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Database initialized", "path", cfg.Storage.DBPath)

	if cfg.Storage.AuditRetention > 0 {
		go retention.NewWorker(store, cfg.Storage.AuditRetention, retentionInterval).Start(ctx)
	}

	sanitizer, err := security.NewSanitizer(cfg.Security.SecretPatterns)
	if err != nil {
		return fmt.Errorf("failed to initialize sanitizer: %w", err)
	}
	slog.Info("Security sanitizer initialized", "patterns", len(cfg.Security.SecretPatterns))

	taskCache, closeCache := newTaskCache(ctx, cfg)
	defer closeCache()

	client := danmaku.NewClient(cfg.DanmakuAPI.BaseURL, cfg.DanmakuAPI.APIKey, cfg.DanmakuAPI.Timeout)
	lister := danmaku.NewCachedLister(client, taskCache, cfg.Cache.TTL)

	platform, err := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.PollTimeout, cfg.Telegram.Proxy)
	if err != nil {
		return fmt.Errorf("failed to create Telegram client: %w", err)
	}

	handler := bot.NewHandler(platform, lister, store, sanitizer, bot.Options{
		ChunkLimit:     cfg.Message.ChunkLimit,
		RequestTimeout: cfg.DanmakuAPI.Timeout + requestTimeoutSlack,
		AllowedUserIDs: cfg.Telegram.AllowedUserIDs,
		AdminUserIDs:   cfg.Telegram.AdminUserIDs,
	})
	slog.Info("Bot handler initialized",
		"allowed_users", len(cfg.Telegram.AllowedUserIDs),
		"admins", len(cfg.Telegram.AdminUserIDs),
		"chunk_limit", cfg.Message.ChunkLimit)

	mw := bot.NewMiddleware(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	mw.StartCleanupWorker(ctx, cfg.RateLimit.Window)

	if cfg.HTTP.Addr != "" {
		if _, err := httpserver.Start(ctx, cfg.HTTP.Addr, httpserver.NewRouter(store, cfg.Message.ChunkLimit)); err != nil {
			slog.Warn("Health server not started", "addr", cfg.HTTP.Addr, "error", err)
		}
	}

	slog.Info("Bot is ready to receive messages")

	if err := platform.Start(ctx, mw.Wrap(handler.Handlers())); err != nil {
		return fmt.Errorf("bot stopped with error: %w", err)
	}

	slog.Info("Shutting down")
	return nil
}

// newTaskCache connects to Redis when configured and falls back to an
// in-process cache otherwise, or when Redis is unreachable.
func newTaskCache(ctx context.Context, cfg *config.Config) (cache.Cache, func()) {
	if cfg.Cache.RedisAddr == "" {
		slog.Info("Using in-memory task cache", "ttl", cfg.Cache.TTL)
		return cache.NewMemory(), func() {}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rdb, err := cache.NewRedis(pingCtx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
	if err != nil {
		slog.Warn("Redis unavailable, using in-memory task cache", "addr", cfg.Cache.RedisAddr, "error", err)
		return cache.NewMemory(), func() {}
	}

	slog.Info("Using Redis task cache", "addr", cfg.Cache.RedisAddr, "db", cfg.Cache.RedisDB, "ttl", cfg.Cache.TTL)
	return rdb, func() {
		if err := rdb.Close(); err != nil {
			slog.Warn("Failed to close Redis client", "error", err)
		}
	}
}
