// Package main is the entry point for the DevNote server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
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

	"devnote/internal/cache"
	"devnote/internal/config"
	"devnote/internal/database"
	"devnote/internal/feed"
	"devnote/internal/handlers"
	"devnote/internal/middleware"
	"devnote/internal/moderation"
	"devnote/internal/router"
	"devnote/internal/scheduler"
	"devnote/internal/session"
	"devnote/internal/store"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: JSON in production, text in development.
	level := slog.LevelInfo
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if cfg.IsDev() {
		level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"base_url", cfg.BaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed the development admin (no-op if users already exist).
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (sessions and the feed cache).
	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// Moderation rules: a YAML file when configured, built-in rules otherwise.
	rules := moderation.DefaultRules()
	if cfg.RulesFile != "" {
		if rules, err = moderation.LoadRules(cfg.RulesFile); err != nil {
			slog.Error("failed to load moderation rules", "error", err)
			os.Exit(1)
		}
	}
	scorer, err := moderation.NewScorer(rules)
	if err != nil {
		slog.Error("failed to compile moderation rules", "error", err)
		os.Exit(1)
	}
	slog.Info("moderation rules loaded", "patterns", len(rules.Patterns), "lexicon", len(rules.Lexicon), "file", cfg.RulesFile)

	// Mark cookies Secure (HTTPS-only) outside development.
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	blogStore := store.NewBlogStore(db)
	auditStore := store.NewAuditStore(db)
	userStore := store.NewUserStore(db)
	feedCache := cache.NewFeedCache(valkeyClient, cfg.FeedCacheTTL)

	jobs, err := scheduler.New(blogStore, auditStore, scheduler.Config{
		QueueGaugeSchedule: cfg.QueueGaugeSchedule,
		AuditPruneSchedule: cfg.AuditPruneSchedule,
		AuditRetention:     cfg.AuditRetention,
	})
	if err != nil {
		slog.Error("failed to configure scheduler", "error", err)
		os.Exit(1)
	}
	jobs.Start()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer limiter.Stop()

	site := feed.Site{
		Name:        cfg.SiteName,
		BaseURL:     cfg.BaseURL,
		Description: cfg.SiteName + " developer blog",
	}

	r := router.New(sessionStore, limiter, router.Handlers{
		Auth:   handlers.NewAuth(sessionStore, userStore),
		Blogs:  handlers.NewBlogs(blogStore, moderation.NewModerator(scorer), auditStore, feedCache),
		Admin:  handlers.NewAdmin(blogStore, auditStore, feedCache),
		Public: handlers.NewPublic(blogStore, feedCache, site),
		Health: handlers.NewHealth(db, cache.Pinger{Client: valkeyClient}),
	}, secureCookies)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	jobs.Stop(shutdownCtx)

	slog.Info("server stopped gracefully")
}
