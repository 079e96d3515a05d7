package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/aiox-platform/mentionbot/internal/api"
	"github.com/aiox-platform/mentionbot/internal/audit"
	"github.com/aiox-platform/mentionbot/internal/auth"
	"github.com/aiox-platform/mentionbot/internal/brain"
	"github.com/aiox-platform/mentionbot/internal/config"
	"github.com/aiox-platform/mentionbot/internal/database"
	"github.com/aiox-platform/mentionbot/internal/interaction"
	"github.com/aiox-platform/mentionbot/internal/memory"
	"github.com/aiox-platform/mentionbot/internal/metrics"
	mw "github.com/aiox-platform/mentionbot/internal/middleware"
	inats "github.com/aiox-platform/mentionbot/internal/nats"
	"github.com/aiox-platform/mentionbot/internal/platform"
	"github.com/aiox-platform/mentionbot/internal/quota"
	iredis "github.com/aiox-platform/mentionbot/internal/redis"
	"github.com/aiox-platform/mentionbot/internal/scheduler"
	"github.com/aiox-platform/mentionbot/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	// mentionbot token <operator> prints an admin API token and exits.
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(cfg, os.Args[2:]); err != nil {
			slog.Error("issuing token", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("mentionbot stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
		return err
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer redisClient.Close()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	g, gctx := errgroup.WithContext(ctx)

	// NATS (optional)
	var events interaction.EventPublisher = interaction.NoEvents{}
	var natsClient *inats.Client
	auditRepo := audit.NewRepository(pool)
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer natsClient.Close()

		events = inats.NewPublisher(natsClient.JetStream())
		consumer := audit.NewConsumer(auditRepo, inats.NewConsumerManager(natsClient.JetStream()))
		g.Go(func() error {
			if err := consumer.Start(gctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
			return nil
		})
	} else {
		slog.Info("NATS_URL is empty; interaction events are not published")
	}

	// Platform
	client, err := platform.NewClient(cfg.Platform)
	if err != nil {
		return fmt.Errorf("creating platform client: %w", err)
	}

	// Generation and embeddings
	var generator interaction.ResponseGenerator = interaction.StaticResponder{Text: cfg.Engine.DefaultResponse}
	var embedder memory.Embedder
	if cfg.LLM.APIKey != "" {
		gemini, err := brain.NewGemini(ctx, cfg.LLM)
		if err != nil {
			return fmt.Errorf("creating gemini client: %w", err)
		}
		generator = gemini
		embedder = gemini
	}

	// Memory
	memSvc := memory.NewService(
		memory.NewPostgresRepository(pool),
		memory.NewShortTermStore(redisClient),
		embedder,
		memory.ConfigFrom(cfg.Memory),
	)

	// Engine
	budget := quota.NewPostBudget(redisClient, cfg.Engine.PostsPerHour)
	if budget.Limit() > 0 {
		slog.Info("post budget enabled", "posts_per_hour", budget.Limit())
	} else {
		slog.Info("post budget disabled")
	}

	engine := interaction.NewEngine(
		client,
		memSvc,
		generator,
		interaction.NewFileCursor(cfg.Engine.CursorPath),
		interaction.ConfigFrom(cfg.Engine),
		interaction.WithContextFetcher(memSvc),
		interaction.WithUserContext(memSvc),
		interaction.WithUserContextUpdater(memSvc),
		interaction.WithEvents(events),
		interaction.WithBudget(budget),
		interaction.WithMetrics(m),
	)

	sched := scheduler.New(engine, scheduler.ConfigFrom(cfg.Engine))
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})

	// HTTP
	memHandler := memory.NewHandler(memSvc)
	handlers := api.HandlerSet{
		ListMemories:   memHandler.List,
		CreateMemory:   memHandler.Create,
		SearchMemories: memHandler.Search,
		DeleteMemory:   memHandler.Delete,
		ListResponses:  memHandler.ListResponses,
		GetResponse:    memHandler.GetResponse,
		ListAudit:      audit.NewHandler(auditRepo).List,
		GetPost:        platform.NewHandler(client).GetPost,
		TriggerCycle:   scheduler.NewHandler(sched).Trigger,
	}
	if cfg.Auth.JWTSecret != "" {
		handlers.AuthMiddleware = auth.Middleware(auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))
	}

	checks := []api.ReadinessCheck{
		{Name: "database", Check: func(ctx context.Context) error { return database.HealthCheck(ctx, pool) }},
		{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		{Name: "nats", Optional: true},
	}
	if natsClient != nil {
		checks[2].Check = func(context.Context) error {
			if !natsClient.Healthy() {
				return errors.New("nats disconnected")
			}
			return nil
		}
	}

	router := api.NewRouter(api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Metrics:            m,
		Gatherer:           reg,
		ReadinessChecks:    checks,
		TriggerRateLimiter: mw.NewRateLimiter(redisClient, "cycles", cfg.Server.TriggerRateLimit, 60).Middleware,
	}, handlers)

	srv := server.New(cfg.Server, router)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	return g.Wait()
}

func issueToken(cfg *config.Config, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return fmt.Errorf("usage: mentionbot token <operator>")
	}
	if len(cfg.Auth.JWTSecret) < 32 {
		return fmt.Errorf("AUTH_JWT_SECRET must be set to at least 32 characters")
	}

	token, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Issue(args[0])
	if err != nil {
		return err
	}
	fmt.Println(token)
	slog.Info("issued operator token", "operator", args[0], "expires_in", cfg.Auth.TokenTTL.Round(time.Hour))
	return nil
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
