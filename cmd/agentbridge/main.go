package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/agentbridge/internal/adapter/a2a"
	abhttp "github.com/Strob0t/agentbridge/internal/adapter/http"
	"github.com/Strob0t/agentbridge/internal/adapter/litellm"
	"github.com/Strob0t/agentbridge/internal/adapter/mcp"
	abnats "github.com/Strob0t/agentbridge/internal/adapter/nats"
	"github.com/Strob0t/agentbridge/internal/adapter/natskv"
	"github.com/Strob0t/agentbridge/internal/adapter/otel"
	"github.com/Strob0t/agentbridge/internal/adapter/postgres"
	"github.com/Strob0t/agentbridge/internal/adapter/ristretto"
	"github.com/Strob0t/agentbridge/internal/adapter/tiered"
	"github.com/Strob0t/agentbridge/internal/adapter/ws"
	"github.com/Strob0t/agentbridge/internal/config"
	"github.com/Strob0t/agentbridge/internal/logger"
	"github.com/Strob0t/agentbridge/internal/middleware"
	"github.com/Strob0t/agentbridge/internal/port/cache"
	"github.com/Strob0t/agentbridge/internal/port/messagequeue"
	"github.com/Strob0t/agentbridge/internal/resilience"
	"github.com/Strob0t/agentbridge/internal/secrets"
	"github.com/Strob0t/agentbridge/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return err
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"nats_enabled", cfg.NATS.URL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Secrets ---

	vault, err := secrets.NewVault(secrets.EnvLoader(secrets.KeyCompletionAPIKey, secrets.KeyBridgeWebhookSecret, secrets.KeyRealtimeWriterToken))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	go reloadOnSIGHUP(ctx, vault)

	// --- Telemetry ---

	shutdownOTEL, err := otel.Setup(ctx, cfg.OTEL, cfg.Logging.Service, cfg.Server.Version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(flushCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := otel.NewMetrics(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if cfg.Postgres.AutoMigrate {
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")
	}
	store := postgres.NewStore(pool)

	// NATS is optional; without it events go to the local hub only.
	var queue messagequeue.Queue
	var natsQueue *abnats.Queue
	if cfg.NATS.URL != "" {
		natsQueue, err = abnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, continuing without event fan-out", "error", err)
		} else {
			queue = natsQueue
			defer func() { _ = natsQueue.Close() }()
		}
	}

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("batch cache: %w", err)
	}
	defer l1.Close()
	var batchCache cache.Cache = l1
	if queue != nil {
		kv, err := natsQueue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
		if err != nil {
			slog.Warn("nats kv unavailable, using in-process batch cache", "bucket", cfg.Cache.L2Bucket, "error", err)
		} else {
			batchCache = tiered.New(l1, natskv.New(kv), cfg.Cache.L2TTL)
		}
	}

	// --- Realtime ---

	hub := ws.NewHub(cfg.Server.CORSOrigin, ws.WithVersion(cfg.Server.Version))
	defer hub.Close()
	if queue != nil {
		stopRelay, err := hub.Relay(ctx, queue)
		if err != nil {
			return fmt.Errorf("ws relay: %w", err)
		}
		defer stopRelay()
	}

	// --- Services ---

	llm := litellm.NewClient(cfg.Completion, vault)
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	breaker.OnStateChange(func(from, to resilience.State) {
		slog.Warn("completion circuit breaker", "from", from.String(), "to", to.String())
	})
	llm.SetBreaker(breaker)
	if !llm.Configured() {
		slog.Warn("completion api key not set, task router will answer with mock responses")
	}

	notifier := service.NewStatusNotifier(queue, hub)
	writer := service.NewPersistenceWriter(store, notifier, metrics)
	escalation := service.NewEscalationPolicy(store, notifier)
	taskRouter := service.NewTaskRouterService(llm, writer, escalation, metrics, cfg.Completion.Model)
	bridgeSvc := service.NewBridgeService(store, service.NewCachedLedger(store, batchCache), notifier, metrics, cfg.Server.Version)
	hub.AcceptReports(service.NewRealtimeService(store, writer, notifier), vault)
	if !vault.Has(secrets.KeyRealtimeWriterToken) {
		slog.Warn("realtime writer token not set, every feed client may push reports")
	}

	// --- HTTP ---

	handlers := &abhttp.Handlers{
		TaskRouter:      taskRouter,
		Bridge:          bridgeSvc,
		Secrets:         vault,
		Store:           store,
		Queue:           queue,
		Version:         cfg.Server.Version,
		StoreConfigured: cfg.Postgres.DSN != "",
		Webhook:         cfg.Webhook,
		Limits:          cfg.Limits,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(abhttp.Logger)
	r.Use(abhttp.Recoverer)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(abhttp.Version(cfg.Server.Version))
	r.Use(abhttp.CORS(cfg.Server.CORSOrigin, cfg.Webhook.SignatureHeader))

	abhttp.MountRoutes(r, handlers)
	r.Get("/ws", hub.HandleWS)
	a2a.NewHandler(cfg.Server.PublicURL, cfg.Server.Version).MountRoutes(r)

	if cfg.MCP.Enabled {
		mcpServer := mcp.NewServer(
			mcp.ServerConfig{Name: cfg.Logging.Service, Version: cfg.Server.Version, APIKey: cfg.MCP.APIKey},
			mcp.ServerDeps{TaskRouter: taskRouter, Bridge: bridgeSvc, Secrets: vault},
		)
		if cfg.MCP.APIKey == "" && vault.Has(secrets.KeyBridgeWebhookSecret) {
			slog.Warn("mcp api key not set while webhook signing is enabled, bridge_action tool is refused")
		}
		r.Handle(mcp.EndpointPath, mcpServer.Handler())
		slog.Info("mcp server mounted", "path", mcp.EndpointPath, "auth", cfg.MCP.APIKey != "")
	}

	addr := ":" + cfg.Server.Port

	// No write timeout: completion calls and websocket streams outlive it.
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr, "version", cfg.Server.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// reloadOnSIGHUP re-reads the vault whenever the process receives SIGHUP.
func reloadOnSIGHUP(ctx context.Context, vault *secrets.Vault) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := vault.Reload(); err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded", "keys", vault.Keys())
		}
	}
}
