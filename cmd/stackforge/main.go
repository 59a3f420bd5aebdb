// Command stackforge runs the project provisioning API and its maintenance
// subcommands.
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

	cfhttp "github.com/Strob0t/StackForge/internal/adapter/http"
	"github.com/Strob0t/StackForge/internal/adapter/gitlab"
	cfnats "github.com/Strob0t/StackForge/internal/adapter/nats"
	"github.com/Strob0t/StackForge/internal/adapter/natskv"
	cfotel "github.com/Strob0t/StackForge/internal/adapter/otel"
	"github.com/Strob0t/StackForge/internal/adapter/postgres"
	cfredis "github.com/Strob0t/StackForge/internal/adapter/redis"
	cfristretto "github.com/Strob0t/StackForge/internal/adapter/ristretto"
	"github.com/Strob0t/StackForge/internal/adapter/templatefs"
	"github.com/Strob0t/StackForge/internal/adapter/ws"
	"github.com/Strob0t/StackForge/internal/config"
	"github.com/Strob0t/StackForge/internal/logger"
	"github.com/Strob0t/StackForge/internal/middleware"
	"github.com/Strob0t/StackForge/internal/port/messagequeue"
	"github.com/Strob0t/StackForge/internal/port/templatestore"
	"github.com/Strob0t/StackForge/internal/resilience"
	"github.com/Strob0t/StackForge/internal/scaffold"
	"github.com/Strob0t/StackForge/internal/service"
	"github.com/Strob0t/StackForge/internal/template"
)

const (
	idempotencyBucket = "stackforge-idempotency"
	idempotencyTTL    = 24 * time.Hour
	requestTimeout    = 2 * time.Minute // provisioning makes several sequential remote calls
)

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func dispatch(args []string) error {
	if len(args) == 0 {
		return run()
	}
	switch args[0] {
	case "serve":
		return run()
	case "migrate":
		return runMigrate(args[1:])
	case "admin":
		return runAdmin(args[1:])
	case "help", "--help", "-h":
		fmt.Fprintln(os.Stderr, "Usage: stackforge [serve|migrate|admin] [options]")
		return nil
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"gitlab_url", cfg.GitLab.URL,
		"gitlab_group_id", cfg.GitLab.GroupID,
	)

	ctx := context.Background()

	// --- Telemetry ---

	shutdownOTEL, err := cfotel.Init(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")
	store := postgres.NewStore(pool)

	// Templates: embedded set, optional on-disk overlay, cached.
	templates, err := openTemplates(cfg.Templates)
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	cache, err := cfristretto.NewTemplateCache(templates, cfg.Templates.CacheSizeMB<<20, cfg.Templates.CacheTTL)
	if err != nil {
		return fmt.Errorf("template cache: %w", err)
	}
	defer cache.Close()
	generator := scaffold.NewGenerator(template.NewEngine(cache))

	// GitLab
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	remote := gitlab.NewClient(cfg.GitLab, breaker)
	if cfg.GitLab.GroupID == 0 {
		slog.Warn("gitlab.group_id is not set; project provisioning will be rejected")
	}

	hub := ws.NewHub(cfg.Server.CORSOrigin)
	checks := []cfhttp.HealthCheck{{Name: "postgres", Check: store.Ping}}

	// NATS (optional): lifecycle events and idempotency records.
	var (
		publisher messagequeue.Publisher
		idemStore middleware.IdempotencyStore
	)
	if cfg.NATS.URL != "" {
		queue, err := cfnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = queue.Drain() }()

		kv, err := queue.KeyValue(ctx, idempotencyBucket, idempotencyTTL)
		if err != nil {
			return fmt.Errorf("nats kv: %w", err)
		}
		publisher = queue
		idemStore = natskv.New(kv)
		checks = append(checks, cfhttp.HealthCheck{Name: "nats", Check: func(context.Context) error {
			if !queue.IsConnected() {
				return errors.New("disconnected")
			}
			return nil
		}})
		slog.Info("nats connected", "url", cfg.NATS.URL)
	}

	// Rate limiting: Redis when configured, in-process otherwise.
	var limiter middleware.Limiter
	if cfg.Rate.RedisURL != "" {
		rl, err := cfredis.NewRateLimiter(ctx, cfg.Rate.RedisURL, cfg.Rate.RequestsPerWindow, cfg.Rate.Window)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer func() { _ = rl.Close() }()
		limiter = rl
	} else {
		rl := middleware.NewRateLimiter(float64(cfg.Rate.RequestsPerWindow)/cfg.Rate.Window.Seconds(), cfg.Rate.RequestsPerWindow)
		stopCleanup := rl.StartCleanup(time.Minute, 2*cfg.Rate.Window)
		defer stopCleanup()
		limiter = rl
	}

	// --- Services ---
	events := service.NewEvents(publisher, hub)
	authSvc := service.NewAuthService(store, remote, cfg.Auth, events, metrics)
	projectSvc := service.NewProjectService(store, remote, generator, events, metrics)
	pipelineSvc := service.NewPipelineService(store, remote, cfg.Deploy.Domain, events, metrics)

	// --- HTTP ---
	handlers := &cfhttp.Handlers{
		Projects:  projectSvc,
		Pipelines: pipelineSvc,
		Auth:      authSvc,
		Health:    checks,
	}
	httpMetrics := cfhttp.NewMetrics()

	r := chi.NewRouter()

	// Middleware
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(cfhttp.Logger)
	r.Use(httpMetrics.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.Auth(authSvc))
	r.Use(middleware.RateLimit(limiter, httpMetrics.RateLimited))
	if idemStore != nil {
		r.Use(middleware.Idempotency(idemStore))
	}

	r.Handle("/metrics", httpMetrics.Handler())
	r.Get("/ws", hub.HandleWS)
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))
		cfhttp.MountRoutes(r, handlers)
	})

	addr := ":" + cfg.Server.Port

	// No WriteTimeout: /ws connections are long-lived.
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			done <- syscall.SIGTERM
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// openTemplates returns the embedded template set, overlaid by cfg.Dir when set.
func openTemplates(cfg config.Templates) (templatestore.Store, error) {
	if cfg.Dir == "" {
		return templatefs.New(templatefs.Builtin()), nil
	}
	return templatefs.NewWithOverlay(cfg.Dir)
}
