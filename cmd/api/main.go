package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/facility-ops/internal/api/http"
	"github.com/spec-kit/facility-ops/internal/api/http/handlers"
	"github.com/spec-kit/facility-ops/internal/auth"
	"github.com/spec-kit/facility-ops/internal/authz"
	"github.com/spec-kit/facility-ops/internal/config"
	"github.com/spec-kit/facility-ops/internal/events"
	"github.com/spec-kit/facility-ops/internal/observability"
	"github.com/spec-kit/facility-ops/internal/persistence"
	"github.com/spec-kit/facility-ops/internal/repository"
	"github.com/spec-kit/facility-ops/internal/repository/memstore"
	"github.com/spec-kit/facility-ops/internal/service"
	"github.com/spec-kit/facility-ops/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	dispatcher := events.NewInMemoryDispatcher(logger)
	var redis *persistence.Redis
	if cfg.Events.RedisEnabled {
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		dispatcher = events.NewRedisDispatcher(dispatcher, redis, cfg.Events.RedisChannel)
	}
	worker.StartMetricsWorker(dispatcher, metrics, logger)

	gate, err := authz.NewGate(authz.Policy{StaffCanAddCost: cfg.Tickets.StaffCanAddCost})
	if err != nil {
		logger.Fatal("failed to build authorization gate", zap.Error(err))
	}

	deps := storeDependencies(pg, logger)
	deps.Gate = gate
	deps.Dispatcher = dispatcher
	deps.Logger = logger
	deps.PageSizes = service.PageSizes{Default: cfg.Tickets.DefaultPageSize, Max: cfg.Tickets.MaxPageSize}
	ticketService := service.NewTicketService(deps)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, cfg.Events.RedisEnabled),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, logger),
		Gatherer:       registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// storeDependencies selects the Postgres repositories, or the in-memory store when no DSN
// is configured.
func storeDependencies(pg *persistence.Postgres, logger *zap.Logger) service.TicketDependencies {
	if !pg.Enabled() {
		logger.Warn("ticket data is kept in memory and lost on restart")
		store := memstore.New()
		return service.TicketDependencies{
			TicketRepo: store.Tickets(),
			EventRepo:  store.Events(),
			CostRepo:   store.Costs(),
			References: store.References(),
			Transactor: store,
		}
	}
	return service.TicketDependencies{
		TicketRepo: repository.NewTicketRepository(pg.Pool),
		EventRepo:  repository.NewTicketEventRepository(pg.Pool),
		CostRepo:   repository.NewTicketCostRepository(pg.Pool),
		References: repository.NewReferenceRepository(pg.Pool),
		Transactor: repository.NewTransactor(pg.Pool),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
