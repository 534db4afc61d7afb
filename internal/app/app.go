package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"stagepass/internal/config"
	"stagepass/internal/external"
	"stagepass/internal/postgres"
	redisx "stagepass/internal/redis"
	postgresrepo "stagepass/internal/repository/postgres"
	redisrepo "stagepass/internal/repository/redis"
	"stagepass/internal/service"
	"stagepass/internal/service/checkout"
	"stagepass/internal/service/reservation"
	httpgin "stagepass/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	services   *service.Services
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redisx.New(context.Background(), redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisx.NewSeatsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(
		rdb, "stagepass:v1:rl", cfg.App.CheckoutRateLimit, cfg.App.CheckoutRateWindow,
	)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, cfg.App.IdempotencyTTL)

	gateway := external.NewPaystackClient(external.PaystackConfig{
		BaseURL:   cfg.Paystack.BaseURL,
		SecretKey: cfg.Paystack.SecretKey,
		Currency:  cfg.Paystack.Currency,
	})

	// Initialize services
	services := service.NewServices(store, cache, pubsub, limiter, gateway, logger, service.Config{
		Reservation: reservation.Config{HoldTTL: cfg.App.HoldTTL},
		Checkout: checkout.Config{
			CallbackURL: cfg.App.BaseURL + "/payments/verify",
		},
	})

	// Initialize Gin router
	router := httpgin.NewRouter(
		services,
		idempotencyStore,
		gateway,
		httpgin.RouterConfig{FrontendURL: cfg.App.FrontendURL},
		logger,
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		services: services,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Reap reservations abandoned past the hold TTL
	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.App.ReapInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				released, err := a.services.Reservation.ReleaseStale(gCtx)
				if err != nil {
					a.logger.Error("stale reservation sweep failed", "error", err)
					continue
				}
				if released > 0 {
					a.logger.Info("stale reservations released", "count", released)
				}
			}
		}
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
