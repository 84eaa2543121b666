package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Msocha19/SSBD-TUL-2023/internal/account"
	"github.com/Msocha19/SSBD-TUL-2023/internal/auth"
	"github.com/Msocha19/SSBD-TUL-2023/internal/config"
	"github.com/Msocha19/SSBD-TUL-2023/internal/health"
	"github.com/Msocha19/SSBD-TUL-2023/internal/logger"
	"github.com/Msocha19/SSBD-TUL-2023/internal/metrics"
	appmw "github.com/Msocha19/SSBD-TUL-2023/internal/middleware"
	"github.com/Msocha19/SSBD-TUL-2023/internal/notification"
	"github.com/Msocha19/SSBD-TUL-2023/internal/rates"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

const version = "1.0.0"

func main() {
	// Not fatal: production supplies real environment variables.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(logger.DefaultConfig())

	if cfg.JWT.Secret == "" {
		log.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	dbPool, err := setupDatabase(cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	log.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.DBName)

	prometheus.MustRegister(metrics.NewPoolCollector(dbPool))

	store := repository.NewStore(dbPool)
	hasher := auth.NewHasher()
	policy := auth.NewPasswordPolicy()
	tokenService := auth.NewTokenService(cfg.JWT)

	sender := notification.NewSMTPSender(cfg.Mail)
	dispatcher := notification.NewDispatcher(sender, cfg, log)
	defer dispatcher.Close()

	authService := auth.NewService(store, hasher, tokenService, dispatcher, cfg, log)
	accountService := account.NewService(store, hasher, dispatcher, cfg, log)
	rateService := rates.NewService(store, log)

	authHandler := auth.NewHandler(authService, log)
	accountHandler := account.NewHandler(accountService, policy, log)
	rateHandler := rates.NewHandler(rateService, log)
	healthHandler := health.NewHandler(health.Config{DBPool: dbPool, Version: version})

	authMiddleware := appmw.NewAuthMiddleware(tokenService)
	loggingMiddleware := appmw.NewLoggingMiddleware(log)
	loginLimiter := appmw.NewLoginRateLimiter(10, time.Minute)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(loggingMiddleware.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Frontend.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Match"},
		ExposedHeaders:   []string{"ETag", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		auth.RegisterRoutes(r, authHandler, loginLimiter.Handler)
		account.RegisterRoutes(r, accountHandler, authMiddleware)
		rates.RegisterRoutes(r, rateHandler, authMiddleware)
	})

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sweeper := account.NewSweeper(accountService, cfg.Sweeper.Interval, log)
	go sweeper.Run(sweepCtx)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	healthHandler.SetReady(false)
	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	log.Info("server exited")
}

// setupDatabase creates and configures the connection pool.
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
