// Command cashtrackr runs the CashTrackr budget-tracking API server.
package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cashtrackr/api/pkg/api"
	"github.com/cashtrackr/api/pkg/auth"
	"github.com/cashtrackr/api/pkg/config"
	"github.com/cashtrackr/api/pkg/mail"
	"github.com/cashtrackr/api/pkg/middleware"
	"github.com/cashtrackr/api/pkg/observability"
	"github.com/cashtrackr/api/pkg/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)
	ctx := context.Background()

	store, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		logger.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		logger.WithError(err).Error("failed to initialize schema")
		os.Exit(1)
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())

	rateLimit, err := buildRateLimiter(cfg, logger, metrics)
	if err != nil {
		logger.WithError(err).Error("failed to configure rate limiter")
		os.Exit(1)
	}

	var mailer mail.Mailer
	if cfg.Mail.Host != "" {
		mailer = mail.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)
	} else {
		logger.Warn("SMTP_HOST not set, outgoing email will be logged only")
		mailer = mail.NewLogMailer(logger)
	}

	server := api.NewServer(api.Options{
		Users:          store.Users,
		Budgets:        store.Budgets,
		Expenses:       store.Expenses,
		JWT:            auth.NewJWTManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTExpiry),
		Emails:         mail.NewAuthEmail(mailer),
		Logger:         logger,
		Metrics:        metrics,
		RateLimit:      rateLimit,
		Pinger:         store,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server failed")
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

// buildRateLimiter prefers the Redis-backed limiter so multiple instances
// share one counter; without REDIS_URL it falls back to process memory.
func buildRateLimiter(cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) (*middleware.RateLimit, error) {
	limitCfg := middleware.DefaultRateLimitConfig()

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(opts)
		logger.WithField("addr", opts.Addr).Info("using redis rate limiter")
		return middleware.NewRateLimit(middleware.NewRedisRateLimiter(client, limitCfg), logger, metrics), nil
	}

	return middleware.NewRateLimit(middleware.NewMemoryRateLimiter(limitCfg), logger, metrics), nil
}
