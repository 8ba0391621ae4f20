// cmd/scorecard-server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"menu-scorecard/internal/analysis"
	"menu-scorecard/internal/api"
	"menu-scorecard/internal/common/config"
	"menu-scorecard/internal/common/database"
	"menu-scorecard/internal/common/logger"
	"menu-scorecard/internal/common/observability"
	"menu-scorecard/internal/leads"
	"menu-scorecard/internal/ratelimit"
	"menu-scorecard/internal/session"

	"github.com/gin-gonic/gin"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting menu scorecard server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Analyzer ---
	analyzer, err := analysis.New(analysis.ConfigFrom(cfg), log, obs)
	if err != nil {
		zapLog.Fatal("analyzer init failed", zap.Error(err))
	}
	zapLog.Info("Analyzer ready", zap.String("analyzer", analyzer.Name()))

	// --- Lead delivery ---
	primary, secondary, err := leads.NewSinksFromConfig(ctx, cfg.Leads)
	if err != nil {
		zapLog.Fatal("lead sinks init failed", zap.Error(err))
	}
	submitter := leads.NewSubmitter(primary, config.GetDuration(cfg.Leads.Webhook.Timeout), log, obs, secondary...)
	zapLog.Info("Lead delivery ready", zap.Int("secondarySinks", len(secondary)))

	// --- Rate limiting, Redis with retry ---
	var (
		limiter ratelimit.Limiter
		ready   func(ctx context.Context) error
	)
	if cfg.RateLimit.Enabled {
		window := config.GetDuration(cfg.RateLimit.Window)
		local := ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, window)
		defer local.Stop()
		limiter = local

		if cfg.Database.Redis.Enabled {
			var rdb *database.RedisClient
			err = retryWithBackoff(func() error {
				var err error
				rdb, err = database.NewRedis(cfg.Database.Redis)
				if err != nil {
					return err
				}
				return rdb.Ping(ctx)
			}, 5, time.Second, zapLog, "Redis connection")

			if err != nil {
				zapLog.Warn("redis unavailable, rate limiting stays local", zap.Error(err))
			} else {
				defer rdb.Close()
				limiter = ratelimit.NewFallback(ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Requests, window), local, log)
				ready = rdb.Ping
				zapLog.Info("Redis connected successfully")
			}
		}
	}

	// --- Sessions ---
	store := session.NewStore(analyzer, submitter, config.GetDuration(cfg.Session.TTL), log)
	go store.Run(ctx, config.GetDuration(cfg.Session.SweepInterval))

	// --- HTTP ---
	handler := api.NewHandler(store, analyzer, log, api.Options{
		MaxUploadBytes: cfg.Capture.MaxUploadBytes,
		MaxWait:        config.GetDuration(cfg.Server.MaxWait),
	})
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Limiter:        limiter,
		Ready:          ready,
	}, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	store.Close()
	if err := submitter.Wait(shutdownCtx); err != nil {
		zapLog.Warn("Lead deliveries still in flight at shutdown", zap.Error(err))
	}

	zapLog.Info("Menu scorecard server stopped")
}
