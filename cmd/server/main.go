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

	_ "github.com/ZanzyTHEbar/introscore/docs"
	"github.com/ZanzyTHEbar/introscore/internal/app"
	"github.com/ZanzyTHEbar/introscore/internal/cache"
	"github.com/ZanzyTHEbar/introscore/internal/config"
	"github.com/ZanzyTHEbar/introscore/internal/monitoring"
	"github.com/ZanzyTHEbar/introscore/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// @title       introscore API
// @version     1.0
// @description Scores spoken self-introduction transcripts against a 100-point rubric.
// @BasePath    /
func main() {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := monitoring.ParseLevel(cfg.LogLevel)
	logger := monitoring.NewLogger(os.Stdout, level)
	slog.SetDefault(logger.Logger)
	if level > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to build evaluator", "error", err)
		os.Exit(1)
	}

	redisClient := a.ConnectRedis(ctx)

	limiterCfg := ratelimit.DefaultConfig()
	limiterCfg.IPLimitPerMin = cfg.RateLimit.PerMinute
	limiter := ratelimit.NewRateLimiter(redisClient, limiterCfg, a.Metrics)

	var store cache.Store
	switch {
	case cfg.Cache.TTL == 0:
		logger.Info("Response cache disabled")
	case redisClient.IsEnabled():
		store = cache.NewRedisStore(redisClient.Client(), "", cfg.Cache.TTL)
	default:
		mem := cache.NewCache(cfg.Cache.TTL)
		defer mem.Stop()
		store = mem
	}

	a.Health.CheckNow(ctx)
	go a.Health.StartHealthChecks(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(&server{app: a, limiter: limiter, cache: store}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.SystemLogger("startup", "listening on "+cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.SystemLogger("shutdown", "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	limiter.Close()
	if err := a.Close(); err != nil {
		logger.Warn("Failed to release resources", "error", err)
	}

	logger.SystemLogger("shutdown", "server exited")
}
