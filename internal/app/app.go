package app

import (
	"context"

	"github.com/ZanzyTHEbar/introscore/internal/adapters"
	"github.com/ZanzyTHEbar/introscore/internal/analysis"
	"github.com/ZanzyTHEbar/introscore/internal/config"
	"github.com/ZanzyTHEbar/introscore/internal/monitoring"
	"github.com/ZanzyTHEbar/introscore/internal/ratelimit"
	"github.com/ZanzyTHEbar/introscore/internal/resilience"
	"github.com/ZanzyTHEbar/introscore/internal/rubric"
)

const (
	ServiceSentiment = "vader"
	ServiceRedis     = "redis"
)

// App is the evaluator together with the collaborators and infrastructure
// it was assembled from
type App struct {
	Config    *config.Config
	Logger    *monitoring.Logger
	Metrics   *monitoring.Metrics
	Evaluator *analysis.Evaluator
	Pool      *resilience.ConnectionPool
	Breakers  *resilience.CircuitBreakerRegistry
	Health    *resilience.DegradationManager
	Redis     *ratelimit.RedisClient

	collaborators []string
}

// New wires the evaluator from cfg. Grammar checking and embeddings are
// attached only when their URLs are configured; sentiment always runs
// in-process.
func New(ctx context.Context, cfg *config.Config, logger *monitoring.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	degradation := resilience.DefaultDegradationConfig()
	degradation.HealthCheckInterval = cfg.HealthCheckInterval

	pool := resilience.DefaultPoolConfig()
	if cfg.RequestTimeout < pool.RequestTimeout {
		pool.RequestTimeout = cfg.RequestTimeout
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  monitoring.NewMetrics(),
		Pool:     resilience.NewConnectionPool(pool),
		Breakers: resilience.NewCircuitBreakerRegistry(),
		Health:   resilience.NewDegradationManager(degradation, logger.Logger),
	}

	r, err := rubric.Load(cfg.RubricFile)
	if err != nil {
		return nil, err
	}

	opts := []analysis.Option{
		analysis.WithRubric(r),
		analysis.WithSemantic(cfg.Semantic.Enabled),
		analysis.WithLogger(logger.Logger),
	}

	if cfg.LanguageTool.URL != "" {
		client := a.serviceClient(adapters.ServiceLanguageTool, resilience.FastRetryPolicy)
		lt := adapters.NewLanguageTool(cfg.LanguageTool.URL, cfg.LanguageTool.Language, client)
		a.Health.RegisterService(adapters.ServiceLanguageTool, lt.Ping)
		opts = append(opts, analysis.WithGrammarChecker(
			monitoring.InstrumentGrammar(adapters.ServiceLanguageTool, lt, a.Metrics, logger)))
		a.collaborators = append(a.collaborators, adapters.ServiceLanguageTool)
	} else {
		logger.Info("LanguageTool URL not set, grammar checks disabled")
	}

	if cfg.Embeddings.URL != "" && cfg.Semantic.Enabled {
		client := a.serviceClient(adapters.ServiceEmbeddings, resilience.StandardRetryPolicy)
		emb := adapters.NewEmbeddings(cfg.Embeddings.URL, cfg.Embeddings.Model, cfg.Embeddings.APIKey, client)
		a.Health.RegisterService(adapters.ServiceEmbeddings, emb.Ping)
		opts = append(opts, analysis.WithEmbedder(
			monitoring.InstrumentEmbedder(adapters.ServiceEmbeddings, emb, a.Metrics, logger)))
		a.collaborators = append(a.collaborators, adapters.ServiceEmbeddings)
	}

	sentiment := monitoring.InstrumentSentiment(ServiceSentiment, adapters.NewVader(), a.Metrics, logger)
	a.collaborators = append(a.collaborators, ServiceSentiment)

	a.Evaluator, err = analysis.NewEvaluator(ctx, sentiment, opts...)
	if err != nil {
		a.Pool.Close()
		return nil, err
	}

	logger.Info("Evaluator ready",
		"collaborators", a.collaborators,
		"semantic", a.Evaluator.SemanticEnabled(),
		"rubric_file", cfg.RubricFile)

	return a, nil
}

func (a *App) serviceClient(name string, retry resilience.RetryConfig) *resilience.ServiceClient {
	breaker := a.Breakers.GetOrCreate(name, resilience.CircuitBreakerConfig{
		FailureThreshold: a.Config.Breaker.FailureThreshold,
		RecoveryTimeout:  a.Config.Breaker.RecoveryTimeout,
	})
	return a.Pool.Service(name, breaker, retry, a.Health)
}

// ConnectRedis opens the shared Redis client. A failed connection is logged
// and leaves a disabled client, so callers fall back to in-memory state.
func (a *App) ConnectRedis(ctx context.Context) *ratelimit.RedisClient {
	client, err := ratelimit.NewRedisClient(ctx, a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB)
	if err != nil {
		a.Logger.Warn("Redis unavailable, using in-memory rate limits and cache", "addr", a.Config.Redis.Addr, "error", err)
	}
	if client.IsEnabled() {
		a.Health.RegisterService(ServiceRedis, client.HealthCheck)
		a.collaborators = append(a.collaborators, ServiceRedis)
	}
	a.Redis = client
	return client
}

// Collaborators names the services the evaluator was wired with
func (a *App) Collaborators() []string {
	return append([]string(nil), a.collaborators...)
}

func (a *App) Close() error {
	err := a.Pool.Close()
	if a.Redis != nil {
		if cerr := a.Redis.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
