package main

import (
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/introscore/internal/app"
	"github.com/ZanzyTHEbar/introscore/internal/cache"
	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
	"github.com/ZanzyTHEbar/introscore/internal/monitoring"
	"github.com/ZanzyTHEbar/introscore/internal/ratelimit"
	"github.com/ZanzyTHEbar/introscore/internal/security"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	sampleLimitPerMin = 60
	maxBodyBytes      = 256 << 10
)

// server holds what the HTTP handlers need. cache may be nil.
type server struct {
	app     *app.App
	limiter *ratelimit.RateLimiter
	cache   cache.Store
}

func newRouter(s *server) *gin.Engine {
	cfg := s.app.Config
	metrics := s.app.Metrics
	logger := s.app.Logger

	r := gin.New()

	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(metrics, logger))
	r.Use(apperrors.ErrorHandler())
	r.Use(apperrors.RecoveryHandler())
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(security.Headers(security.HeadersConfig{HSTS: cfg.Security.HSTS, DocsPrefix: "/swagger/"}))

	evaluate := []gin.HandlerFunc{
		security.LimitBody(maxBodyBytes),
		s.limiter.IPRateLimitMiddleware(),
		security.RequireJSON(),
	}
	if s.cache != nil {
		evaluate = append(evaluate, cache.Middleware(s.cache, "/evaluate", metrics, logger))
	}
	evaluate = append(evaluate, s.handleEvaluate)
	r.POST("/evaluate", evaluate...)

	r.GET("/sample", s.limiter.EndpointRateLimitMiddleware("sample", sampleLimitPerMin), s.handleSample)

	r.GET("/health", s.handleHealth)
	r.GET("/health/services", s.handleServices)

	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.GetStats())
	})
	r.GET("/metrics/prometheus", gin.WrapH(monitoring.PrometheusHandler()))

	r.GET("/cache/stats", func(c *gin.Context) {
		if s.cache == nil {
			c.JSON(http.StatusOK, gin.H{"enabled": false})
			return
		}
		c.JSON(http.StatusOK, s.cache.Stats())
	})

	r.GET("/ratelimit/status", s.limiter.HandleRateLimitStatus())
	if cfg.RateLimit.AdminToken != "" {
		r.POST("/ratelimit/reset", ratelimit.RequireAdminToken(cfg.RateLimit.AdminToken), s.limiter.HandleReset())
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// corsMiddleware allows origins; "*" allows any, none disables CORS headers
func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", monitoring.RequestIDHeader, "X-Admin-Token"},
		ExposeHeaders: []string{monitoring.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
		}
	}
	if !c.AllowAllOrigins {
		c.AllowOrigins = origins
	}
	return cors.New(c)
}
