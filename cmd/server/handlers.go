package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/introscore/internal/analysis"
	"github.com/ZanzyTHEbar/introscore/internal/cache"
	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
	"github.com/ZanzyTHEbar/introscore/internal/monitoring"
	"github.com/ZanzyTHEbar/introscore/internal/resilience"
	"github.com/ZanzyTHEbar/introscore/internal/security"
	"github.com/ZanzyTHEbar/introscore/internal/types"
	"github.com/ZanzyTHEbar/introscore/internal/version"
	"github.com/gin-gonic/gin"
)

// handleEvaluate godoc
// @Summary  Evaluate a transcript
// @Tags     evaluation
// @Accept   json
// @Produce  json
// @Param    request body     types.EvaluateRequest true "Transcript and duration in seconds"
// @Success  200     {object} types.EvaluateResponse
// @Failure  400     {object} errors.Response
// @Failure  413     {object} errors.Response
// @Failure  415     {object} errors.Response
// @Failure  429     {object} errors.Response
// @Router   /evaluate [post]
func (s *server) handleEvaluate(c *gin.Context) {
	start := time.Now()

	var req types.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			err = apperrors.NewValidationError("Invalid request body: " + err.Error())
		}
		apperrors.Abort(c, err)
		return
	}

	transcript := strings.TrimSpace(req.Transcript)
	duration := req.Seconds()
	if err := analysis.ValidateInput(transcript, duration); err != nil {
		apperrors.Abort(c, err)
		return
	}
	if err := security.CheckTranscript(transcript); err != nil {
		apperrors.Abort(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.app.Config.RequestTimeout)
	defer cancel()

	result, err := s.app.Evaluator.Evaluate(ctx, transcript, duration)
	if err != nil {
		apperrors.Abort(c, err)
		return
	}

	elapsed := time.Since(start)
	fallbacks := result.Fallbacks()
	s.app.Metrics.RecordEvaluation(result.FinalScore, result.Grade, fallbacks, elapsed)
	s.app.Logger.EvaluationLogger(monitoring.RequestID(c), result.Metadata.WordCount, result.FinalScore,
		result.Grade, fallbacks, elapsed, c.GetBool("cache_hit"))

	if collaboratorFailed(result) {
		c.Set(cache.SkipKey, true)
	}

	c.JSON(http.StatusOK, types.EvaluateResponse{Success: true, Results: result})
}

// collaboratorFailed is true when a configured collaborator errored during
// this evaluation, as opposed to not being configured at all
func collaboratorFailed(r *analysis.EvaluationResult) bool {
	return r.Scores.LanguageAndGrammar.Details.Grammar.Error != "" ||
		r.Scores.Engagement.Details.Error != "" ||
		r.Scores.ContentAndStructure.Details.SemanticNote != ""
}

// handleSample godoc
// @Summary  Sample transcript
// @Tags     evaluation
// @Produce  json
// @Success  200 {object} types.SampleResponse
// @Router   /sample [get]
func (s *server) handleSample(c *gin.Context) {
	c.JSON(http.StatusOK, types.SampleResponse{
		Transcript: analysis.SampleTranscript,
		Duration:   analysis.SampleDuration,
	})
}

// handleHealth godoc
// @Summary  Service health
// @Tags     health
// @Produce  json
// @Success  200 {object} types.HealthResponse
// @Failure  503 {object} types.HealthResponse
// @Router   /health [get]
func (s *server) handleHealth(c *gin.Context) {
	resp := types.HealthResponse{
		Status:        "ok",
		Version:       version.Short(),
		Timestamp:     time.Now().Format(time.RFC3339),
		Semantic:      s.app.Evaluator.SemanticEnabled(),
		Collaborators: make(map[string]any),
	}

	for _, name := range s.app.Collaborators() {
		health, tracked := s.app.Health.GetServiceHealth(name)
		if !tracked {
			resp.Collaborators[name] = "in_process"
			continue
		}
		resp.Collaborators[name] = health.Level
		if health.Level == resilience.LevelEmergency {
			resp.Status = "degraded"
		}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

func (s *server) handleServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services":         s.app.Health.Snapshot(),
		"circuit_breakers": s.app.Breakers.Stats(),
		"timestamp":        time.Now().Format(time.RFC3339),
	})
}
