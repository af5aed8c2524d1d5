package types

import "github.com/ZanzyTHEbar/introscore/internal/analysis"

// EvaluateRequest is the body of POST /evaluate. Fractional durations are
// truncated to whole seconds.
type EvaluateRequest struct {
	Transcript string  `json:"transcript" example:"Hello everyone, my name is Asha..."`
	Duration   float64 `json:"duration" example:"52"`
}

// Seconds is the duration truncated to whole seconds
func (r EvaluateRequest) Seconds() int {
	return int(r.Duration)
}

type EvaluateResponse struct {
	Success bool                       `json:"success"`
	Results *analysis.EvaluationResult `json:"results"`
}

// SampleResponse is the demo transcript served by GET /sample
type SampleResponse struct {
	Transcript string `json:"transcript"`
	Duration   int    `json:"duration"`
}

type HealthResponse struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	Timestamp     string         `json:"timestamp"`
	Semantic      bool           `json:"semantic"`
	Collaborators map[string]any `json:"collaborators"`
}
