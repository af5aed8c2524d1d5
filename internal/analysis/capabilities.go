package analysis

import (
	"context"
	"errors"
	"math"
)

// ErrUnavailable is returned by collaborators that are not configured.
var ErrUnavailable = errors.New("collaborator unavailable")

// GrammarIssue is one problem reported by a grammar checker.
type GrammarIssue struct {
	Message string `json:"message"`
	Context string `json:"context"`
	Offset  int    `json:"offset"`
	Rule    string `json:"rule,omitempty"`
}

type GrammarChecker interface {
	Check(ctx context.Context, text string) ([]GrammarIssue, error)
}

// Polarity holds VADER-style sentiment scores. Compound is in [-1, 1].
type Polarity struct {
	Compound float64 `json:"compound"`
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

type SentimentAnalyzer interface {
	Polarity(ctx context.Context, text string) (Polarity, error)
}

// Embedder maps each text to a vector. The result has one vector per input,
// in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// GrammarCheckFunc adapts a function to GrammarChecker.
type GrammarCheckFunc func(ctx context.Context, text string) ([]GrammarIssue, error)

func (f GrammarCheckFunc) Check(ctx context.Context, text string) ([]GrammarIssue, error) {
	return f(ctx, text)
}

// PolarityFunc adapts a function to SentimentAnalyzer.
type PolarityFunc func(ctx context.Context, text string) (Polarity, error)

func (f PolarityFunc) Polarity(ctx context.Context, text string) (Polarity, error) {
	return f(ctx, text)
}

// EmbedFunc adapts a function to Embedder.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float64, error)

func (f EmbedFunc) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	return f(ctx, texts)
}

// NoGrammarChecker always reports ErrUnavailable.
type NoGrammarChecker struct{}

func (NoGrammarChecker) Check(context.Context, string) ([]GrammarIssue, error) {
	return nil, ErrUnavailable
}

// NoEmbedder always reports ErrUnavailable.
type NoEmbedder struct{}

func (NoEmbedder) Embed(context.Context, []string) ([][]float64, error) {
	return nil, ErrUnavailable
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
