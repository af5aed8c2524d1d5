package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
	"github.com/ZanzyTHEbar/introscore/internal/rubric"
	"github.com/ZanzyTHEbar/introscore/internal/textmetrics"
	"golang.org/x/sync/errgroup"
)

// Evaluator runs every analyzer over a transcript and aggregates the result.
// It is immutable after construction and safe for concurrent use when its
// collaborators are.
type Evaluator struct {
	rubric    *rubric.Rubric
	grammar   GrammarChecker
	sentiment SentimentAnalyzer
	embedder  Embedder
	semantic  *SemanticEnhancer
	logger    *slog.Logger

	semanticRequested bool
}

type Option func(*Evaluator)

func WithRubric(r *rubric.Rubric) Option {
	return func(e *Evaluator) {
		if r != nil {
			e.rubric = r
		}
	}
}

func WithGrammarChecker(c GrammarChecker) Option {
	return func(e *Evaluator) {
		if c != nil {
			e.grammar = c
		}
	}
}

// WithEmbedder supplies the embedding collaborator. Semantic enhancement is
// attempted only when an embedder is given and WithSemantic(false) is not.
func WithEmbedder(emb Embedder) Option {
	return func(e *Evaluator) {
		if emb != nil {
			e.embedder = emb
		}
	}
}

func WithSemantic(enabled bool) Option {
	return func(e *Evaluator) {
		e.semanticRequested = enabled
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEvaluator builds an evaluator. The sentiment analyzer is required. If
// semantic enhancement is requested but the descriptions cannot be embedded,
// the evaluator is still returned with enhancement disabled.
func NewEvaluator(ctx context.Context, sentiment SentimentAnalyzer, opts ...Option) (*Evaluator, error) {
	if sentiment == nil {
		return nil, apperrors.NewConfigurationError("sentiment analyzer is required", nil)
	}

	e := &Evaluator{
		rubric:            rubric.Default(),
		grammar:           NoGrammarChecker{},
		sentiment:         sentiment,
		logger:            slog.Default(),
		semanticRequested: true,
	}
	for _, opt := range opts {
		opt(e)
	}

	if !e.rubric.Compiled() {
		if err := e.rubric.Compile(); err != nil {
			return nil, apperrors.NewConfigurationError("invalid rubric: "+err.Error(), err)
		}
	}

	if e.semanticRequested && e.embedder != nil {
		enh, err := NewSemanticEnhancer(ctx, e.embedder, e.rubric)
		if err != nil {
			e.logger.Warn("Semantic enhancement disabled", "error", err)
		} else {
			e.semantic = enh
			e.logger.Info("Semantic enhancement enabled")
		}
	}

	return e, nil
}

// SemanticEnabled reports whether scores are blended with embedding similarity.
func (e *Evaluator) SemanticEnabled() bool {
	return e.semantic != nil
}

func (e *Evaluator) Rubric() *rubric.Rubric {
	return e.rubric
}

// ValidateInput rejects a blank transcript or a non-positive duration.
func ValidateInput(transcript string, durationSeconds int) error {
	if strings.TrimSpace(transcript) == "" {
		return apperrors.NewValidationError("Please provide a transcript text.", "transcript")
	}
	if durationSeconds <= 0 {
		return apperrors.NewValidationError("Please provide a valid duration (in seconds).", "duration")
	}
	return nil
}

// Evaluate scores transcript. Collaborator failures are absorbed into the
// report; the only error is a cancelled or expired ctx.
func (e *Evaluator) Evaluate(ctx context.Context, transcript string, durationSeconds int) (*EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blank := strings.TrimSpace(transcript) == ""

	var (
		issues       []GrammarIssue
		grammarErr   error
		polarity     Polarity
		sentimentErr error
		sims         SemanticScores
		semanticErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		grammarErr = guard("grammar checker", func() (err error) {
			issues, err = e.grammar.Check(gctx, transcript)
			return err
		})
		return nil
	})
	if !blank {
		g.Go(func() error {
			sentimentErr = guard("sentiment analyzer", func() (err error) {
				polarity, err = e.sentiment.Polarity(gctx, transcript)
				return err
			})
			return nil
		})
		if e.semantic != nil {
			g.Go(func() error {
				semanticErr = guard("embedder", func() (err error) {
					sims, err = e.semantic.Similarities(gctx, transcript)
					return err
				})
				return nil
			})
		}
	}

	content := AnalyzeContent(e.rubric, transcript)
	speech := AnalyzeSpeechRate(e.rubric, transcript, durationSeconds)
	clarity := AnalyzeClarity(e.rubric, transcript)

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if grammarErr != nil && !errors.Is(grammarErr, ErrUnavailable) {
		e.logger.Warn("Grammar check failed, assuming no errors", "error", grammarErr)
	}
	if sentimentErr != nil {
		e.logger.Warn("Sentiment analysis failed", "error", sentimentErr)
	}

	language := languageReport(e.rubric, transcript, issues, grammarErr)
	engagement := engagementReport(e.rubric, polarity, sentimentErr, blank)

	content.Details.ScoringMethod = e.rubric.Semantic.Content.FallbackMethod
	engagement.Details.ScoringMethod = e.rubric.Semantic.Engagement.FallbackMethod

	if e.semantic != nil && !blank {
		if semanticErr != nil {
			e.logger.Warn("Semantic enhancement skipped", "error", semanticErr)
			note := "Semantic enhancement skipped: " + semanticErr.Error()
			content.Details.SemanticNote = note
			engagement.Details.SemanticNote = note
		} else {
			e.semantic.EnhanceContent(&content, sims.Content)
			if sentimentErr == nil {
				e.semantic.EnhanceEngagement(&engagement, sims.Engagement)
			}
		}
	}

	result := &EvaluationResult{
		Transcript: transcript,
		Metadata: Metadata{
			WordCount:       textmetrics.WordCount(transcript),
			SentenceCount:   textmetrics.SentenceCount(transcript),
			DurationSeconds: durationSeconds,
			WPM:             speech.WPM,
		},
		Scores: Scores{
			ContentAndStructure: content,
			SpeechRate:          speech,
			LanguageAndGrammar:  language,
			Clarity:             clarity,
			Engagement:          engagement,
		},
		MaxScore: e.rubric.Max.Total,
	}

	for _, c := range result.Criteria() {
		result.FinalScore += c.CriterionTotal()
	}
	result.FinalScore = clampInt(result.FinalScore, 0, result.MaxScore)
	result.Percentage = percentOf(result.FinalScore, result.MaxScore)
	result.Grade = Grade(result.Percentage)

	return result, nil
}

// guard runs a collaborator call and reports a panic as its error. Panics on
// errgroup goroutines are out of reach of the caller's recover.
func guard(collaborator string, call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", collaborator, r)
		}
	}()
	return call()
}
