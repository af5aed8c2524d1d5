package monitoring

import (
	"context"
	"time"

	"github.com/ZanzyTHEbar/introscore/internal/analysis"
)

// InstrumentGrammar times every Check call and records it under service
func InstrumentGrammar(service string, next analysis.GrammarChecker, metrics *Metrics, logger *Logger) analysis.GrammarChecker {
	return analysis.GrammarCheckFunc(func(ctx context.Context, text string) ([]analysis.GrammarIssue, error) {
		start := time.Now()
		issues, err := next.Check(ctx, text)
		record(service, "check", start, err, metrics, logger)
		return issues, err
	})
}

// InstrumentSentiment times every Polarity call and records it under service
func InstrumentSentiment(service string, next analysis.SentimentAnalyzer, metrics *Metrics, logger *Logger) analysis.SentimentAnalyzer {
	return analysis.PolarityFunc(func(ctx context.Context, text string) (analysis.Polarity, error) {
		start := time.Now()
		p, err := next.Polarity(ctx, text)
		record(service, "polarity", start, err, metrics, logger)
		return p, err
	})
}

// InstrumentEmbedder times every Embed call and records it under service
func InstrumentEmbedder(service string, next analysis.Embedder, metrics *Metrics, logger *Logger) analysis.Embedder {
	return analysis.EmbedFunc(func(ctx context.Context, texts []string) ([][]float64, error) {
		start := time.Now()
		vectors, err := next.Embed(ctx, texts)
		record(service, "embed", start, err, metrics, logger)
		return vectors, err
	})
}

func record(service, op string, start time.Time, err error, metrics *Metrics, logger *Logger) {
	d := time.Since(start)
	if metrics != nil {
		metrics.RecordCollaboratorCall(service, d, err)
	}
	if logger != nil {
		logger.CollaboratorLogger(service, op, d, err)
	}
}
