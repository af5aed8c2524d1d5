package analysis

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/introscore/internal/rubric"
	"github.com/ZanzyTHEbar/introscore/internal/textmetrics"
)

const (
	NoTextInterpretation      = "No text"
	UnavailableInterpretation = "Sentiment unavailable"
)

// AnalyzeEngagement scores the sentiment of the transcript. Blank text is
// not sent to the analyzer.
func AnalyzeEngagement(ctx context.Context, r *rubric.Rubric, sentiment SentimentAnalyzer, transcript string) EngagementReport {
	if strings.TrimSpace(transcript) == "" {
		return engagementReport(r, Polarity{}, nil, true)
	}
	p, err := sentiment.Polarity(ctx, transcript)
	return engagementReport(r, p, err, false)
}

func engagementReport(r *rubric.Rubric, p Polarity, err error, blank bool) EngagementReport {
	report := EngagementReport{Max: r.Max.Engagement}

	switch {
	case blank:
		report.Interpretation = NoTextInterpretation
	case err != nil:
		report.Interpretation = UnavailableInterpretation
		report.Details.Error = err.Error()
	default:
		normalized := (p.Compound + 1) / 2
		_, interpretation := r.Interpretation.Classify(normalized)

		report.Score = clampInt(r.Engagement.Score(normalized), 0, r.Max.Engagement)
		report.Interpretation = interpretation
		report.SentimentCompoundNormalized = textmetrics.Round(normalized, 3)
		report.SentimentPositive = textmetrics.Round(p.Positive, 3)
		report.Details.SentimentCompound = textmetrics.Round(p.Compound, 3)
		report.Details.SentimentPositive = report.SentimentPositive
		report.Details.SentimentNeutral = textmetrics.Round(p.Neutral, 3)
		report.Details.SentimentNegative = textmetrics.Round(p.Negative, 3)
		report.Details.CompoundNormalized = report.SentimentCompoundNormalized
	}

	report.Details.Interpretation = report.Interpretation
	return report
}
