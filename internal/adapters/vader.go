package adapters

import (
	"context"

	"github.com/ZanzyTHEbar/introscore/internal/analysis"
	"github.com/jonreiter/govader"
)

// Vader scores sentiment with the VADER lexicon. The analyzer is read-only
// after construction.
type Vader struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVader() *Vader {
	return &Vader{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *Vader) Polarity(ctx context.Context, text string) (analysis.Polarity, error) {
	if err := ctx.Err(); err != nil {
		return analysis.Polarity{}, err
	}

	s := v.analyzer.PolarityScores(text)
	return analysis.Polarity{
		Compound: s.Compound,
		Positive: s.Positive,
		Neutral:  s.Neutral,
		Negative: s.Negative,
	}, nil
}
