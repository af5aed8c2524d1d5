package analysis

import (
	"strings"

	"github.com/ZanzyTHEbar/introscore/internal/rubric"
	"github.com/ZanzyTHEbar/introscore/internal/textmetrics"
)

// AnalyzeClarity scores filler-word density per hundred words.
func AnalyzeClarity(r *rubric.Rubric, transcript string) ClarityReport {
	words := textmetrics.WordCount(transcript)
	if words == 0 {
		return ClarityReport{
			Score: r.Max.Clarity,
			Max:   r.Max.Clarity,
			Details: ClarityDetails{
				FillerDetails: map[string]int{},
			},
		}
	}

	count, details := r.CountFillers(strings.ToLower(transcript))
	rate := textmetrics.Round(float64(count)/float64(words)*100, 2)

	return ClarityReport{
		FillerCount: count,
		FillerRate:  rate,
		Score:       clampInt(r.Clarity.Score(rate), 0, r.Max.Clarity),
		Max:         r.Max.Clarity,
		Details: ClarityDetails{
			FillerCount:   count,
			FillerRate:    rate,
			TotalWords:    words,
			FillerDetails: details,
		},
	}
}
