package analysis

import (
	"github.com/ZanzyTHEbar/introscore/internal/rubric"
	"github.com/ZanzyTHEbar/introscore/internal/textmetrics"
)

const (
	InvalidDurationLabel = "Invalid duration"
	InvalidDurationError = "Duration must be greater than 0"
)

// AnalyzeSpeechRate bands the words-per-minute rate. A non-positive duration
// scores zero instead of failing.
func AnalyzeSpeechRate(r *rubric.Rubric, transcript string, durationSeconds int) SpeechRateReport {
	words := textmetrics.WordCount(transcript)
	if durationSeconds <= 0 {
		return SpeechRateReport{
			WordCount:       words,
			DurationSeconds: durationSeconds,
			Label:           InvalidDurationLabel,
			Max:             r.Max.SpeechRate,
			Error:           InvalidDurationError,
		}
	}

	wpm := textmetrics.WordsPerMinute(words, durationSeconds)
	score, label := r.SpeechRate.Classify(wpm)

	return SpeechRateReport{
		WPM:             wpm,
		WordCount:       words,
		DurationSeconds: durationSeconds,
		Label:           label,
		Score:           clampInt(score, 0, r.Max.SpeechRate),
		Max:             r.Max.SpeechRate,
	}
}
