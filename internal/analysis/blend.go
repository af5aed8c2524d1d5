package analysis

import (
	"math"

	"github.com/ZanzyTHEbar/introscore/internal/textmetrics"
)

// Blend mixes a rule-based score with a similarity in [0, 1]:
// floor((wBase*base/max + wSem*sim) * max), clamped to [0, max].
func Blend(base, max int, sim, wBase, wSem float64) int {
	if max <= 0 {
		return 0
	}
	normalized := float64(base)/float64(max)*wBase + clip(sim, -1, 1)*wSem
	return clampInt(int(math.Floor(normalized*float64(max))), 0, max)
}

// SemanticContribution is the share of a blended score attributable to the
// similarity, rounded to one decimal.
func SemanticContribution(sim, wSem float64, max int) float64 {
	return textmetrics.Round(sim*wSem*float64(max), 1)
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func percentOf(part, whole int) float64 {
	return textmetrics.Percentage(part, whole)
}
