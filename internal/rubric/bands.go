package rubric

import (
	"fmt"
	"math"
)

// UnknownLabel is reported when a value falls outside every band.
const UnknownLabel = "Unknown"

// Band maps the closed interval [Min, Max] to a score and label.
type Band struct {
	Min   float64 `yaml:"min" json:"min"`
	Max   float64 `yaml:"max" json:"max"`
	Score int     `yaml:"score" json:"score"`
	Label string  `yaml:"label,omitempty" json:"label,omitempty"`
}

// Contains reports whether v lies in the band, bounds included.
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Bands is an ordered range table. Lookup walks it in order and the first
// band containing the value wins, so overlapping bounds resolve to the
// earlier entry.
type Bands []Band

// Lookup returns the first band containing v.
func (bs Bands) Lookup(v float64) (Band, bool) {
	if math.IsNaN(v) {
		return Band{}, false
	}
	for _, b := range bs {
		if b.Contains(v) {
			return b, true
		}
	}
	return Band{}, false
}

// Classify returns the score and label for v, or (0, UnknownLabel) when no
// band matches.
func (bs Bands) Classify(v float64) (int, string) {
	b, ok := bs.Lookup(v)
	if !ok {
		return 0, UnknownLabel
	}
	return b.Score, b.Label
}

// Score is Classify without the label.
func (bs Bands) Score(v float64) int {
	s, _ := bs.Classify(v)
	return s
}

// MaxScore is the highest score any band can award.
func (bs Bands) MaxScore() int {
	best := 0
	for _, b := range bs {
		if b.Score > best {
			best = b.Score
		}
	}
	return best
}

func (bs Bands) validate(name string, ceiling int) error {
	if len(bs) == 0 {
		return fmt.Errorf("%s: no bands defined", name)
	}
	for i, b := range bs {
		if math.IsNaN(b.Min) || math.IsNaN(b.Max) || b.Min > b.Max {
			return fmt.Errorf("%s: band %d has invalid bounds [%v, %v]", name, i, b.Min, b.Max)
		}
		if b.Score < 0 || (ceiling > 0 && b.Score > ceiling) {
			return fmt.Errorf("%s: band %d score %d outside [0, %d]", name, i, b.Score, ceiling)
		}
	}
	return nil
}
