package reporter

import (
	"encoding/json"
	"io"

	"github.com/ZanzyTHEbar/introscore/internal/analysis"
)

// JSONReporter writes the full result as indented JSON
type JSONReporter struct {
	w io.Writer
}

func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{w: w}
}

func (r *JSONReporter) Report(result *analysis.EvaluationResult) error {
	encoder := json.NewEncoder(r.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
