package reporter

import (
	"fmt"
	"io"
	"os"

	"github.com/ZanzyTHEbar/introscore/internal/analysis"
	"golang.org/x/term"
)

const (
	FormatTerminal = "terminal"
	FormatJSON     = "json"
)

// Reporter renders one evaluation
type Reporter interface {
	Report(result *analysis.EvaluationResult) error
}

// New returns the reporter for format. Terminal output is styled only when
// w is a TTY.
func New(format string, w io.Writer) (Reporter, error) {
	switch format {
	case FormatJSON:
		return NewJSONReporter(w), nil
	case FormatTerminal, "":
		return NewTerminalReporter(w, IsTerminal(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want %s or %s)", format, FormatTerminal, FormatJSON)
	}
}

// IsTerminal reports whether w writes to an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
