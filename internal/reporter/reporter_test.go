package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ZanzyTHEbar/introscore/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(t *testing.T) *analysis.EvaluationResult {
	t.Helper()
	sentiment := analysis.PolarityFunc(func(context.Context, string) (analysis.Polarity, error) {
		return analysis.Polarity{Compound: 0.9, Positive: 0.25, Neutral: 0.75}, nil
	})
	e, err := analysis.NewEvaluator(context.Background(), sentiment,
		analysis.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	res, err := e.Evaluate(context.Background(), analysis.SampleTranscript, analysis.SampleDuration)
	require.NoError(t, err)
	return res
}

func TestTerminalReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTerminalReporter(&buf, false).Report(sampleResult(t)))
	out := buf.String()

	for _, want := range []string{
		"STUDENT INTRODUCTION EVALUATION REPORT",
		"  Word Count: 134",
		"  Duration: 52 seconds",
		"  Speech Rate: 154.6 WPM",
		"CONTENT & STRUCTURE (40 points)",
		"  Salutation: 4/5",
		"  Flow: 5/5",
		"  Total: 33/40 (82.5%)",
		"SPEECH RATE (10 points)",
		"  WPM: 154.6 (Fast)",
		"LANGUAGE & GRAMMAR (20 points)",
		"note: Grammar checker not available, assuming no errors",
		"CLARITY (15 points)",
		"  Filler Words: 0 (0.00%)",
		"ENGAGEMENT (15 points)",
		"FINAL SCORE: 85/100 (85.0%)",
		"GRADE: A",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "plain output carries no escape codes")
}

func TestJSONReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONReporter(&buf).Report(sampleResult(t)))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(85), decoded["final_score"])
	assert.Equal(t, "A", decoded["grade"])
	assert.Contains(t, decoded["scores"], "content_and_structure")
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	r, err := New("json", &buf)
	require.NoError(t, err)
	assert.IsType(t, &JSONReporter{}, r)

	r, err = New("", &buf)
	require.NoError(t, err)
	assert.IsType(t, &TerminalReporter{}, r)
	assert.False(t, IsTerminal(&buf))

	_, err = New("xml", &buf)
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestTerminalReportWriteError(t *testing.T) {
	err := NewTerminalReporter(failingWriter{}, false).Report(sampleResult(t))
	assert.EqualError(t, err, "disk full")
}
