package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/introscore/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/introscore/internal/errors"
	"github.com/ZanzyTHEbar/introscore/internal/reporter"
	"github.com/ZanzyTHEbar/introscore/internal/security"
	"github.com/spf13/cobra"
)

type outputOptions struct {
	format   string
	output   string
	semantic bool
}

func (o *outputOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", reporter.FormatTerminal, "Output format (terminal, json)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Also write the JSON result to this file")
	cmd.Flags().BoolVar(&o.semantic, "semantic", false, "Force semantic enhancement on or off (default from config)")
}

// semanticOverride is nil unless --semantic was given explicitly
func (o *outputOptions) semanticOverride(cmd *cobra.Command) *bool {
	if !cmd.Flags().Changed("semantic") {
		return nil
	}
	v := o.semantic
	return &v
}

func newEvaluateCmd(g *globalOptions) *cobra.Command {
	var (
		transcript string
		duration   int
		out        outputOptions
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a transcript",
		Long: `Evaluate a self-introduction transcript.

--transcript is read as a file when it names one, otherwise it is
used as the transcript text itself.

Examples:
  introscore evaluate --transcript intro.txt --duration 52
  introscore evaluate -t "Hello everyone, I am Asha..." -d 30 --format json
  introscore evaluate -t intro.txt -d 52 --output result.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readTranscript(transcript)
			if err != nil {
				return err
			}
			return run(cmd, g, &out, text, duration)
		},
	}

	cmd.Flags().StringVarP(&transcript, "transcript", "t", "", "Transcript file path or literal text")
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "Recording length in seconds")
	out.bind(cmd)
	_ = cmd.MarkFlagRequired("transcript")
	_ = cmd.MarkFlagRequired("duration")

	return cmd
}

// readTranscript returns the file contents when arg names a regular file
func readTranscript(arg string) (string, error) {
	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		return arg, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read transcript %s: %w", arg, err)
	}
	return string(data), nil
}

func run(cmd *cobra.Command, g *globalOptions, out *outputOptions, text string, duration int) error {
	if err := analysis.ValidateInput(text, duration); err != nil {
		return err
	}
	if err := security.CheckTranscript(text); err != nil {
		return err
	}

	rep, err := reporter.New(out.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := g.load(ctx, cmd, out.semanticOverride(cmd))
	if err != nil {
		return err
	}
	defer apperrors.SafeClose(a, "evaluator")

	result, err := a.Evaluator.Evaluate(ctx, text, duration)
	if err != nil {
		return apperrors.WrapError(err, "evaluation interrupted")
	}

	if err := rep.Report(result); err != nil {
		return err
	}

	if out.output != "" {
		if err := writeResult(out.output, result); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Results saved to %s\n", out.output)
	}
	return nil
}

func writeResult(path string, result *analysis.EvaluationResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return reporter.NewJSONReporter(f).Report(result)
}
