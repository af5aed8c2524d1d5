package cmd

import (
	"context"

	"github.com/ZanzyTHEbar/introscore/internal/app"
	"github.com/ZanzyTHEbar/introscore/internal/config"
	"github.com/ZanzyTHEbar/introscore/internal/monitoring"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd builds a fresh introscore command tree
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "introscore",
		Short: "Score spoken self-introductions against a 100-point rubric",
		Long: `introscore evaluates a self-introduction transcript on content and
structure, speech rate, language and grammar, clarity and engagement,
and reports a final score with a letter grade.

Grammar checking and semantic similarity use the LanguageTool and
embeddings services named in the configuration; without them the
rule-based scores are used.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ./introscore.yaml or $"+config.EnvConfig+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr (debug, info, warn, error)")

	root.AddCommand(
		newEvaluateCmd(opts),
		newDemoCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load resolves configuration and builds the evaluator. semantic, when
// non-nil, overrides the configured semantic.enabled.
func (o *globalOptions) load(ctx context.Context, cmd *cobra.Command, semantic *bool) (*app.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if semantic != nil {
		cfg.Semantic.Enabled = *semantic
	}

	level, err := monitoring.ParseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	logger := monitoring.NewLogger(cmd.ErrOrStderr(), level)

	return app.New(ctx, cfg, logger)
}
