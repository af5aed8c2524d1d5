package cmd

import (
	"github.com/ZanzyTHEbar/introscore/internal/analysis"
	"github.com/spf13/cobra"
)

func newDemoCmd(g *globalOptions) *cobra.Command {
	var out outputOptions

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Evaluate the built-in sample introduction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, g, &out, analysis.SampleTranscript, analysis.SampleDuration)
		},
	}
	out.bind(cmd)
	return cmd
}
