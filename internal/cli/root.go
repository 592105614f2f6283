// Package cli implements the gavel-bench command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the gavel-bench command with its subcommands.
func NewRootCmd(opts ...Option) *cobra.Command {
	env := newEnvironment(opts)

	root := &cobra.Command{
		Use:           "gavel-bench",
		Short:         "Run, judge and compare LLM evaluation batches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return env.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&env.catalogPath, "catalog", "", "prompt catalog YAML file (default: built-in catalog)")
	root.PersistentFlags().IntVar(&env.concurrency, "concurrency", 0, "model calls in flight per batch (overrides GAVEL_CONCURRENCY)")

	root.AddCommand(newCallCmd(env))
	root.AddCommand(newJudgeCmd(env))
	root.AddCommand(newStatsCmd(env))
	root.AddCommand(newCompareCmd(env))
	root.AddCommand(newPromptsCmd(env))
	return root
}
