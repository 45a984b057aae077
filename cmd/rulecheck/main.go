// cmd/rulecheck validates a business rule document and writes the gaps found
// checking it against the business model.
//
// Usage:
//
//	rulecheck <rules.yaml> <gaps.json> [--busm busm.json]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/fieldops/internal/gaplog"
	"github.com/matthewbaird/fieldops/internal/logging"
	"github.com/matthewbaird/fieldops/internal/pipeline"
)

func newRootCmd() *cobra.Command {
	var (
		opts    pipeline.RuleCheckOptions
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "rulecheck <rules.yaml> <gaps.json>",
		Short: "Check a business rule document",
		Long: `Parses the rule document and reports every structural problem. With
--busm, the rules are also compared against the business model: entities
and required fields missing from the model and transition states outside a
field's enum are written to the gap log.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.RulesPath, opts.GapsPath = args[0], args[1]
			opts.Logger = logging.CLI(verbose)
			defer opts.Logger.Sync()

			gaps, err := pipeline.CheckRules(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d gaps (%d high impact)\n", gaps.Len(), gaps.Count(gaplog.ImpactHigh))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.ModelPath, "busm", "", "business model (JSON) to check the rules against")
	f.BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
