// cmd/modulegen builds the module definition of one entity from the business
// model and, optionally, its business rules.
//
// Usage:
//
//	modulegen <busm.json> <out-dir> --entity WorkOrder [--phase 2] [--rules rules.yaml] [--gaps gaps.json] [--force]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/fieldops/internal/busm"
	"github.com/matthewbaird/fieldops/internal/logging"
	"github.com/matthewbaird/fieldops/internal/pipeline"
)

func newRootCmd() *cobra.Command {
	var (
		opts    pipeline.ModuleOptions
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "modulegen <busm.json> <out-dir>",
		Short: "Generate a module definition from the business model",
		Long: `Reads the business model, selects the fields of one entity up to the
requested phase, merges its business rules and writes <entity>.phase<N>.yaml
to the output directory. Existing definitions are kept unless --force is set.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ModelPath, opts.OutDir = args[0], args[1]
			opts.Logger = logging.CLI(verbose)
			defer opts.Logger.Sync()

			path, err := pipeline.GenerateModule(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Entity, "entity", "", "entity to generate")
	f.IntVar(&opts.Phase, "phase", busm.DefaultPhase, "highest field phase to include")
	f.StringVar(&opts.RulesPath, "rules", "", "business rule document (YAML)")
	f.StringVar(&opts.GapsPath, "gaps", "", "write the gap log to this JSON file")
	f.BoolVar(&opts.Force, "force", false, "overwrite an existing module definition")
	f.BoolVarP(&verbose, "verbose", "v", false, "log debug output")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
