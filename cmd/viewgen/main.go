// cmd/viewgen renders a view to markup from a view configuration (.json) or
// a generated module definition (.yaml).
//
// Usage:
//
//	viewgen <config.json|module.yaml> <out-file> [--view list] [--rows 5] [--gaps gaps.json]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/fieldops/internal/logging"
	"github.com/matthewbaird/fieldops/internal/pipeline"
	"github.com/matthewbaird/fieldops/internal/sampledata"
)

func newRootCmd() *cobra.Command {
	var (
		opts    pipeline.ViewOptions
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "viewgen <config.json|module.yaml> <out-file>",
		Short: "Render a view configuration to markup",
		Long: `Validates the view configuration, reporting every missing key at once,
fills defaults, synthesizes sample rows and renders the layout named by the
configuration. Module definitions are converted to a view configuration
first; --view selects which of their views to render.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.InputPath, opts.OutPath = args[0], args[1]
			opts.Logger = logging.CLI(verbose)
			defer opts.Logger.Sync()

			if err := pipeline.GenerateView(cmd.Context(), opts); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), opts.OutPath)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.ViewID, "view", "", "view of a module definition to render (default: first)")
	f.IntVar(&opts.Rows, "rows", sampledata.DefaultRows, "sample rows for table and list layouts")
	f.StringVar(&opts.GapsPath, "gaps", "", "write the gap log to this JSON file")
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
