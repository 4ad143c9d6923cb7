package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/driftsave/pkg/driftsave/logging"
	"github.com/jamesainslie/driftsave/pkg/driftsave/output"
	"github.com/jamesainslie/driftsave/pkg/driftsave/repack"
	"github.com/jamesainslie/driftsave/pkg/driftsave/watch"
)

var watchDir string

var watchCmd = &cobra.Command{
	Use:   "watch <base>",
	Short: "Re-run preflight whenever a block file is saved",
	Long: `Watch the blocks of an extraction directory and run a preflight after
every burst of edits, so capacity problems show up while editing.
Stops on Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "", "extraction directory (default: resolved from the base file)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	basePath := args[0]
	logger := logging.Get("watch")

	dir, err := resolveDir(basePath, watchDir)
	if err != nil {
		return err
	}

	w, err := watch.New(dir)
	if err != nil {
		return err
	}
	defer w.Close()
	w.Debounce = cfg.Watch.Debounce

	ctx := cmd.Context()
	check := func() {
		report, err := repack.Preflight(ctx, basePath, dir, repackOptions())
		if err != nil {
			logger.Error("preflight failed", "error", err)
			printInfo("Preflight failed: %v", err)
			return
		}
		if err := render(cmd, output.FromReport(report)); err != nil {
			logger.Error("render failed", "error", err)
		}
	}

	check()
	printInfo("Watching %s (Ctrl-C to stop)", dir)

	w.Run(ctx, func(names []string) {
		logger.Info("blocks changed", "names", names)
		printInfo("Changed: %s", strings.Join(names, ", "))
		check()
	})
	return nil
}
