package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/driftsave/pkg/driftsave/output"
	"github.com/jamesainslie/driftsave/pkg/driftsave/repack"
)

var (
	repackDir string
	repackOut string
)

var repackCmd = &cobra.Command{
	Use:   "repack <base> -o <out>",
	Short: "Write a patched save from edited block files",
	Long: `Copy the base save to <out> and patch in every block that changed and
still fits its region. Blocks that do not fit keep their original bytes and
are listed in <out>.rebuild_report.txt.

The base file must be the one the directory was extracted from.`,
	Args: cobra.ExactArgs(1),
	RunE: runRepack,
}

func init() {
	repackCmd.Flags().StringVarP(&repackDir, "dir", "d", "", "extraction directory (default: resolved from the base file)")
	repackCmd.Flags().StringVarP(&repackOut, "out", "o", "", "output save file")
	_ = repackCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(repackCmd)
}

func runRepack(cmd *cobra.Command, args []string) error {
	basePath := args[0]

	dir, err := resolveDir(basePath, repackDir)
	if err != nil {
		return err
	}

	report, err := repack.Repack(cmd.Context(), basePath, dir, repackOut, repackOptions())
	if err != nil {
		return err
	}
	recordReport(report)

	if err := render(cmd, output.FromReport(report)); err != nil {
		return err
	}
	if report.Blocking() {
		return errBlocking
	}
	printInfo("Wrote %s", repackOut)
	return nil
}
