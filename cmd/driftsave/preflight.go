package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/driftsave/pkg/driftsave/output"
	"github.com/jamesainslie/driftsave/pkg/driftsave/repack"
)

var preflightDir string

var preflightCmd = &cobra.Command{
	Use:   "preflight <base>",
	Short: "Check that every edited block still fits",
	Long: `Re-encode every block file and compare it with the capacity of its
region, without writing a save. A text report is written to
<dir>/repack_preflight_report.txt.

Exits non-zero when any block fails or cannot be encoded.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreflight,
}

func init() {
	preflightCmd.Flags().StringVarP(&preflightDir, "dir", "d", "", "extraction directory (default: resolved from the base file)")
	rootCmd.AddCommand(preflightCmd)
}

func runPreflight(cmd *cobra.Command, args []string) error {
	basePath := args[0]

	dir, err := resolveDir(basePath, preflightDir)
	if err != nil {
		return err
	}

	report, err := repack.Preflight(cmd.Context(), basePath, dir, repackOptions())
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
	return nil
}
