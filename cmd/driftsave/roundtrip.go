package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/driftsave/pkg/driftsave/output"
	"github.com/jamesainslie/driftsave/pkg/driftsave/repack"
)

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip <base>",
	Short: "Check that extract then repack reproduces the save exactly",
	Long: `Extract the save into a scratch directory, repack it with no edits and
compare the result with the original byte for byte. Exits non-zero and
reports the first differing offset when they differ.`,
	Args: cobra.ExactArgs(1),
	RunE: runRoundTrip,
}

func init() {
	rootCmd.AddCommand(roundtripCmd)
}

func runRoundTrip(cmd *cobra.Command, args []string) error {
	algo, err := checksum()
	if err != nil {
		return err
	}

	rt, err := repack.RoundTrip(cmd.Context(), args[0], algo, repackOptions())
	if err != nil {
		return err
	}

	if j := journal(); j != nil {
		if _, err := j.LogRoundTrip(rt); err != nil {
			printVerbose("history: %v", err)
		}
	}

	if err := render(cmd, output.FromRoundTrip(rt)); err != nil {
		return err
	}
	if !rt.Identical {
		return fmt.Errorf("rebuild differs from %s at offset 0x%X", args[0], rt.FirstDiff)
	}
	return nil
}
