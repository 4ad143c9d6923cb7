package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/driftsave/pkg/driftsave/container"
	"github.com/jamesainslie/driftsave/pkg/driftsave/output"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <base>",
	Short: "List the records in a save file without extracting",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading base file: %w", err)
	}

	scan := container.Scan(data)
	printVerbose("container %s: header %d bytes, layout %q, fallback %q",
		scan.Kind, scan.Info.HeaderLen, scan.Info.Layout, scan.Info.Fallback)

	return render(cmd, output.FromScan(args[0], len(data), scan))
}
