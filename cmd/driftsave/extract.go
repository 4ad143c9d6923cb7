package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/driftsave/pkg/driftsave/extract"
	"github.com/jamesainslie/driftsave/pkg/driftsave/output"
)

var extractDir string

var extractCmd = &cobra.Command{
	Use:   "extract <base>",
	Short: "Unpack a save file into editable block files",
	Long: `Scan a save file, decode every embedded record and write it to
<dir>/blocks together with manifest.json and copies of the original regions.

Without --out the directory is <work_root>/<stem>_<size>_<checksum prefix>.
Re-extracting into the same directory replaces the previous blocks.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractDir, "out", "o", "", "extraction directory")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	basePath := args[0]

	algo, err := checksum()
	if err != nil {
		return err
	}

	dir := extractDir
	if dir == "" {
		data, err := os.ReadFile(basePath)
		if err != nil {
			return fmt.Errorf("reading base file: %w", err)
		}
		dir = defaultWorkDir(basePath, data, algo)
	}

	m, err := extract.File(cmd.Context(), basePath, dir, extract.Options{
		Checksum: algo,
		Workers:  cfg.Workers,
	})
	if err != nil {
		return err
	}

	indexWorkspace(dir, m)
	if j := journal(); j != nil {
		if _, err := j.LogExtract(absPath(dir), m); err != nil {
			printVerbose("history: %v", err)
		}
	}

	printInfo("Extracted %d blocks to %s", len(m.Blocks), dir)
	return render(cmd, output.FromManifest(dir, m, m.Blocks))
}
