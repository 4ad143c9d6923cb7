package main

import (
	"fmt"
	"path"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/driftsave/pkg/driftsave/blockfile"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
	"github.com/jamesainslie/driftsave/pkg/driftsave/output"
)

var (
	blocksMatch    string
	blocksEditable bool
)

var blocksCmd = &cobra.Command{
	Use:   "blocks <dir>",
	Short: "List the blocks of an extraction directory",
	Long: `List every block recorded in <dir>/manifest.json with its offset,
stored length, capacity and kind.

--match filters by file name with a glob such as 'block_0*' or '*.json'.`,
	Args: cobra.ExactArgs(1),
	RunE: runBlocks,
}

func init() {
	blocksCmd.Flags().StringVarP(&blocksMatch, "match", "m", "", "glob on block file names")
	blocksCmd.Flags().BoolVar(&blocksEditable, "editable", false, "only blocks that hold text")
	rootCmd.AddCommand(blocksCmd)
}

func runBlocks(cmd *cobra.Command, args []string) error {
	dir := args[0]

	m, err := manifest.Load(dir)
	if err != nil {
		return err
	}

	blocks, err := filterBlocks(m.Blocks, blocksMatch, blocksEditable)
	if err != nil {
		return err
	}

	return render(cmd, output.FromManifest(dir, m, blocks))
}

// filterBlocks keeps the blocks whose file name matches pattern. An empty
// pattern matches everything.
func filterBlocks(blocks []manifest.Block, pattern string, editableOnly bool) ([]manifest.Block, error) {
	var g glob.Glob
	if pattern != "" {
		compiled, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid --match pattern %q: %w", pattern, err)
		}
		g = compiled
	}

	kept := make([]manifest.Block, 0, len(blocks))
	for _, b := range blocks {
		if g != nil && !g.Match(path.Base(b.OutName)) {
			continue
		}
		if editableOnly && !blockfile.Editable(b) {
			continue
		}
		kept = append(kept, b)
	}
	return kept, nil
}
