package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/driftsave/pkg/driftsave/blockfile"
	"github.com/jamesainslie/driftsave/pkg/driftsave/jsonval"
	"github.com/jamesainslie/driftsave/pkg/driftsave/logging"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
	"github.com/jamesainslie/driftsave/pkg/driftsave/repack"
)

var (
	setAll    bool
	setRoot   bool
	setPretty bool
	setBase   string
)

var getCmd = &cobra.Command{
	Use:   "get <dir> <block> <path|key>",
	Short: "Print a value from a block",
	Long: `Print the JSON value at a path such as '$.garage.cars[0].name'.
An argument that does not start with '$' is a key name: the first
occurrence of that key anywhere in the block is printed.

<block> is a block index or file name.`,
	Args: cobra.ExactArgs(3),
	RunE: runGet,
}

var setCmd = &cobra.Command{
	Use:   "set <dir> <block> <path|key> <json>",
	Short: "Change a value in a block",
	Long: `Replace the value at a path with <json>. The last key of a path is
created when missing. An argument that does not start with '$' is a key name:
its first occurrence is replaced, every occurrence with --all, or the
root-level key (created if missing) with --root.

<json> is parsed as JSON; anything that does not parse is stored as a string.
With --base the edited block is re-encoded and its remaining headroom shown.`,
	Args: cobra.ExactArgs(4),
	RunE: runSet,
}

var keysCmd = &cobra.Command{
	Use:   "keys <dir> <block>",
	Short: "List every object key used in a block",
	Args:  cobra.ExactArgs(2),
	RunE:  runKeys,
}

func init() {
	setCmd.Flags().BoolVar(&setAll, "all", false, "replace every occurrence of a key")
	setCmd.Flags().BoolVar(&setRoot, "root", false, "set a key on the root object, creating it if missing")
	setCmd.Flags().BoolVar(&setPretty, "pretty", false, "write the block indented")
	setCmd.Flags().StringVar(&setBase, "base", "", "base save file, to check the block still fits")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(keysCmd)
}

// loadBlock resolves ref in dir and parses its file.
func loadBlock(dir, ref string) (manifest.Block, jsonval.Value, error) {
	m, err := manifest.Load(dir)
	if err != nil {
		return manifest.Block{}, jsonval.Value{}, err
	}
	b, err := blockfile.Find(m, ref)
	if err != nil {
		return manifest.Block{}, jsonval.Value{}, err
	}
	v, err := blockfile.Load(dir, b)
	if err != nil {
		return manifest.Block{}, jsonval.Value{}, err
	}
	return b, v, nil
}

func isPath(s string) bool {
	return strings.HasPrefix(s, "$")
}

func runGet(cmd *cobra.Command, args []string) error {
	_, v, err := loadBlock(args[0], args[1])
	if err != nil {
		return err
	}

	var found jsonval.Value
	if isPath(args[2]) {
		p, err := v.Lookup(args[2])
		if err != nil {
			return err
		}
		found = *p
	} else {
		hits := jsonval.FindFirstKeys(&v, args[2])
		hit, ok := hits[args[2]]
		if !ok {
			return fmt.Errorf("%w: key %q not found", jsonval.ErrPath, args[2])
		}
		found = hit
	}

	data, err := found.Indent()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// parseValue parses s as JSON, falling back to a string.
func parseValue(s string) jsonval.Value {
	v, err := jsonval.Parse([]byte(s))
	if err != nil {
		return jsonval.NewString(s)
	}
	return v
}

func runSet(cmd *cobra.Command, args []string) error {
	dir, ref, target := args[0], args[1], args[2]
	val := parseValue(args[3])

	b, v, err := loadBlock(dir, ref)
	if err != nil {
		return err
	}

	switch {
	case isPath(target):
		if err := v.SetPath(target, val); err != nil {
			return err
		}
	case setRoot:
		if n := jsonval.SetOrCreateRootKeys(&v, map[string]jsonval.Value{target: val}); n == 0 {
			return fmt.Errorf("%w: block root is not an object", jsonval.ErrPath)
		}
	case setAll:
		if n := jsonval.SetAllKeys(&v, map[string]jsonval.Value{target: val}); n == 0 {
			return fmt.Errorf("%w: key %q not found", jsonval.ErrPath, target)
		}
	default:
		if n := jsonval.SetFirstKeys(&v, map[string]jsonval.Value{target: val}); n == 0 {
			return fmt.Errorf("%w: key %q not found", jsonval.ErrPath, target)
		}
	}

	if err := blockfile.Save(dir, b, v, setPretty); err != nil {
		return err
	}
	logging.Get("cli").Info("block edited", "dir", dir, "block", b.Index, "target", target)
	printInfo("Updated %s", b.OutName)

	if setBase == "" {
		return nil
	}

	item, err := repack.CheckBlock(setBase, dir, b.Index, repackOptions())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s block %02d: %d of %d bytes, headroom %d\n",
		item.Status, item.Index, item.NewLen, item.Capacity, item.Headroom)
	if item.Status == repack.StatusFail || item.Status == repack.StatusError {
		return errors.New(item.Note)
	}
	return nil
}

func runKeys(cmd *cobra.Command, args []string) error {
	_, v, err := loadBlock(args[0], args[1])
	if err != nil {
		return err
	}

	for _, k := range jsonval.CollectKeys(&v) {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}
	return nil
}
