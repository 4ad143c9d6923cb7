package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/driftsave/pkg/driftsave/workspace"
)

var workspacesCmd = &cobra.Command{
	Use:   "workspaces",
	Short: "List indexed extraction directories",
	Long: `List the extraction directories recorded in the workspace index.
preflight, repack and watch use the index to find the directory of a
save when --dir is not given.`,
	RunE: runWorkspaces,
}

var workspacesDiscoverCmd = &cobra.Command{
	Use:   "discover [root]",
	Short: "Index every extraction directory below root",
	Long: `Walk root (default: work_root) for manifest.json files, index each
directory and forget indexed directories below root that no longer exist.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWorkspacesDiscover,
}

var workspacesForgetCmd = &cobra.Command{
	Use:   "forget <dir>",
	Short: "Remove a directory from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspacesForget,
}

func init() {
	workspacesCmd.AddCommand(workspacesDiscoverCmd)
	workspacesCmd.AddCommand(workspacesForgetCmd)
	rootCmd.AddCommand(workspacesCmd)
}

func runWorkspaces(cmd *cobra.Command, args []string) error {
	idx, err := workspace.Open(cfg.Index.Path)
	if err != nil {
		return err
	}
	defer idx.Close()

	all, err := idx.All()
	if err != nil {
		return err
	}
	return printWorkspaces(cmd, all)
}

func runWorkspacesDiscover(cmd *cobra.Command, args []string) error {
	root := cfg.WorkRoot
	if len(args) == 1 {
		root = args[0]
	}

	idx, err := workspace.Open(cfg.Index.Path)
	if err != nil {
		return err
	}
	defer idx.Close()

	found, forgotten, err := idx.Reindex(cmd.Context(), root)
	if err != nil {
		return err
	}

	printInfo("Indexed %d workspaces under %s, forgot %d.", len(found), root, forgotten)
	return printWorkspaces(cmd, found)
}

func runWorkspacesForget(cmd *cobra.Command, args []string) error {
	idx, err := workspace.Open(cfg.Index.Path)
	if err != nil {
		return err
	}
	defer idx.Close()

	n, err := idx.Forget(absPath(args[0]))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s is not indexed", args[0])
	}
	printInfo("Forgot %s.", args[0])
	return nil
}

func printWorkspaces(cmd *cobra.Command, ws []workspace.Workspace) error {
	out := cmd.OutOrStdout()
	if len(ws) == 0 {
		fmt.Fprintln(out, "No workspaces indexed.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BASE\tSIZE\tCONTAINER\tBLOCKS\tSIGNATURE\tDIR")
	for _, w := range ws {
		sig := w.BaseSig
		if len(sig) > 12 {
			sig = sig[:12]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			w.BaseFile, humanize.IBytes(uint64(w.FileSize)), w.Container, w.Blocks, sig, w.Dir)
	}
	return tw.Flush()
}
