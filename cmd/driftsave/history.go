package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/driftsave/pkg/driftsave/config"
	"github.com/jamesainslie/driftsave/pkg/driftsave/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	Long: `View the journal of extract, preflight, repack and roundtrip runs.

Entries are kept as JSON files under history.path and removed by
'driftsave history clean' after history.retention_days.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of an operation",
	Long:  `Display one journal entry. A unique ID prefix is enough.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old history entries",
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func openJournal() (*history.Journal, error) {
	j, err := history.New(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return j, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}

	entries, err := j.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history entries found.")
		return nil
	}

	fmt.Fprintf(out, "%-40s  %-9s  %-6s  %-14s  %s\n", "ID", "TYPE", "BLOCKS", "OK/FAIL/ERR", "BASE")
	fmt.Fprintln(out, strings.Repeat("-", 90))
	for _, e := range entries {
		fmt.Fprintf(out, "%-40s  %-9s  %-6d  %-14s  %s\n",
			truncateString(e.ID, 40),
			e.Operation,
			e.Summary.Blocks,
			fmt.Sprintf("%d/%d/%d", e.Summary.OK, e.Summary.Failed, e.Summary.Errors),
			e.BaseFile,
		)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}

	e, err := j.Get(args[0])
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("no history entry %q", args[0])
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:         %s\n", e.ID)
	fmt.Fprintf(out, "Timestamp:  %s\n", e.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Operation:  %s\n", e.Operation)
	fmt.Fprintf(out, "Base:       %s\n", e.BaseFile)
	if e.Dir != "" {
		fmt.Fprintf(out, "Dir:        %s\n", e.Dir)
	}
	if e.Output != "" {
		fmt.Fprintf(out, "Output:     %s\n", e.Output)
	}
	fmt.Fprintf(out, "Blocks:     %d (OK %d, FAIL %d, ERROR %d, SKIP %d)\n",
		e.Summary.Blocks, e.Summary.OK, e.Summary.Failed, e.Summary.Errors, e.Summary.Skipped)
	if e.Error != "" {
		fmt.Fprintf(out, "Error:      %s\n", e.Error)
	}

	if len(e.Blocks) > 0 {
		fmt.Fprintln(out)
		for _, b := range e.Blocks {
			line := fmt.Sprintf("  %02d  %-6s  %s", b.Index, b.Status, b.OutName)
			if b.Note != "" {
				line += "  (" + b.Note + ")"
			}
			fmt.Fprintln(out, strings.TrimRight(line, " "))
		}
	}
	return nil
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	removed, err := j.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d history entries older than %d days.", removed, retentionDays)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
