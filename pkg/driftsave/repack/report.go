package repack

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

func header(r *Report) []string {
	lines := []string{
		fmt.Sprintf("Base: %s (%s, %d bytes)", r.BaseFile, humanize.Bytes(uint64(r.BaseSize)), r.BaseSize),
		fmt.Sprintf("Extracted: %s", r.Dir),
	}
	if r.Output != "" {
		lines = append(lines, fmt.Sprintf("Output: %s", r.Output))
	}
	return append(lines, fmt.Sprintf("Container: %s", r.Container), "")
}

func preflightText(r *Report, maxWarnings int) string {
	lines := header(r)
	lines = append(lines,
		fmt.Sprintf("Blocks: %d | OK: %d | FAIL: %d | ERROR: %d | SKIP: %d",
			len(r.Items), r.OK, r.Failed, r.Errors, r.Skipped),
		"",
		"Worst headroom (lowest first):")

	var measured []Item
	for _, it := range r.Items {
		if it.Status == StatusOK || it.Status == StatusFail {
			measured = append(measured, it)
		}
	}
	sort.SliceStable(measured, func(i, j int) bool {
		return measured[i].Headroom < measured[j].Headroom
	})
	if len(measured) > maxWarnings {
		measured = measured[:maxWarnings]
	}

	if len(measured) == 0 {
		lines = append(lines, "  (none)")
	}
	for _, it := range measured {
		lines = append(lines, fmt.Sprintf("  %02d @0x%08X: new=%d cap=%d headroom=%d [%s] (%s)",
			it.Index, it.Offset, it.NewLen, it.Capacity, it.Headroom, it.Status, it.OutName))
	}
	lines = append(lines, "")

	if r.Failed > 0 {
		lines = append(lines, "FAIL blocks:")
		for _, it := range r.Items {
			if it.Status == StatusFail {
				lines = append(lines, fmt.Sprintf("  %02d @0x%08X: new=%d exceeds capacity by %d (%s)",
					it.Index, it.Offset, it.NewLen, -it.Headroom, it.OutName))
			}
		}
		lines = append(lines, "")
	}

	if r.Errors > 0 {
		lines = append(lines, "ERROR blocks:")
		for _, it := range r.Items {
			if it.Status == StatusError {
				lines = append(lines, fmt.Sprintf("  %02d @0x%08X: %s (%s)", it.Index, it.Offset, it.Note, it.OutName))
			}
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

func rebuildText(r *Report, maxWarnings int) string {
	lines := header(r)

	for _, it := range r.Items {
		switch it.Status {
		case StatusOK:
			lines = append(lines, fmt.Sprintf("[OK] block %02d @0x%08X: wrote %d, cap %d, padded %d",
				it.Index, it.Offset, it.NewLen, it.Capacity, it.Headroom))
		case StatusSkip:
			lines = append(lines, fmt.Sprintf("[SKIP] %s block %02d @0x%08X (%s)",
				it.Note, it.Index, it.Offset, it.OutName))
		case StatusFail:
			lines = append(lines, fmt.Sprintf("[FAIL] block %02d @0x%08X too large: %d > cap %d (%s)",
				it.Index, it.Offset, it.NewLen, it.Capacity, it.OutName))
		case StatusError:
			lines = append(lines, fmt.Sprintf("[ERROR] block %02d @0x%08X: %s (%s)",
				it.Index, it.Offset, it.Note, it.OutName))
		}
	}

	lines = append(lines,
		"",
		fmt.Sprintf("Blocks written: %d", r.OK),
		fmt.Sprintf("Blocks skipped: %d", r.Skipped),
		fmt.Sprintf("Blocks failed: %d", r.Failed+r.Errors))

	if len(r.Warnings) > 0 {
		n := min(len(r.Warnings), maxWarnings)
		lines = append(lines, "", fmt.Sprintf("Warnings (first %d of %d):", n, len(r.Warnings)))
		for _, w := range r.Warnings[:n] {
			lines = append(lines, "- "+w)
		}
	}

	return strings.Join(lines, "\n") + "\n"
}
