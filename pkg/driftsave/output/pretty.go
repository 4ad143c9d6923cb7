package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	w.WriteString(f.formatTable(r))

	w.WriteString(f.formatFooter(r))

	if r.Compare != nil {
		w.WriteString("\n")
		w.WriteString(f.formatCompare(r.Compare))
	}

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}

	return nil
}

// formatHeader builds the header box with file metadata.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	var lines []string

	if r.Operation != "" {
		lines = append(lines, TitleStyle.Render(strings.ToUpper(r.Operation)))
	}

	source := fmt.Sprintf("%s %s", LabelStyle.Render("Source:"), ValueStyle.Render(r.Source))
	if r.Size > 0 {
		source += "  " + SizeStyle.Render(humanize.IBytes(uint64(r.Size)))
	}
	lines = append(lines, source)

	var info []string
	if r.Container != "" {
		info = append(info, fmt.Sprintf("%s %s", LabelStyle.Render("Container:"), ValueStyle.Render(r.Container)))
	}
	if r.Dir != "" {
		info = append(info, fmt.Sprintf("%s %s", LabelStyle.Render("Dir:"), ValueStyle.Render(r.Dir)))
	}
	if len(info) > 0 {
		lines = append(lines, strings.Join(info, "  "))
	}

	if r.Output != "" {
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Output:"), ValueStyle.Render(r.Output)))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatTable builds the block table.
func (f *PrettyFormatter) formatTable(r *Result) string {
	if len(r.Rows) == 0 {
		return MutedStyle.Render("  No blocks found") + "\n"
	}

	cols := columnsFor(r)
	rows := cells(r, cols)
	w := widths(cols, rows)

	var sb strings.Builder

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = TableHeaderStyle.Render(pad(c.title, w[i], c.right))
	}
	sb.WriteString("  " + strings.Join(headers, "  ") + "\n")

	for ri, row := range rows {
		parts := make([]string, len(cols))
		for i, c := range cols {
			text := pad(row[i], w[i], c.right)
			switch c.title {
			case colStatus.title:
				parts[i] = statusStyle(r.Rows[ri].Status).Render(text)
			case colHeadroom.title:
				if r.Rows[ri].Headroom < 0 {
					parts[i] = ErrorStyle.Render(text)
				} else {
					parts[i] = ValueStyle.Render(text)
				}
			case colNote.title, colOffset.title:
				parts[i] = MutedStyle.Render(text)
			default:
				parts[i] = ValueStyle.Render(text)
			}
		}
		sb.WriteString("  " + strings.TrimRight(strings.Join(parts, "  "), " ") + "\n")
	}

	return sb.String()
}

// formatFooter builds the footer box with summary counts.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("%s %s", LabelStyle.Render("Blocks:"),
		ValueStyle.Render(fmt.Sprintf("%d", r.Summary.Blocks))))

	if r.HasStatus() {
		parts = append(parts,
			SuccessStyle.Render(fmt.Sprintf("OK %d", r.Summary.OK)),
			statusStyle("FAIL").Render(fmt.Sprintf("FAIL %d", r.Summary.Failed)),
			statusStyle("ERROR").Render(fmt.Sprintf("ERROR %d", r.Summary.Errors)),
			MutedStyle.Render(fmt.Sprintf("SKIP %d", r.Summary.Skipped)),
		)
	} else if total := r.TotalStored(); total > 0 {
		parts = append(parts, fmt.Sprintf("%s %s", LabelStyle.Render("Stored:"),
			SizeStyle.Render(humanize.IBytes(uint64(total)))))
	}

	if r.Elapsed > 0 {
		parts = append(parts, MutedStyle.Render(formatDuration(r.Elapsed)))
	}

	if r.ReportPath != "" {
		parts = append(parts, MutedStyle.Render("report: "+r.ReportPath))
	}

	return FooterBox.Render(strings.Join(parts, "  ")) + "\n"
}

// formatCompare renders a round-trip verdict.
func (f *PrettyFormatter) formatCompare(c *Compare) string {
	var sb strings.Builder
	if c.Identical {
		sb.WriteString(SuccessStyle.Bold(true).Render("Round trip identical"))
	} else {
		sb.WriteString(ErrorStyle.Bold(true).Render(
			fmt.Sprintf("Round trip differs at %s", hexOffset(c.FirstDiff))))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  %s %s\n", LabelStyle.Render("base:"), ValueStyle.Render(c.BaseSum)))
	sb.WriteString(fmt.Sprintf("  %s %s\n", LabelStyle.Render("out: "), ValueStyle.Render(c.OutSum)))
	return sb.String()
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	return fmt.Sprintf("%dm %ds", minutes, int(sec)%60)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
