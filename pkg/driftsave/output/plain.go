package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
)

// PlainFormatter formats output as an aligned table without styling. It is
// suitable for scripting and piping.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	cols := columnsFor(r)
	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.title
	}
	if _, err := fmt.Fprintln(tw, strings.Join(titles, "\t")); err != nil {
		return err
	}

	for _, row := range cells(r, cols) {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Compare != nil {
		if r.Compare.Identical {
			w.WriteString("identical\n")
		} else {
			fmt.Fprintf(w, "differs at %s\n", hexOffset(r.Compare.FirstDiff))
		}
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
