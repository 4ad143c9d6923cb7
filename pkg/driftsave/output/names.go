package output

import "bytes"

// NamesFormatter writes one block file name per line, for piping into other
// tools. Rows without a name are skipped.
type NamesFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *NamesFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, row := range r.Rows {
		if row.Name == "" {
			continue
		}
		w.WriteString(row.Name)
		w.WriteByte('\n')
	}
	return nil
}

func init() {
	Register("names", func() Formatter {
		return &NamesFormatter{}
	})
}

// Ensure NamesFormatter implements Formatter.
var _ Formatter = (*NamesFormatter)(nil)
