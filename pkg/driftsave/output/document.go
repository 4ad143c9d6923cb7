package output

import "time"

// document is the structured shape shared by the json and yaml formatters.
type document struct {
	Meta    meta     `json:"meta" yaml:"meta"`
	Summary Summary  `json:"summary" yaml:"summary"`
	Compare *Compare `json:"compare,omitempty" yaml:"compare,omitempty"`
	Blocks  []Row    `json:"blocks" yaml:"blocks"`
}

type meta struct {
	Operation  string   `json:"operation,omitempty" yaml:"operation,omitempty"`
	Source     string   `json:"source" yaml:"source"`
	Size       int      `json:"size" yaml:"size"`
	Dir        string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Output     string   `json:"output,omitempty" yaml:"output,omitempty"`
	Container  string   `json:"container,omitempty" yaml:"container,omitempty"`
	ReportPath string   `json:"report_path,omitempty" yaml:"report_path,omitempty"`
	Elapsed    string   `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	Warnings   []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func buildDocument(r *Result) document {
	rows := r.Rows
	if rows == nil {
		rows = []Row{}
	}
	return document{
		Meta: meta{
			Operation:  r.Operation,
			Source:     r.Source,
			Size:       r.Size,
			Dir:        r.Dir,
			Output:     r.Output,
			Container:  r.Container,
			ReportPath: r.ReportPath,
			Elapsed:    formatDurationString(r.Elapsed),
			Warnings:   r.Warnings,
		},
		Summary: r.Summary,
		Compare: r.Compare,
		Blocks:  rows,
	}
}

// formatDurationString formats a duration for structured output.
func formatDurationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}
