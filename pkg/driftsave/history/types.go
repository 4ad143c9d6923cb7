// Package history keeps a journal of extract, preflight, repack and
// round-trip runs, one JSON file per run.
package history

import "time"

// Operation names the kind of run an entry records.
type Operation string

const (
	OpExtract   Operation = "extract"
	OpPreflight Operation = "preflight"
	OpRepack    Operation = "repack"
	OpRoundTrip Operation = "roundtrip"
)

// Entry is one journal record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Operation Operation `json:"operation"`
	BaseFile  string    `json:"base_file"`
	BaseSig   string    `json:"base_sig,omitempty"`
	Dir       string    `json:"dir,omitempty"`
	Output    string    `json:"output,omitempty"`
	Summary   Summary   `json:"summary"`
	Blocks    []Record  `json:"blocks,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Record is the outcome for one block within an entry.
type Record struct {
	Index    int    `json:"index"`
	OutName  string `json:"out_name"`
	Kind     string `json:"kind"`
	Status   string `json:"status,omitempty"`
	Headroom int    `json:"headroom,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Summary counts the blocks of an entry by outcome.
type Summary struct {
	Blocks  int `json:"blocks"`
	OK      int `json:"ok,omitempty"`
	Failed  int `json:"failed,omitempty"`
	Errors  int `json:"errors,omitempty"`
	Skipped int `json:"skipped,omitempty"`
}
