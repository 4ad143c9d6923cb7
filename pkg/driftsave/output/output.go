// Package output renders driftsave results (scans, block listings,
// preflight and repack reports, round-trip checks) in the formats the CLI
// offers: pretty, plain, tsv, csv, json, jsonl, yaml, names and template.
//
// The package uses a registry so formatters can be selected by name at
// runtime:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, output.FromReport(report)); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Row is one block in a result table. Status, NewLen and Headroom are only
// meaningful for preflight and repack results.
type Row struct {
	Index     int    `json:"index" yaml:"index"`
	Offset    int    `json:"offset" yaml:"offset"`
	StoredLen int    `json:"stored_len" yaml:"stored_len"`
	Capacity  int    `json:"capacity" yaml:"capacity"`
	NewLen    int    `json:"new_len,omitempty" yaml:"new_len,omitempty"`
	Headroom  int    `json:"headroom,omitempty" yaml:"headroom,omitempty"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Kind      string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Status    string `json:"status,omitempty" yaml:"status,omitempty"`
	Note      string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Summary counts rows by status.
type Summary struct {
	Blocks  int `json:"blocks" yaml:"blocks"`
	OK      int `json:"ok" yaml:"ok"`
	Failed  int `json:"failed" yaml:"failed"`
	Errors  int `json:"errors" yaml:"errors"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Compare is the outcome of a round-trip check.
type Compare struct {
	Identical bool   `json:"identical" yaml:"identical"`
	FirstDiff int    `json:"first_diff" yaml:"first_diff"`
	BaseSum   string `json:"base_sum" yaml:"base_sum"`
	OutSum    string `json:"out_sum" yaml:"out_sum"`
}

// Result is the formatter-neutral view of one command's outcome.
type Result struct {
	// Operation names the command that produced the result (inspect, blocks,
	// preflight, repack, roundtrip).
	Operation string

	// Source is the base save file.
	Source string

	// Size is the base file size in bytes.
	Size int

	// Dir is the extraction directory, if any.
	Dir string

	// Output is the rebuilt file, if any.
	Output string

	// Container is the container tag (h4si or fallen).
	Container string

	Rows    []Row
	Summary Summary

	// Compare is set for round-trip results.
	Compare *Compare

	Warnings   []string
	ReportPath string
	Elapsed    time.Duration
}

// HasStatus reports whether the rows carry preflight or repack statuses.
func (r *Result) HasStatus() bool {
	for _, row := range r.Rows {
		if row.Status != "" {
			return true
		}
	}
	return false
}

// TotalStored returns the sum of the rows' stored lengths.
func (r *Result) TotalStored() int {
	var total int
	for _, row := range r.Rows {
		total += row.StoredLen
	}
	return total
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory to the registry.
// It will replace any existing formatter with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name. A name of the form
// "template=<text>" returns a template formatter for <text>.
func (r *Registry) Get(name string) (Formatter, error) {
	if tmpl, ok := strings.CutPrefix(name, "template="); ok {
		return NewTemplateFormatter(tmpl), nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// hexOffset renders a byte offset the way block file names do.
func hexOffset(off int) string {
	return fmt.Sprintf("0x%08X", off)
}
