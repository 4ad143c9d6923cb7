// Package repack re-encodes edited block files and patches them back into a
// copy of the save file they were extracted from.
package repack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/driftsave/pkg/driftsave/codec"
	"github.com/jamesainslie/driftsave/pkg/driftsave/container"
	"github.com/jamesainslie/driftsave/pkg/driftsave/fsutil"
	"github.com/jamesainslie/driftsave/pkg/driftsave/logging"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
)

// DefaultMaxWarnings is how many warnings a text report lists.
const DefaultMaxWarnings = 12

// ReportSuffix is appended to the output path to name the rebuild report.
const ReportSuffix = ".rebuild_report.txt"

// Status classifies one block's outcome.
type Status string

const (
	// StatusOK means the block was re-encoded and fits its capacity.
	StatusOK Status = "OK"
	// StatusFail means the re-encoded block exceeds its capacity.
	StatusFail Status = "FAIL"
	// StatusSkip means the block file is missing or unchanged since extraction.
	StatusSkip Status = "SKIP"
	// StatusError means the block could not be re-encoded at all.
	StatusError Status = "ERROR"
)

// Item is the outcome for one block.
type Item struct {
	Index     int                `json:"index" yaml:"index"`
	Offset    int                `json:"offset" yaml:"offset"`
	StoredLen int                `json:"stored_len" yaml:"stored_len"`
	Capacity  int                `json:"capacity" yaml:"capacity"`
	NewLen    int                `json:"new_len" yaml:"new_len"`
	Headroom  int                `json:"headroom" yaml:"headroom"`
	OutName   string             `json:"out_name" yaml:"out_name"`
	Kind      manifest.BlockKind `json:"kind" yaml:"kind"`
	Status    Status             `json:"status" yaml:"status"`
	Note      string             `json:"note,omitempty" yaml:"note,omitempty"`
}

// Options configures preflight and repack runs.
type Options struct {
	// GzipLevel is used for Fixed blocks. Zero selects codec.DefaultGzipLevel.
	GzipLevel int

	// Workers bounds parallel block encoding. Zero uses runtime.NumCPU().
	Workers int

	// MaxWarnings caps the warnings listed in text reports. Zero selects
	// DefaultMaxWarnings.
	MaxWarnings int
}

func (o Options) withDefaults() Options {
	if o.GzipLevel == 0 {
		o.GzipLevel = codec.DefaultGzipLevel
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.MaxWarnings <= 0 {
		o.MaxWarnings = DefaultMaxWarnings
	}
	return o
}

// Report is the result of a preflight or repack run.
type Report struct {
	Operation string         `json:"operation" yaml:"operation"`
	BaseFile  string         `json:"base_file" yaml:"base_file"`
	BaseSize  int            `json:"base_size" yaml:"base_size"`
	Dir       string         `json:"dir" yaml:"dir"`
	Output    string         `json:"output,omitempty" yaml:"output,omitempty"`
	Container container.Kind `json:"container" yaml:"container"`
	Items     []Item         `json:"items" yaml:"items"`

	OK      int `json:"ok" yaml:"ok"`
	Failed  int `json:"failed" yaml:"failed"`
	Errors  int `json:"errors" yaml:"errors"`
	Skipped int `json:"skipped" yaml:"skipped"`

	Warnings   []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	ReportPath string        `json:"report_path" yaml:"report_path"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Blocking reports whether any block failed or errored.
func (r *Report) Blocking() bool {
	return r.Failed > 0 || r.Errors > 0
}

// encoded pairs an item with the full region that would replace the block,
// set only for OK items.
type encoded struct {
	item   Item
	region []byte
}

// session is one load of a base file and its extraction directory, verified
// against each other.
type session struct {
	basePath string
	dir      string
	base     []byte
	m        *manifest.Manifest
	opts     Options
}

func open(basePath, dir string, opts Options) (*session, error) {
	m, err := manifest.Load(dir)
	if err != nil {
		return nil, err
	}

	base, err := os.ReadFile(basePath)
	if err != nil {
		return nil, fmt.Errorf("reading base file: %w", err)
	}

	if err := m.VerifyBase(base); err != nil {
		return nil, err
	}

	return &session{basePath: basePath, dir: dir, base: base, m: m, opts: opts.withDefaults()}, nil
}

func (s *session) variant(b manifest.Block) bool {
	return b.IsVariant() || s.m.Container == container.KindVariant
}

// check classifies one block and, when it fits, builds its new region.
func (s *session) check(b manifest.Block) encoded {
	variant := s.variant(b)
	capacity := b.StoredLen
	if variant {
		capacity = b.Capacity()
	}

	it := Item{
		Index:     b.Index,
		Offset:    b.Offset,
		StoredLen: b.StoredLen,
		Capacity:  capacity,
		Headroom:  capacity,
		OutName:   b.OutName,
		Kind:      b.Kind,
	}

	if !fsutil.Exists(manifest.BlockPath(s.dir, b)) {
		it.Status, it.Note = StatusSkip, "missing extracted file"
		return encoded{item: it}
	}
	if s.m.Untouched(s.dir, b) {
		it.Status, it.Note = StatusSkip, "unchanged"
		return encoded{item: it}
	}

	payload, err := EncodeBlock(s.dir, b, variant, s.opts.GzipLevel)
	if err != nil {
		it.Status, it.Note = StatusError, err.Error()
		return encoded{item: it}
	}

	it.NewLen = len(payload)
	it.Headroom = capacity - it.NewLen
	if it.Headroom < 0 {
		it.Status, it.Note = StatusFail, fmt.Sprintf("exceeds capacity by %d bytes", -it.Headroom)
		return encoded{item: it}
	}

	it.Status = StatusOK
	return encoded{item: it, region: splice(s.base, b, variant, payload)}
}

// checkAll runs check over every block in parallel. The result is in
// manifest order.
func (s *session) checkAll(ctx context.Context) ([]encoded, error) {
	out := make([]encoded, len(s.m.Blocks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, b := range s.m.Blocks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = s.check(b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("encoding blocks: %w", err)
	}
	return out, nil
}

func (s *session) newReport(op string, results []encoded) *Report {
	r := &Report{
		Operation: op,
		BaseFile:  filepath.Base(s.basePath),
		BaseSize:  len(s.base),
		Dir:       s.dir,
		Container: s.m.Container,
		Items:     make([]Item, 0, len(results)),
	}
	for _, e := range results {
		r.Items = append(r.Items, e.item)
		switch e.item.Status {
		case StatusOK:
			r.OK++
		case StatusFail:
			r.Failed++
			r.Warnings = append(r.Warnings, fmt.Sprintf("Block %02d @0x%08X too large: %d > cap %d (%s)",
				e.item.Index, e.item.Offset, e.item.NewLen, e.item.Capacity, e.item.OutName))
		case StatusError:
			r.Errors++
			r.Warnings = append(r.Warnings, fmt.Sprintf("Block %02d @0x%08X build failed: %s (%s)",
				e.item.Index, e.item.Offset, e.item.Note, e.item.OutName))
		case StatusSkip:
			r.Skipped++
		}
	}
	return r
}

// Preflight re-encodes every edited block and reports its headroom without
// writing an output file. The report is written to
// <dir>/repack_preflight_report.txt.
//
// The base file is verified against the manifest before any block is
// examined; drift aborts the whole run.
func Preflight(ctx context.Context, basePath, dir string, opts Options) (*Report, error) {
	logger := logging.Get("repack")
	start := time.Now()

	s, err := open(basePath, dir, opts)
	if err != nil {
		return nil, err
	}

	results, err := s.checkAll(ctx)
	if err != nil {
		return nil, err
	}

	r := s.newReport("preflight", results)
	r.ReportPath = filepath.Join(dir, manifest.PreflightReportName)
	if err := fsutil.WriteFileAtomic(r.ReportPath, []byte(preflightText(r, s.opts.MaxWarnings)), 0o644); err != nil {
		return nil, fmt.Errorf("writing preflight report: %w", err)
	}
	r.Elapsed = time.Since(start)

	logger.Info("preflight complete",
		"base", r.BaseFile, "ok", r.OK, "fail", r.Failed, "error", r.Errors, "skip", r.Skipped)
	return r, nil
}

// Repack writes a patched copy of the base file to outPath and a rebuild
// report next to it. Blocks that are missing or unchanged keep their
// original bytes, as do blocks that fail or error; those are counted and
// listed as warnings but do not stop the run. The output is a pure function
// of the base bytes, the block files and the manifest.
func Repack(ctx context.Context, basePath, dir, outPath string, opts Options) (*Report, error) {
	logger := logging.Get("repack")
	start := time.Now()

	s, err := open(basePath, dir, opts)
	if err != nil {
		return nil, err
	}

	results, err := s.checkAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(s.base))
	copy(out, s.base)
	for i, e := range results {
		if e.item.Status != StatusOK {
			continue
		}
		b := s.m.Blocks[i]
		copy(out[b.Offset:b.End()], e.region)
	}

	if err := fsutil.WriteFileAtomic(outPath, out, 0o644); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}

	r := s.newReport("repack", results)
	r.Output = outPath
	r.ReportPath = outPath + ReportSuffix
	if err := fsutil.WriteFileAtomic(r.ReportPath, []byte(rebuildText(r, s.opts.MaxWarnings)), 0o644); err != nil {
		return nil, fmt.Errorf("writing rebuild report: %w", err)
	}
	r.Elapsed = time.Since(start)

	for _, w := range r.Warnings {
		logger.Warn(w)
	}
	logger.Info("repack complete",
		"base", r.BaseFile, "output", outPath, "written", r.OK, "failed", r.Failed+r.Errors, "skipped", r.Skipped)
	return r, nil
}

// CheckBlock classifies a single block against basePath without writing
// anything. It is what editors call after saving a block to learn whether
// the edit still fits.
func CheckBlock(basePath, dir string, index int, opts Options) (Item, error) {
	s, err := open(basePath, dir, opts)
	if err != nil {
		return Item{}, err
	}
	for _, b := range s.m.Blocks {
		if b.Index == index {
			return s.check(b).item, nil
		}
	}
	return Item{}, fmt.Errorf("block %d not in manifest", index)
}
