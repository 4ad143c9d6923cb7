package repack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesainslie/driftsave/pkg/driftsave/extract"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
)

// RoundTripResult compares a base file with its unedited rebuild.
type RoundTripResult struct {
	BaseFile  string `json:"base_file" yaml:"base_file"`
	Size      int    `json:"size" yaml:"size"`
	Blocks    int    `json:"blocks" yaml:"blocks"`
	Identical bool   `json:"identical" yaml:"identical"`

	// FirstDiff is the first differing offset, or -1.
	FirstDiff int     `json:"first_diff" yaml:"first_diff"`
	BaseSum   string  `json:"base_sum" yaml:"base_sum"`
	OutSum    string  `json:"out_sum" yaml:"out_sum"`
	Report    *Report `json:"report" yaml:"report"`
}

// RoundTrip extracts basePath into a scratch directory, repacks it with no
// edits and compares the output with the input byte for byte.
func RoundTrip(ctx context.Context, basePath string, algo manifest.Algorithm, opts Options) (*RoundTripResult, error) {
	scratch, err := os.MkdirTemp("", "driftsave-roundtrip-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	dir := filepath.Join(scratch, "extracted")
	m, err := extract.File(ctx, basePath, dir, extract.Options{Checksum: algo, Workers: opts.Workers})
	if err != nil {
		return nil, err
	}

	outPath := filepath.Join(scratch, "rebuilt.dat")
	report, err := Repack(ctx, basePath, dir, outPath, opts)
	if err != nil {
		return nil, err
	}

	base, err := os.ReadFile(basePath)
	if err != nil {
		return nil, fmt.Errorf("reading base file: %w", err)
	}
	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("reading rebuilt file: %w", err)
	}

	// The report file lives in the scratch directory.
	report.ReportPath = ""
	report.Output = ""

	res := &RoundTripResult{
		BaseFile:  filepath.Base(basePath),
		Size:      len(base),
		Blocks:    len(m.Blocks),
		FirstDiff: firstDiff(base, out),
		BaseSum:   m.Checksum.Sum(base),
		OutSum:    m.Checksum.Sum(out),
		Report:    report,
	}
	res.Identical = res.FirstDiff < 0
	return res, nil
}

func firstDiff(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
