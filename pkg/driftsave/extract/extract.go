// Package extract turns a save file into editable block files plus the
// manifest that ties each file back to its region in the save.
package extract

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/driftsave/pkg/driftsave/container"
	"github.com/jamesainslie/driftsave/pkg/driftsave/fsutil"
	"github.com/jamesainslie/driftsave/pkg/driftsave/logging"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
)

// Options configures an extraction run.
type Options struct {
	// Checksum selects the fingerprint algorithm. Empty selects SHA1.
	Checksum manifest.Algorithm

	// Workers bounds parallel segment decoding. Zero uses runtime.NumCPU().
	Workers int
}

// File reads basePath and extracts it into outDir.
func File(ctx context.Context, basePath, outDir string, opts Options) (*manifest.Manifest, error) {
	data, err := os.ReadFile(basePath)
	if err != nil {
		return nil, fmt.Errorf("reading base file: %w", err)
	}
	return Extract(ctx, filepath.Base(basePath), data, outDir, opts)
}

// Extract scans data, decodes every segment and writes blocks/, orig_regions/
// and manifest.json into outDir. Output left by a previous run is removed
// first, so outDir never mixes two block sets. Other files in outDir are
// left alone.
//
// Per-segment decode problems never fail the run; they are recorded in the
// block's note with a fallback kind that keeps the region repackable.
func Extract(ctx context.Context, baseName string, data []byte, outDir string, opts Options) (*manifest.Manifest, error) {
	logger := logging.Get("extract")
	start := time.Now()

	algo := opts.Checksum
	if algo == "" {
		algo = manifest.SHA1
	}

	scan := container.Scan(data)
	logger.Info("scanned base file",
		"base", baseName,
		"size", len(data),
		"container", scan.Kind,
		"segments", len(scan.Segments),
		"layout", scan.Info.Layout)
	if scan.Info.Fallback != "" {
		logger.Warn("header table rejected, used sentinel scan", "reason", scan.Info.Fallback)
	}

	blocks, err := decodeAll(ctx, scan, opts.Workers)
	if err != nil {
		return nil, err
	}

	if err := clearOutputs(outDir); err != nil {
		return nil, err
	}

	m := &manifest.Manifest{
		BaseFile:      baseName,
		FileSize:      len(data),
		BaseSig:       algo.Sum(data),
		Checksum:      algo,
		Container:     scan.Kind,
		ContainerInfo: scan.Info,
		Blocks:        make([]manifest.Block, 0, len(blocks)),
	}

	for i, d := range blocks {
		b := d.block
		b.Index = i

		name := manifest.BlockName(i, b.Offset, d.ext)
		b.OutName = path.Join(manifest.BlocksDir, name)
		if err := fsutil.WriteFileAtomic(manifest.BlockPath(outDir, b), d.data, 0o644); err != nil {
			return nil, fmt.Errorf("writing block %02d: %w", i, err)
		}
		b.FileChecksum = algo.Sum(d.data)

		region := data[b.Offset:b.End()]
		b.RegionChecksum = algo.Sum(region)
		b.OrigRegion = path.Join(manifest.RegionsDir, manifest.BlockName(i, b.Offset, ".bin"))
		if err := fsutil.WriteFileAtomic(filepath.Join(outDir, filepath.FromSlash(b.OrigRegion)), region, 0o644); err != nil {
			return nil, fmt.Errorf("writing original region %02d: %w", i, err)
		}

		if b.Note != "" {
			logger.Warn("block decoded with fallback", "index", i, "offset", fmt.Sprintf("0x%08X", b.Offset), "kind", b.Kind, "note", b.Note)
		}
		m.Blocks = append(m.Blocks, b)
	}

	if err := manifest.Save(outDir, m); err != nil {
		return nil, err
	}

	logger.Info("extraction complete", "dir", outDir, "blocks", len(m.Blocks), "elapsed", time.Since(start))
	return m, nil
}

// decodeAll decodes segments in parallel. The result is in segment order.
func decodeAll(ctx context.Context, scan *container.Result, workers int) ([]decoded, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	decode := decodeFixed
	if scan.Kind == container.KindVariant {
		decode = decodeVariant
	}

	out := make([]decoded, len(scan.Segments))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seg := range scan.Segments {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = decode(seg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("decoding segments: %w", err)
	}
	return out, nil
}

// clearOutputs removes everything a previous extraction into dir produced.
func clearOutputs(dir string) error {
	for _, sub := range []string{manifest.BlocksDir, manifest.RegionsDir} {
		if err := fsutil.ResetDir(filepath.Join(dir, sub)); err != nil {
			return fmt.Errorf("clearing previous extraction: %w", err)
		}
	}
	for _, name := range []string{manifest.FileName, manifest.PreflightReportName} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clearing previous extraction: %w", err)
		}
	}
	return nil
}

// WorkDirName returns the stable directory name for a base file:
// <stem>_<size>_<first 8 hex digits of sig>. Different files never share a
// directory.
func WorkDirName(baseName string, size int, sig string) string {
	stem := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if len(sig) > 8 {
		sig = sig[:8]
	}
	return fmt.Sprintf("%s_%d_%s", stem, size, sig)
}
