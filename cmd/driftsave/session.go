package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesainslie/driftsave/pkg/driftsave/extract"
	"github.com/jamesainslie/driftsave/pkg/driftsave/history"
	"github.com/jamesainslie/driftsave/pkg/driftsave/logging"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
	"github.com/jamesainslie/driftsave/pkg/driftsave/repack"
	"github.com/jamesainslie/driftsave/pkg/driftsave/workspace"
)

// checksum returns the configured fingerprint algorithm.
func checksum() (manifest.Algorithm, error) {
	return manifest.ParseAlgorithm(cfg.Checksum)
}

// repackOptions builds repack options from the configuration.
func repackOptions() repack.Options {
	return repack.Options{
		GzipLevel:   cfg.GzipLevel,
		Workers:     cfg.Workers,
		MaxWarnings: cfg.Report.MaxWarnings,
	}
}

// defaultWorkDir returns <work_root>/<stem>_<size>_<sig prefix> for the base
// file at path.
func defaultWorkDir(path string, data []byte, algo manifest.Algorithm) string {
	name := extract.WorkDirName(filepath.Base(path), len(data), algo.Sum(data))
	return filepath.Join(cfg.WorkRoot, name)
}

// resolveDir finds the extraction directory for basePath. An explicit dir
// wins; otherwise the default work directory is tried, then the workspace
// index under both checksum algorithms.
func resolveDir(basePath, dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}

	data, err := os.ReadFile(basePath)
	if err != nil {
		return "", fmt.Errorf("reading base file: %w", err)
	}

	algo, err := checksum()
	if err != nil {
		return "", err
	}

	candidate := defaultWorkDir(basePath, data, algo)
	if _, err := os.Stat(manifest.Path(candidate)); err == nil {
		printVerbose("Using work directory %s", candidate)
		return candidate, nil
	}

	if cfg.Index.Enabled {
		idx, err := workspace.Open(cfg.Index.Path)
		if err != nil {
			logging.Get("cli").Warn("workspace index unavailable", "error", err)
		} else {
			defer idx.Close()
			w, err := idx.Resolve(manifest.SHA1.Sum(data), manifest.BLAKE3.Sum(data))
			if err == nil {
				printVerbose("Using indexed work directory %s", w.Dir)
				return w.Dir, nil
			}
			if !errors.Is(err, workspace.ErrNotFound) {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("%w: no extraction of %s found under %s (pass --dir)",
		manifest.ErrManifestMissing, basePath, cfg.WorkRoot)
}

// indexWorkspace records an extraction in the workspace index. Failures are
// logged, not returned.
func indexWorkspace(dir string, m *manifest.Manifest) {
	if !cfg.Index.Enabled {
		return
	}
	idx, err := workspace.Open(cfg.Index.Path)
	if err != nil {
		logging.Get("cli").Warn("workspace index unavailable", "error", err)
		return
	}
	defer idx.Close()

	if err := idx.Put(workspace.FromManifest(absPath(dir), m)); err != nil {
		logging.Get("cli").Warn("failed to index workspace", "dir", dir, "error", err)
	}
}

// journal returns the history journal, or nil when history is disabled.
func journal() *history.Journal {
	if !cfg.History.Enabled {
		return nil
	}
	j, err := history.New(cfg.History.Path)
	if err != nil {
		logging.Get("cli").Warn("history unavailable", "error", err)
		return nil
	}
	return j
}

// recordReport journals a preflight or repack report.
func recordReport(r *repack.Report) {
	if j := journal(); j != nil {
		if _, err := j.LogReport(r); err != nil {
			logging.Get("cli").Warn("failed to record history", "error", err)
		}
	}
}
