package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/driftsave/pkg/driftsave/logging"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
)

// Discover walks root and returns a workspace for every directory holding a
// loadable manifest, sorted by directory. Unreadable manifests are logged
// and skipped. Directories below an extraction directory are not entered.
func Discover(ctx context.Context, root string) ([]Workspace, error) {
	logger := logging.Get("workspace")

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return []Workspace{}, nil
		}
		return nil, err
	}

	var (
		mu    sync.Mutex
		found = []Workspace{}
	)

	conf := fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			logger.Debug("walk error", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case manifest.BlocksDir, manifest.RegionsDir:
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != manifest.FileName {
			return nil
		}

		dir := filepath.Dir(path)
		m, err := manifest.Load(dir)
		if err != nil {
			logger.Warn("skipping workspace", "dir", dir, "error", err)
			return nil
		}

		mu.Lock()
		found = append(found, FromManifest(dir, m))
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return nil, walkErr
		}
		return nil, fmt.Errorf("walking %s: %w", root, walkErr)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Dir < found[j].Dir })
	logger.Info("discovered workspaces", "root", root, "count", len(found))
	return found, nil
}

// Reindex discovers the workspaces under root, stores them and forgets
// indexed directories under root whose manifest is gone. It returns the
// discovered workspaces and the number forgotten.
func (x *Index) Reindex(ctx context.Context, root string) ([]Workspace, int, error) {
	found, err := Discover(ctx, root)
	if err != nil {
		return nil, 0, err
	}
	if err := x.PutBatch(found); err != nil {
		return nil, 0, fmt.Errorf("storing workspaces: %w", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, 0, err
	}

	all, err := x.All()
	if err != nil {
		return nil, 0, err
	}

	forgotten := 0
	for _, w := range all {
		if !within(absRoot, w.Dir) {
			continue
		}
		if _, err := os.Stat(manifest.Path(w.Dir)); err == nil {
			continue
		}
		n, err := x.Forget(w.Dir)
		if err != nil {
			return nil, 0, err
		}
		forgotten += n
	}

	return found, forgotten, nil
}

// within reports whether dir is root or below it.
func within(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Resolve returns the newest indexed directory for any of sigs whose
// manifest still exists and still carries that signature.
func (x *Index) Resolve(sigs ...string) (Workspace, error) {
	for _, sig := range sigs {
		ws, err := x.Lookup(sig)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Workspace{}, err
		}
		for _, w := range ws {
			m, err := manifest.Load(w.Dir)
			if err != nil || m.BaseSig != sig {
				continue
			}
			return w, nil
		}
	}
	return Workspace{}, ErrNotFound
}
