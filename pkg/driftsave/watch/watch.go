// Package watch reports edits to the block files of an extraction directory,
// coalescing bursts of filesystem events into one notification.
package watch

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/driftsave/pkg/driftsave/logging"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
)

// DefaultDebounce is used when Watcher.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches the blocks directory of one extraction directory.
type Watcher struct {
	// Debounce is the quiet period after the last event before the
	// callback runs.
	Debounce time.Duration

	dir     string
	watcher *fsnotify.Watcher
	mu      sync.Mutex
	closed  bool
}

// New starts watching dir/blocks.
func New(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	blocks := filepath.Join(dir, manifest.BlocksDir)
	if err := fsw.Add(blocks); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{dir: dir, watcher: fsw}, nil
}

// Run blocks until ctx is cancelled, calling onChange with the sorted,
// de-duplicated names of the block files touched since the last call.
// Editor swap and temp files are ignored.
func (w *Watcher) Run(ctx context.Context, onChange func(names []string)) {
	logger := logging.Get("watch")

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if !relevant(name, event.Op) {
				continue
			}
			logger.Debug("block event", "name", name, "op", event.Op.String())
			pending[name] = struct{}{}
			timer.Reset(debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			names := sortedKeys(pending)
			pending = map[string]struct{}{}
			onChange(names)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.watcher.Close()
}

// relevant reports whether an event on name may change a block.
func relevant(name string, op fsnotify.Op) bool {
	if op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	if !strings.HasPrefix(name, "block_") {
		return false
	}
	for _, suffix := range []string{".tmp", ".swp", "~"} {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}
	return true
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
