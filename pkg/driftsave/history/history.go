package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/driftsave/pkg/driftsave/fsutil"
	"github.com/jamesainslie/driftsave/pkg/driftsave/logging"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
	"github.com/jamesainslie/driftsave/pkg/driftsave/repack"
)

var logger = logging.Get("history")

// ErrNotFound is returned by Get when no entry matches.
var ErrNotFound = errors.New("history entry not found")

// Journal stores entries as JSON files in a directory.
type Journal struct {
	dir string
	mu  sync.Mutex
}

// New creates a Journal backed by dir. The directory is created on the first
// write.
func New(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &Journal{dir: dir}, nil
}

// Dir returns the journal directory.
func (j *Journal) Dir() string {
	return j.dir
}

// LogExtract records an extraction of m into dir.
func (j *Journal) LogExtract(dir string, m *manifest.Manifest) (*Entry, error) {
	records := make([]Record, len(m.Blocks))
	for i, b := range m.Blocks {
		records[i] = Record{Index: b.Index, OutName: b.OutName, Kind: string(b.Kind), Note: b.Note}
	}

	return j.Record(&Entry{
		Operation: OpExtract,
		BaseFile:  m.BaseFile,
		BaseSig:   m.BaseSig,
		Dir:       dir,
		Summary:   Summary{Blocks: len(m.Blocks)},
		Blocks:    records,
	})
}

// LogReport records a preflight or repack report.
func (j *Journal) LogReport(r *repack.Report) (*Entry, error) {
	records := make([]Record, len(r.Items))
	for i, it := range r.Items {
		records[i] = Record{
			Index:    it.Index,
			OutName:  it.OutName,
			Kind:     string(it.Kind),
			Status:   string(it.Status),
			Headroom: it.Headroom,
			Note:     it.Note,
		}
	}

	op := OpPreflight
	if r.Operation == "repack" {
		op = OpRepack
	}

	return j.Record(&Entry{
		Operation: op,
		BaseFile:  r.BaseFile,
		Dir:       r.Dir,
		Output:    r.Output,
		Summary: Summary{
			Blocks:  len(r.Items),
			OK:      r.OK,
			Failed:  r.Failed,
			Errors:  r.Errors,
			Skipped: r.Skipped,
		},
		Blocks: records,
	})
}

// LogRoundTrip records a round-trip check. A differing rebuild is recorded
// in Error.
func (j *Journal) LogRoundTrip(rt *repack.RoundTripResult) (*Entry, error) {
	e := &Entry{
		Operation: OpRoundTrip,
		BaseFile:  rt.BaseFile,
		BaseSig:   rt.BaseSum,
		Summary:   Summary{Blocks: rt.Blocks},
	}
	if !rt.Identical {
		e.Error = fmt.Sprintf("rebuild differs at offset 0x%X", rt.FirstDiff)
	}
	return j.Record(e)
}

// Record assigns e an ID and timestamp and persists it.
func (j *Journal) Record(e *Entry) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	e.Timestamp = time.Now().UTC()
	e.ID = generateID(e.Operation, e.Timestamp)

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry: %w", err)
	}

	if err := fsutil.WriteFileAtomic(filepath.Join(j.dir, e.ID+".json"), data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write history entry: %w", err)
	}

	logger.Debug("recorded", "id", e.ID, "operation", e.Operation, "base", e.BaseFile)
	return e, nil
}

// List returns entries newest first. If limit is 0 or negative, all entries
// are returned.
func (j *Journal) List(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(a, b int) bool {
		return entries[a].Timestamp.After(entries[b].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry whose ID equals id, or the only entry whose ID
// starts with it.
func (j *Journal) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := j.readAll()
	if err != nil {
		return nil, err
	}

	var match *Entry
	for i := range entries {
		e := &entries[i]
		if e.ID == id {
			return e, nil
		}
		if strings.HasPrefix(e.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous entry ID prefix: %s", id)
			}
			match = e
		}
	}

	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}

// Cleanup removes entries older than retentionDays and returns how many were
// removed.
func (j *Journal) Cleanup(retentionDays int) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read history directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		e, err := j.readEntry(f.Name())
		if err != nil {
			continue
		}

		if e.Timestamp.Before(cutoff) {
			if err := os.Remove(filepath.Join(j.dir, f.Name())); err != nil {
				logger.Warn("cleanup failed", "file", f.Name(), "error", err)
				continue
			}
			removed++
		}
	}

	return removed, nil
}

func (j *Journal) readAll() ([]Entry, error) {
	files, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		e, err := j.readEntry(f.Name())
		if err != nil {
			// Skip files that can't be parsed
			logger.Debug("skipping entry", "file", f.Name(), "error", err)
			continue
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

func (j *Journal) readEntry(name string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(j.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &e, nil
}

// generateID creates an ID like "repack-2026-10-16T10-30-00-1b4e28ba".
func generateID(op Operation, ts time.Time) string {
	return fmt.Sprintf("%s-%s-%s", op, ts.Format("2006-01-02T15-04-05"), uuid.NewString()[:8])
}
