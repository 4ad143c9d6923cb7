package workspace

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no workspace matches.
var ErrNotFound = errors.New("workspace not found")

// Index wraps Badger for workspace lookups.
type Index struct {
	db *badger.DB
}

// Open opens or creates an index at path.
func Open(path string) (*Index, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening workspace index %s: %w", path, err)
	}

	return &Index{db: db}, nil
}

// Close closes the index.
func (x *Index) Close() error {
	return x.db.Close()
}

// Put stores or replaces a workspace.
func (x *Index) Put(w Workspace) error {
	if w.BaseSig == "" || w.Dir == "" {
		return errors.New("workspace needs a base signature and a directory")
	}
	w.Dir = filepath.Clean(w.Dir)

	value, err := w.Encode()
	if err != nil {
		return err
	}

	return x.db.Update(func(txn *badger.Txn) error {
		return txn.Set(MakeKey(w.BaseSig, w.Dir), value)
	})
}

// PutBatch stores many workspaces in one write batch.
func (x *Index) PutBatch(ws []Workspace) error {
	wb := x.db.NewWriteBatch()
	defer wb.Cancel()

	for _, w := range ws {
		w.Dir = filepath.Clean(w.Dir)
		value, err := w.Encode()
		if err != nil {
			return err
		}
		if err := wb.Set(MakeKey(w.BaseSig, w.Dir), value); err != nil {
			return err
		}
	}

	return wb.Flush()
}

// Lookup returns every workspace for a base signature, newest first.
func (x *Index) Lookup(sig string) ([]Workspace, error) {
	ws, err := x.scan(MakeKeyPrefix(sig))
	if err != nil {
		return nil, err
	}
	if len(ws) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sig)
	}
	return ws, nil
}

// All returns every indexed workspace, newest first.
func (x *Index) All() ([]Workspace, error) {
	return x.scan(nil)
}

// Forget removes every entry for dir and returns how many were removed.
func (x *Index) Forget(dir string) (int, error) {
	dir = filepath.Clean(dir)
	removed := 0

	err := x.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var doomed [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			if _, d := ParseKey(it.Item().Key()); d == dir {
				doomed = append(doomed, it.Item().KeyCopy(nil))
			}
		}
		for _, k := range doomed {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		removed = len(doomed)
		return nil
	})

	return removed, err
}

// Clear removes all entries.
func (x *Index) Clear() error {
	return x.db.DropAll()
}

func (x *Index) scan(prefix []byte) ([]Workspace, error) {
	var ws []Workspace

	err := x.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var w Workspace
			if err := it.Item().Value(w.Decode); err != nil {
				return err
			}
			ws = append(ws, w)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(ws, func(i, j int) bool {
		return ws[i].IndexedAt.After(ws[j].IndexedAt)
	})
	return ws, nil
}
