// Package workspace indexes extraction directories by the signature of the
// base file they were extracted from, so preflight and repack can find the
// right directory for a save without being told.
package workspace

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
)

// KeySeparator separates the base signature from the directory in keys.
const KeySeparator = '\x00'

// Workspace is one indexed extraction directory.
type Workspace struct {
	BaseSig   string
	Dir       string
	BaseFile  string
	FileSize  int
	Checksum  string
	Container string
	Blocks    int
	IndexedAt time.Time
}

// FromManifest describes the extraction directory dir holding m.
func FromManifest(dir string, m *manifest.Manifest) Workspace {
	return Workspace{
		BaseSig:   m.BaseSig,
		Dir:       dir,
		BaseFile:  m.BaseFile,
		FileSize:  m.FileSize,
		Checksum:  string(m.Checksum),
		Container: string(m.Container),
		Blocks:    len(m.Blocks),
		IndexedAt: time.Now().UTC(),
	}
}

// Encode serializes the workspace using gob.
func (w *Workspace) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes data into the workspace.
func (w *Workspace) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(w)
}

// MakeKey creates an index key. Format: <sig>\x00<dir>
func MakeKey(sig, dir string) []byte {
	return []byte(sig + string(KeySeparator) + dir)
}

// MakeKeyPrefix returns the prefix for all keys of a signature.
func MakeKeyPrefix(sig string) []byte {
	return []byte(sig + string(KeySeparator))
}

// ParseKey splits a key into signature and directory.
func ParseKey(key []byte) (sig, dir string) {
	idx := bytes.IndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key), ""
	}
	return string(key[:idx]), string(key[idx+1:])
}
