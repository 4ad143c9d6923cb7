package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jamesainslie/driftsave/pkg/driftsave/codec"
	"github.com/jamesainslie/driftsave/pkg/driftsave/container"
	"github.com/jamesainslie/driftsave/pkg/driftsave/fsutil"
)

// Layout of an extraction directory.
const (
	FileName   = "manifest.json"
	BlocksDir  = "blocks"
	RegionsDir = "orig_regions"

	// PreflightReportName is written into the extraction directory.
	PreflightReportName = "repack_preflight_report.txt"
)

// ErrManifestMissing is returned when an extraction directory has no
// readable manifest.
var ErrManifestMissing = errors.New("manifest.json not found, run extract first")

// BlockName returns the deterministic file name for a block.
func BlockName(index, offset int, ext string) string {
	return fmt.Sprintf("block_%02d_off_%08X%s", index, offset, ext)
}

// Path returns the manifest path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads and normalizes the manifest in dir. The file may be UTF-8 or
// UTF-16LE.
func Load(dir string) (*Manifest, error) {
	path := Path(dir)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestMissing, path)
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal([]byte(codec.ReadText(data)), &m); err != nil {
		return nil, fmt.Errorf("%w: %s does not parse: %v", ErrManifestMissing, path, err)
	}
	m.normalize()

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	return &m, nil
}

// Save writes the manifest to dir as indented UTF-8 JSON, atomically.
func Save(dir string, m *Manifest) error {
	m.normalize()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := fsutil.WriteFileAtomic(Path(dir), data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Validate checks the structural invariants: the container tag and checksum
// algorithm are known, blocks are in ascending index order without reuse and
// every block lies inside the file.
func (m *Manifest) Validate() error {
	if _, err := ParseAlgorithm(string(m.Checksum)); err != nil {
		return err
	}
	if m.Container != "" {
		if _, err := container.ParseKind(string(m.Container)); err != nil {
			return err
		}
	}

	prev := -1
	for _, b := range m.Blocks {
		if b.Index <= prev {
			return fmt.Errorf("block index %d out of order after %d", b.Index, prev)
		}
		prev = b.Index

		if b.Offset < 0 || b.StoredLen < 0 || b.End() > m.FileSize {
			return fmt.Errorf("block %02d range [%d,%d) outside file of %d bytes",
				b.Index, b.Offset, b.End(), m.FileSize)
		}
		if b.PayloadPrefixLen < 0 || b.PayloadPrefixLen > b.StoredLen {
			return fmt.Errorf("block %02d prefix %d exceeds stored length %d",
				b.Index, b.PayloadPrefixLen, b.StoredLen)
		}
	}
	return nil
}

// BlockPath returns the absolute path of a block's extracted file.
func BlockPath(dir string, b Block) string {
	return filepath.Join(dir, filepath.FromSlash(b.OutName))
}
