package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrSignatureMismatch means the base file is not the one the manifest
	// was extracted from.
	ErrSignatureMismatch = errors.New("base file does not match extracted manifest (signature mismatch), re-extract")

	// ErrBaseDrift means a block's region in the base file changed since
	// extraction.
	ErrBaseDrift = errors.New("base file drift, re-extract")
)

// VerifyBase checks the whole-file signature and then every block region
// against data. It returns on the first mismatch and never modifies data.
func (m *Manifest) VerifyBase(data []byte) error {
	if len(data) != m.FileSize && m.FileSize != 0 {
		return fmt.Errorf("%w: size %d, manifest records %d", ErrSignatureMismatch, len(data), m.FileSize)
	}
	if m.BaseSig != "" && m.Checksum.Sum(data) != m.BaseSig {
		return ErrSignatureMismatch
	}

	for _, b := range m.Blocks {
		if b.RegionChecksum == "" {
			continue
		}
		if b.End() > len(data) {
			return fmt.Errorf("%w: block %02d (0x%08X, len=%d) lies past end of file",
				ErrBaseDrift, b.Index, b.Offset, b.StoredLen)
		}
		if m.Checksum.Sum(data[b.Offset:b.End()]) != b.RegionChecksum {
			return fmt.Errorf("%w: block %02d (0x%08X, len=%d) no longer matches",
				ErrBaseDrift, b.Index, b.Offset, b.StoredLen)
		}
	}
	return nil
}

// Untouched reports whether the block's extracted file still has the
// checksum recorded at extraction time. A missing file or missing checksum
// is never untouched.
func (m *Manifest) Untouched(dir string, b Block) bool {
	if b.FileChecksum == "" {
		return false
	}
	sum, err := m.Checksum.SumFile(BlockPath(dir, b))
	if err != nil {
		return false
	}
	return sum == b.FileChecksum
}
