package manifest

import (
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Algorithm names the checksum used for base, region and file fingerprints.
type Algorithm string

const (
	// SHA1 is the default and the only algorithm older manifests use.
	SHA1 Algorithm = "sha1"
	// BLAKE3 is a faster alternative for large saves.
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm parses a checksum name. Empty selects SHA1.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case "", SHA1:
		return SHA1, nil
	case BLAKE3:
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("unknown checksum algorithm: %q", s)
	}
}

func (a Algorithm) newHash() hash.Hash {
	if a == BLAKE3 {
		return blake3.New()
	}
	return sha1.New() //nolint:gosec // see import
}

// Sum returns the hex checksum of b.
func (a Algorithm) Sum(b []byte) string {
	h := a.newHash()
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

// SumFile returns the hex checksum of the file at path.
func (a Algorithm) SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := a.newHash()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
