// Package manifest defines the record that ties extracted block files back to
// their position in the original save file, and the checks that guard a
// repack against a base file that has drifted since extraction.
package manifest

import (
	"encoding/json"

	"github.com/jamesainslie/driftsave/pkg/driftsave/container"
)

// BlockKind selects how a block is re-encoded.
type BlockKind string

const (
	// KindText is UTF-16LE text from a Fixed segment.
	KindText BlockKind = "text"
	// KindBinary is a decompressed Fixed payload that is not UTF-16LE.
	KindBinary BlockKind = "binary"
	// KindRawGzip is a Fixed payload that could not be decompressed; the file
	// holds the gzip bytes as found.
	KindRawGzip BlockKind = "raw_gz"
	// KindContainerText is the editable UTF-16LE prefix of a Variant segment.
	KindContainerText BlockKind = "fallen_text"
)

// Block records one segment's provenance. Every field added after the first
// release must tolerate being absent from older manifests.
type Block struct {
	Index     int       `json:"index"`
	Offset    int       `json:"offset"`
	StoredLen int       `json:"stored_len"`
	GzipMtime uint32    `json:"gzip_mtime"`
	OutName   string    `json:"out_name"`
	Kind      BlockKind `json:"kind"`
	Note      string    `json:"note"`

	// FileChecksum is the checksum of the extracted file at write time.
	FileChecksum string `json:"file_checksum"`
	// RegionChecksum is the checksum of the base file bytes at
	// [Offset, Offset+StoredLen).
	RegionChecksum string `json:"region_checksum"`
	// OrigRegion is the relative path of a copy of the original region.
	OrigRegion string `json:"orig_region"`

	// PayloadPrefixLen is the Variant-only editable capacity; bytes after it
	// up to StoredLen are preserved verbatim.
	PayloadPrefixLen int `json:"payload_prefix_len"`
}

// UnmarshalJSON accepts the legacy file_sha1/region_sha1 keys. A Variant
// block written before payload_prefix_len existed gets its whole stored
// length as capacity.
func (b *Block) UnmarshalJSON(data []byte) error {
	type plain Block
	var aux struct {
		plain
		FileSHA1         string `json:"file_sha1"`
		RegionSHA1       string `json:"region_sha1"`
		PayloadPrefixLen *int   `json:"payload_prefix_len"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*b = Block(aux.plain)
	if b.FileChecksum == "" {
		b.FileChecksum = aux.FileSHA1
	}
	if b.RegionChecksum == "" {
		b.RegionChecksum = aux.RegionSHA1
	}
	switch {
	case aux.PayloadPrefixLen != nil:
		b.PayloadPrefixLen = *aux.PayloadPrefixLen
	case b.IsVariant():
		b.PayloadPrefixLen = b.StoredLen
	}
	return nil
}

// End returns the offset one past the block's last stored byte.
func (b Block) End() int {
	return b.Offset + b.StoredLen
}

// IsVariant reports whether the block uses the Variant re-encoding path.
func (b Block) IsVariant() bool {
	return b.Kind == KindContainerText
}

// Capacity is the number of bytes a re-encoded block may occupy: the stored
// length for Fixed blocks and the editable prefix for Variant blocks. A
// Variant block whose payload starts with its tail has zero capacity.
func (b Block) Capacity() int {
	if b.IsVariant() {
		return b.PayloadPrefixLen
	}
	return b.StoredLen
}

// Manifest is the top-level record persisted as manifest.json.
type Manifest struct {
	BaseFile      string         `json:"base_file"`
	FileSize      int            `json:"file_size"`
	BaseSig       string         `json:"base_sig"`
	Checksum      Algorithm      `json:"checksum"`
	Container     container.Kind `json:"container"`
	ContainerInfo container.Info `json:"container_info"`
	Blocks        []Block        `json:"blocks"`
}

// normalize fills defaults for fields missing from older manifests.
func (m *Manifest) normalize() {
	if m.Container == "" {
		m.Container = container.KindFixed
	}
	if m.Checksum == "" {
		m.Checksum = SHA1
	}
	if m.Blocks == nil {
		m.Blocks = []Block{}
	}
}
