// Package container recognises the two save-file layouts and locates the
// embedded segments inside them.
//
// A Fixed ("h4si") file has no directory: every segment is a base64 encoded
// gzip member found by signature scanning. A Variant ("fallen") file starts
// with its own magic and carries an optional header table; when the table
// cannot be trusted the segments are recovered by scanning for the sentinel
// that precedes every payload.
package container

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrUnknownContainer is returned for a container tag that names neither
// layout. Detect never returns it: unrecognised data is treated as Fixed.
var ErrUnknownContainer = errors.New("unknown container")

// Kind identifies a container layout. The values are persisted in manifests.
type Kind string

const (
	// KindFixed is the directory-less base64/gzip layout.
	KindFixed Kind = "h4si"
	// KindVariant is the sentinel-delimited UTF-16LE layout.
	KindVariant Kind = "fallen"
)

// ParseKind converts a persisted container tag back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindFixed, KindVariant:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownContainer, s)
}

// Segment is one embedded record as found on disk.
type Segment struct {
	// Offset is the byte offset of the segment start in the source file.
	Offset int
	// StoredLen is the fixed number of bytes the segment occupies.
	StoredLen int
	// Raw is the segment's pre-decode representation. For Fixed files it is
	// the base64 run with whitespace removed.
	Raw []byte
}

// End returns the offset one past the segment's last stored byte.
func (s Segment) End() int {
	return s.Offset + s.StoredLen
}

// Info carries diagnostic statistics about a scan. It is stored verbatim in
// the manifest and never consulted by the repack engine.
type Info struct {
	HeaderLen       int            `json:"header_len"`
	Segments        int            `json:"segments"`
	Layout          string         `json:"layout,omitempty"`
	Markers         map[string]int `json:"markers,omitempty"`
	TableEntries    int            `json:"table_entries,omitempty"`
	RejectedEntries int            `json:"rejected_entries,omitempty"`
	DataLen         uint32         `json:"data_len,omitempty"`
	Flags           uint32         `json:"flags,omitempty"`
	Fallback        string         `json:"fallback,omitempty"`
}

// Result is the output of Scan.
type Result struct {
	Kind     Kind
	Info     Info
	Segments []Segment
}

// Detect reports which container layout data uses.
func Detect(data []byte) Kind {
	if bytes.HasPrefix(data, VariantMagic) {
		return KindVariant
	}
	return KindFixed
}

// Scan detects the container kind and returns its segments in ascending
// offset order.
func Scan(data []byte) *Result {
	kind := Detect(data)

	var (
		segs []Segment
		info Info
	)
	switch kind {
	case KindVariant:
		segs, info = scanVariant(data)
	default:
		segs, info = scanFixed(data)
	}
	info.Segments = len(segs)

	return &Result{Kind: kind, Info: info, Segments: segs}
}
