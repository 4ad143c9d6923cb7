// Package containertest builds synthetic save files for tests.
package containertest

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/jamesainslie/driftsave/pkg/driftsave/codec"
	"github.com/jamesainslie/driftsave/pkg/driftsave/container"
)

// FixedHeader is the opaque prefix written before the first Fixed segment.
var FixedHeader = []byte{0x50, 0x53, 0x34, 0x00, 0x01, 0x00, 0x00, 0x00, 0xA0, 0xB1, 0xC2, 0xD3}

// fixedSeparator sits between Fixed segments. None of its bytes belong to the
// base64 alphabet or whitespace.
var fixedSeparator = []byte{0x00, 0x01, 0x02, 0x03, 0x00, 0x00, 0x00, 0x00}

// FixedBlock encodes text as UTF-16LE, gzips it with mtime, base64 encodes it
// and right-pads the result with spaces to storedLen.
func FixedBlock(tb testing.TB, text string, storedLen int, mtime uint32) []byte {
	tb.Helper()

	payload, err := codec.EncodeUTF16LE(text)
	if err != nil {
		tb.Fatalf("encoding text: %v", err)
	}
	return FixedRaw(tb, payload, storedLen, mtime)
}

// FixedRaw is FixedBlock for an arbitrary payload.
func FixedRaw(tb testing.TB, payload []byte, storedLen int, mtime uint32) []byte {
	tb.Helper()

	gz, err := codec.Compress(payload, mtime, codec.DefaultGzipLevel)
	if err != nil {
		tb.Fatalf("compressing payload: %v", err)
	}
	b64 := codec.EncodeBase64(gz)
	if len(b64) > storedLen {
		tb.Fatalf("encoded block is %d bytes, larger than stored length %d", len(b64), storedLen)
	}
	return append(b64, bytes.Repeat([]byte{' '}, storedLen-len(b64))...)
}

// BuildFixed lays blocks out after FixedHeader, separated by non-base64 bytes.
// It returns the file and the offset of every block.
func BuildFixed(blocks ...[]byte) ([]byte, []int) {
	var (
		buf     bytes.Buffer
		offsets []int
	)
	buf.Write(FixedHeader)
	for _, b := range blocks {
		offsets = append(offsets, buf.Len())
		buf.Write(b)
		buf.Write(fixedSeparator)
	}
	return buf.Bytes(), offsets
}

// VariantSegment is one payload to place in a Variant file.
type VariantSegment struct {
	Type    uint32
	Payload []byte
}

// VariantText returns text as UTF-16LE followed by tail.
func VariantText(tb testing.TB, text string, tail []byte) []byte {
	tb.Helper()

	b, err := codec.EncodeUTF16LE(text)
	if err != nil {
		tb.Fatalf("encoding text: %v", err)
	}
	return append(b, tail...)
}

// BuildVariant writes magic, header, a consistent table and every segment
// preceded by the sentinel. It returns the file and the payload offsets.
func BuildVariant(segs ...VariantSegment) ([]byte, []int) {
	base := container.TableStart + container.EntrySize*len(segs)

	var body bytes.Buffer
	var rel []int
	for _, s := range segs {
		body.Write(container.Sentinel)
		rel = append(rel, body.Len())
		body.Write(s.Payload)
	}

	out := make([]byte, base, base+body.Len())
	copy(out, container.VariantMagic)
	binary.LittleEndian.PutUint32(out[8:], uint32(base))
	binary.LittleEndian.PutUint32(out[12:], uint32(len(segs)))
	binary.LittleEndian.PutUint32(out[16:], uint32(body.Len()))
	binary.LittleEndian.PutUint32(out[20:], 1)

	offsets := make([]int, len(segs))
	for i, s := range segs {
		e := out[container.TableStart+i*container.EntrySize:]
		binary.LittleEndian.PutUint32(e[0:], uint32(i+1))
		binary.LittleEndian.PutUint32(e[4:], s.Type)
		binary.LittleEndian.PutUint32(e[8:], uint32(len(s.Payload)))
		binary.LittleEndian.PutUint32(e[12:], uint32(rel[i]))
		offsets[i] = base + rel[i]
	}

	return append(out, body.Bytes()...), offsets
}
