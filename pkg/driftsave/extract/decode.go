package extract

import (
	"bytes"
	"encoding/json"

	"github.com/jamesainslie/driftsave/pkg/driftsave/codec"
	"github.com/jamesainslie/driftsave/pkg/driftsave/container"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
)

// tailMarkers start an opaque tail inside a Variant payload. They are only
// recognised at even offsets, where a UTF-16 code unit begins.
var tailMarkers = [][]byte{
	{0x00, 0x00},
	{0xEF, 0xBE, 0xAD, 0xDE},
}

// decoded is a block ready to be written: its manifest record minus the
// checksums, and the exact bytes of its output file.
type decoded struct {
	block manifest.Block
	ext   string
	data  []byte
}

func decodeFixed(seg container.Segment) decoded {
	d := decoded{block: manifest.Block{Offset: seg.Offset, StoredLen: seg.StoredLen}}

	gz, ok := codec.DecodeBase64Gzip(seg.Raw)
	if !ok {
		d.block.Kind = manifest.KindRawGzip
		d.block.Note = "base64 decode did not yield a gzip stream; file holds the stored base64 text"
		d.ext = ".raw_gz"
		d.data = seg.Raw
		return d
	}
	d.block.GzipMtime = codec.Mtime(gz)

	payload, err := codec.DecompressFirstMember(gz)
	if err != nil {
		d.block.Kind = manifest.KindRawGzip
		d.block.Note = "gunzip failed: " + err.Error()
		d.ext = ".raw_gz"
		d.data = gz
		return d
	}

	text, err := codec.DecodeUTF16LE(payload)
	if err != nil {
		d.block.Kind = manifest.KindBinary
		d.block.Note = err.Error()
		d.ext = ".bin"
		d.data = payload
		return d
	}

	// The payload is already valid UTF-16LE; writing it verbatim is the same
	// as re-encoding text.
	d.block.Kind = manifest.KindText
	d.ext = ".txt"
	if json.Valid([]byte(text)) {
		d.ext = ".json"
	}
	d.data = payload
	return d
}

func decodeVariant(seg container.Segment) decoded {
	d := decoded{
		block: manifest.Block{
			Offset:    seg.Offset,
			StoredLen: seg.StoredLen,
			Kind:      manifest.KindContainerText,
		},
		ext: ".txt",
	}

	prefix := variantPrefixLen(seg.Raw)
	d.block.PayloadPrefixLen = prefix

	text := codec.DecodeUTF16LELossy(seg.Raw[:prefix])
	if json.Valid([]byte(text)) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(text), "", "  "); err == nil {
			text = buf.String()
			d.ext = ".json"
		}
	} else {
		d.block.Note = "payload is not JSON; kept as text"
	}

	data, err := codec.EncodeUTF16LE(text)
	if err != nil {
		// Lossy decoding only produces encodable runes.
		d.block.Note = "re-encoding text failed: " + err.Error()
		data = seg.Raw[:prefix]
	}
	d.data = data
	return d
}

// variantPrefixLen returns the byte length of the editable part of a Variant
// payload: up to and including the last '}' or ']' code unit, clamped to the
// first tail marker. The result is always even.
func variantPrefixLen(raw []byte) int {
	units := codec.Units(raw)

	prefix := len(units) * 2
	for i := len(units) - 1; i >= 0; i-- {
		if units[i] == '}' || units[i] == ']' {
			prefix = (i + 1) * 2
			break
		}
	}

	if m := firstTailMarker(raw); m >= 0 && m < prefix {
		prefix = m
	}
	return prefix
}

// firstTailMarker returns the smallest even offset at which any tail marker
// starts, or -1.
func firstTailMarker(raw []byte) int {
	first := -1
	for _, m := range tailMarkers {
		for pos := 0; pos+len(m) <= len(raw); {
			i := bytes.Index(raw[pos:], m)
			if i < 0 {
				break
			}
			at := pos + i
			if at%2 == 0 {
				if first < 0 || at < first {
					first = at
				}
				break
			}
			pos = at + 1
		}
	}
	return first
}
