package repack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/tidwall/jsonc"

	"github.com/jamesainslie/driftsave/pkg/driftsave/codec"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
)

// Minify returns text re-serialized without insignificant whitespace when it
// is JSON. With tolerant set, comments and trailing commas are stripped first;
// that is only safe for blocks extracted as JSON. Anything else is returned
// unchanged.
func Minify(text string, tolerant bool) string {
	clean := []byte(text)
	if tolerant {
		clean = jsonc.ToJSON(clean)
	}
	if !json.Valid(clean) {
		return text
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, clean); err != nil {
		return text
	}
	return buf.String()
}

// EncodeBlock reads the block's file below dir and returns the bytes that
// would replace its region, before padding. For Variant blocks that is the
// UTF-16LE payload; for Fixed blocks it is the base64 text.
func EncodeBlock(dir string, b manifest.Block, variant bool, level int) ([]byte, error) {
	file := manifest.BlockPath(dir, b)
	tolerant := extractedAsJSON(b)

	if variant {
		text, err := codec.ReadTextFile(file)
		if err != nil {
			return nil, err
		}
		return codec.EncodeUTF16LE(Minify(text, tolerant))
	}

	var gz []byte
	switch b.Kind {
	case manifest.KindRawGzip:
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		gz = raw

	case manifest.KindBinary:
		payload, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		if gz, err = codec.Compress(payload, b.GzipMtime, level); err != nil {
			return nil, err
		}

	default:
		text, err := codec.ReadTextFile(file)
		if err != nil {
			return nil, err
		}
		payload, err := codec.EncodeUTF16LE(Minify(text, tolerant))
		if err != nil {
			return nil, err
		}
		if gz, err = codec.Compress(payload, b.GzipMtime, level); err != nil {
			return nil, err
		}
	}

	return codec.EncodeBase64(gz), nil
}

// extractedAsJSON reports whether extraction recognised the block as JSON,
// which it records with a .json file name.
func extractedAsJSON(b manifest.Block) bool {
	return path.Ext(b.OutName) == ".json"
}

// splice returns the full stored region for an encoded block. Fixed regions
// are space padded. Variant regions are NUL padded up to capacity and keep
// the original tail; the result is forced to exactly StoredLen.
func splice(base []byte, b manifest.Block, variant bool, encoded []byte) []byte {
	region := make([]byte, 0, b.StoredLen)
	region = append(region, encoded...)

	if !variant {
		return append(region, bytes.Repeat([]byte{' '}, b.StoredLen-len(encoded))...)
	}

	capacity := b.Capacity()
	region = append(region, make([]byte, capacity-len(encoded))...)
	region = append(region, base[b.Offset+capacity:b.End()]...)

	switch {
	case len(region) > b.StoredLen:
		region = region[:b.StoredLen]
	case len(region) < b.StoredLen:
		region = append(region, make([]byte, b.StoredLen-len(region))...)
	}
	return region
}
