// Package blockfile loads extracted blocks as JSON trees and saves edited
// trees back in the on-disk block encoding.
package blockfile

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/jamesainslie/driftsave/pkg/driftsave/codec"
	"github.com/jamesainslie/driftsave/pkg/driftsave/fsutil"
	"github.com/jamesainslie/driftsave/pkg/driftsave/jsonval"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
)

// Find resolves a block reference: a decimal index, the block's file name,
// or its manifest out_name.
func Find(m *manifest.Manifest, ref string) (manifest.Block, error) {
	if idx, err := strconv.Atoi(ref); err == nil {
		for _, b := range m.Blocks {
			if b.Index == idx {
				return b, nil
			}
		}
		return manifest.Block{}, fmt.Errorf("no block with index %d", idx)
	}

	for _, b := range m.Blocks {
		if b.OutName == ref || path.Base(b.OutName) == ref {
			return b, nil
		}
	}
	return manifest.Block{}, fmt.Errorf("no block named %q", ref)
}

// Editable reports whether a block holds text that Load can parse.
func Editable(b manifest.Block) bool {
	return b.Kind == manifest.KindText || b.Kind == manifest.KindContainerText
}

// Load reads the block's file below dir and parses it as JSON. Comments and
// trailing commas left by hand edits are tolerated.
func Load(dir string, b manifest.Block) (jsonval.Value, error) {
	if !Editable(b) {
		return jsonval.Value{}, fmt.Errorf("block %02d is %s, not text", b.Index, b.Kind)
	}

	text, err := codec.ReadTextFile(manifest.BlockPath(dir, b))
	if err != nil {
		return jsonval.Value{}, err
	}

	v, err := jsonval.Parse(jsonc.ToJSON([]byte(strings.TrimSpace(text))))
	if err != nil {
		return jsonval.Value{}, fmt.Errorf("block %02d is not JSON: %w", b.Index, err)
	}
	return v, nil
}

// Save writes v to the block's file below dir as UTF-16LE without a BOM.
// Pretty output uses two-space indentation; otherwise the JSON is compact.
func Save(dir string, b manifest.Block, v jsonval.Value, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = v.Indent()
	} else {
		data, err = v.MarshalJSON()
	}
	if err != nil {
		return fmt.Errorf("encoding block %02d: %w", b.Index, err)
	}

	enc, err := codec.EncodeUTF16LE(string(data))
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(manifest.BlockPath(dir, b), enc, 0o644); err != nil {
		return fmt.Errorf("saving block %02d: %w", b.Index, err)
	}
	return nil
}
