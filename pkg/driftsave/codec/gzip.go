package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// DefaultGzipLevel matches the level the game's own writer uses.
const DefaultGzipLevel = gzip.BestCompression

// ErrNotGzip is returned when a payload does not carry a gzip header.
var ErrNotGzip = errors.New("not a gzip stream")

// DecompressFirstMember inflates only the first gzip member in gz.
// Bytes after the first member's trailer are ignored.
func DecompressFirstMember(gz []byte) ([]byte, error) {
	if !IsGzip(gz) {
		return nil, ErrNotGzip
	}
	zr, err := gzip.NewReader(bytes.NewReader(gz))
	if err != nil {
		return nil, fmt.Errorf("reading gzip header: %w", err)
	}
	zr.Multistream(false)
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("inflating gzip member: %w", err)
	}
	return out, nil
}

// Compress gzips payload at the given level, writing mtime verbatim into the
// header so a re-encoded block can reproduce the original header bytes.
// A zero mtime leaves the header field zero.
func Compress(payload []byte, mtime uint32, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if mtime != 0 {
		zw.ModTime = time.Unix(int64(mtime), 0)
	}
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("compressing payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finishing gzip stream: %w", err)
	}
	return buf.Bytes(), nil
}

// Mtime returns the modification time stored in a gzip header, or 0 when gz
// is not a complete gzip header.
func Mtime(gz []byte) uint32 {
	if len(gz) < 10 || !IsGzip(gz) {
		return 0
	}
	return binary.LittleEndian.Uint32(gz[4:8])
}
