package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGzip(t *testing.T, payload []byte, mtime uint32) []byte {
	t.Helper()
	gz, err := Compress(payload, mtime, DefaultGzipLevel)
	require.NoError(t, err)
	return gz
}

func TestDecodeBase64Gzip(t *testing.T) {
	gz := mustGzip(t, []byte("hello save"), 0)
	b64 := EncodeBase64(gz)
	require.True(t, bytes.HasPrefix(b64, []byte("H4sI")))

	t.Run("strict", func(t *testing.T) {
		got, ok := DecodeBase64Gzip(b64)
		require.True(t, ok)
		assert.Equal(t, gz, got)
	})

	t.Run("trailing alphabet bytes after padding", func(t *testing.T) {
		data := append([]byte{}, gz...)
		for len(data)%3 == 0 {
			data = append(data, 0x00)
		}
		padded := EncodeBase64(data)
		require.Contains(t, string(padded), "=")
		junk := append(append([]byte{}, padded...), []byte("QUJD")...)
		got, ok := DecodeBase64Gzip(junk)
		require.True(t, ok)
		assert.Equal(t, data, got)
	})

	t.Run("missing padding", func(t *testing.T) {
		data := append([]byte{}, gz...)
		for len(data)%3 == 0 {
			data = append(data, 0x01)
		}
		padded := EncodeBase64(data)
		trimmed := bytes.TrimRight(padded, "=")
		got, ok := DecodeBase64Gzip(trimmed)
		require.True(t, ok)
		assert.True(t, IsGzip(got))
	})

	t.Run("not gzip", func(t *testing.T) {
		_, ok := DecodeBase64Gzip(EncodeBase64([]byte("plain text payload")))
		assert.False(t, ok)
	})
}

func TestDecompressFirstMember(t *testing.T) {
	gz := mustGzip(t, []byte("first"), 0)

	t.Run("ignores trailing junk", func(t *testing.T) {
		withJunk := append(append([]byte{}, gz...), []byte("\x00\x00garbage")...)
		out, err := DecompressFirstMember(withJunk)
		require.NoError(t, err)
		assert.Equal(t, "first", string(out))
	})

	t.Run("ignores second member", func(t *testing.T) {
		second := mustGzip(t, []byte("second"), 0)
		out, err := DecompressFirstMember(append(append([]byte{}, gz...), second...))
		require.NoError(t, err)
		assert.Equal(t, "first", string(out))
	})

	t.Run("rejects non gzip", func(t *testing.T) {
		_, err := DecompressFirstMember([]byte("nope"))
		assert.ErrorIs(t, err, ErrNotGzip)
	})

	t.Run("truncated stream fails", func(t *testing.T) {
		_, err := DecompressFirstMember(gz[:len(gz)-6])
		assert.Error(t, err)
	})
}

func TestCompressMtime(t *testing.T) {
	gz := mustGzip(t, []byte("payload"), 1700000000)
	assert.Equal(t, uint32(1700000000), Mtime(gz))

	zero := mustGzip(t, []byte("payload"), 0)
	assert.Equal(t, uint32(0), Mtime(zero))

	again := mustGzip(t, []byte("payload"), 1700000000)
	assert.Equal(t, gz, again, "compression must be deterministic for a fixed mtime")

	assert.Equal(t, uint32(0), Mtime([]byte{0x1f, 0x8b, 8}))
	assert.Equal(t, uint32(0), Mtime([]byte("0123456789ab")))
}

func TestUTF16LE(t *testing.T) {
	enc, err := EncodeUTF16LE(`{"coins":5}`)
	require.NoError(t, err)
	assert.Equal(t, []byte{'{', 0, '"', 0}, enc[:4])
	assert.Len(t, enc, 22)

	dec, err := DecodeUTF16LE(enc)
	require.NoError(t, err)
	assert.Equal(t, `{"coins":5}`, dec)

	t.Run("odd length is invalid", func(t *testing.T) {
		_, err := DecodeUTF16LE(enc[:3])
		assert.ErrorIs(t, err, ErrInvalidUTF16)
	})

	t.Run("lone surrogate is invalid", func(t *testing.T) {
		_, err := DecodeUTF16LE([]byte{0x00, 0xD8, 'a', 0})
		assert.ErrorIs(t, err, ErrInvalidUTF16)
		_, err = DecodeUTF16LE([]byte{0x00, 0xDC})
		assert.ErrorIs(t, err, ErrInvalidUTF16)
	})

	t.Run("surrogate pair round trips", func(t *testing.T) {
		enc, err := EncodeUTF16LE("car \U0001F697")
		require.NoError(t, err)
		dec, err := DecodeUTF16LE(enc)
		require.NoError(t, err)
		assert.Equal(t, "car \U0001F697", dec)
	})

	t.Run("lossy replaces", func(t *testing.T) {
		got := string(DecodeUnitsLossy([]uint16{'a', 0xD800, 'b'}))
		assert.Equal(t, "a\uFFFDb", got)
	})
}

func TestReadText(t *testing.T) {
	utf16, err := EncodeUTF16LE(`{"name":"drift king","coins":123456}`)
	require.NoError(t, err)
	shortJSON, err := EncodeUTF16LE(`{"coins":5}`)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{name: "utf16 by nul density", in: utf16, want: `{"name":"drift king","coins":123456}`},
		{name: "utf16 with bom", in: append([]byte{0xff, 0xfe}, utf16...), want: `{"name":"drift king","coins":123456}`},
		{name: "utf8", in: []byte(`{"a":1}`), want: `{"a":1}`},
		{name: "utf8 with bom", in: []byte("\xef\xbb\xbf{\"a\":1}"), want: `{"a":1}`},
		{name: "short utf16 below nul threshold", in: []byte{'h', 0, 'i', 0}, want: "hi"},
		{name: "short utf16 json", in: shortJSON, want: `{"coins":5}`},
		{name: "odd length with nul stays utf8", in: []byte{'a', 0, 'b'}, want: "a\x00b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReadText(tt.in))
		})
	}
}
