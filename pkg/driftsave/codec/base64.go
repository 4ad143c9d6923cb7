package codec

import (
	"bytes"
	"encoding/base64"
)

// gzipMagic is the two-byte header every gzip member starts with.
var gzipMagic = []byte{0x1f, 0x8b}

// DecodeBase64Gzip decodes a whitespace-free base64 run and returns the
// decoded bytes only when they start a gzip stream.
//
// Decoding is attempted three ways, in order:
//  1. strict standard base64;
//  2. strict decode after trimming trailing bytes back to the last padding
//     boundary (the run may have swallowed alphabet bytes after the '=');
//  3. a non-validating decode of the alphabet bytes padded to a multiple of 4.
//
// The first attempt that decodes without error decides the result.
func DecodeBase64Gzip(b64 []byte) ([]byte, bool) {
	for _, attempt := range []func([]byte) ([]byte, error){
		decodeStrict,
		decodeTrimmed,
		decodeLoose,
	} {
		raw, err := attempt(b64)
		if err != nil {
			continue
		}
		if !IsGzip(raw) {
			return nil, false
		}
		return raw, true
	}
	return nil, false
}

// EncodeBase64 returns the standard padded base64 encoding of b.
func EncodeBase64(b []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(b)))
	base64.StdEncoding.Encode(out, b)
	return out
}

// IsGzip reports whether b begins with the gzip magic bytes.
func IsGzip(b []byte) bool {
	return len(b) >= 2 && bytes.Equal(b[:2], gzipMagic)
}

func decodeStrict(s []byte) ([]byte, error) {
	out := make([]byte, base64.StdEncoding.DecodedLen(len(s)))
	n, err := base64.StdEncoding.Decode(out, s)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// decodeTrimmed cuts s right after its first run of '=' padding, or down to a
// multiple of four when there is no padding at all.
func decodeTrimmed(s []byte) ([]byte, error) {
	end := len(s) - len(s)%4
	if i := bytes.IndexByte(s, '='); i >= 0 {
		end = i
		for end < len(s) && s[end] == '=' {
			end++
		}
	}
	if end == len(s) || end == 0 {
		return nil, base64.CorruptInputError(len(s))
	}
	return decodeStrict(s[:end])
}

// decodeLoose drops every byte outside the base64 alphabet (padding included)
// and decodes what is left without checking trailing bits.
func decodeLoose(s []byte) ([]byte, error) {
	clean := make([]byte, 0, len(s))
	for _, c := range s {
		if isBase64Alpha(c) {
			clean = append(clean, c)
		}
	}
	if len(clean)%4 == 1 {
		clean = clean[:len(clean)-1]
	}
	out := make([]byte, base64.RawStdEncoding.DecodedLen(len(clean)))
	n, err := base64.RawStdEncoding.Decode(out, clean)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

func isBase64Alpha(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '+', c == '/':
		return true
	}
	return false
}
