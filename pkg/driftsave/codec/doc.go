// Package codec provides the byte-level primitives used to move save-file
// segments in and out of their on-disk representation: tolerant base64
// decoding, single-member gzip handling with a caller-controlled header
// mtime, and UTF-16LE text conversion.
//
// All functions are pure: bytes in, bytes out, no package state.
package codec
