package codec

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// ReadTextFile reads path and decodes it with ReadText.
func ReadTextFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return ReadText(b), nil
}

// ReadText decodes bytes that may be either UTF-8 or UTF-16LE.
//
// Extracted blocks are UTF-16LE, but users edit them with whatever editor is
// at hand, so the encoding is guessed: a UTF-16LE BOM or a high NUL density
// selects UTF-16LE, otherwise valid UTF-8 wins, then UTF-16LE, then lossy
// UTF-8. Text blocks never contain U+0000, so valid UTF-8 holding a NUL is
// taken as UTF-16LE when it decodes as such; this catches short UTF-16LE
// files below the NUL density threshold. A leading U+FEFF is removed.
func ReadText(b []byte) string {
	if bytes.HasPrefix(b, []byte{0xff, 0xfe}) {
		if s, err := DecodeUTF16LE(b); err == nil {
			return stripBOM(s)
		}
	}

	nul := bytes.Count(b, []byte{0})
	if nul > max(16, len(b)/10) {
		if s, err := DecodeUTF16LE(b); err == nil {
			return stripBOM(s)
		}
	}

	if utf8.Valid(b) {
		if bytes.IndexByte(b, 0) >= 0 {
			if s, err := DecodeUTF16LE(b); err == nil {
				return stripBOM(s)
			}
		}
		return stripBOM(string(b))
	}
	if s, err := DecodeUTF16LE(b); err == nil {
		return stripBOM(s)
	}
	return stripBOM(strings.ToValidUTF8(string(b), "\uFFFD"))
}

func stripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
