package codec

import (
	"errors"
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

// ErrInvalidUTF16 is returned by DecodeUTF16LE for odd-length input or
// unpaired surrogates.
var ErrInvalidUTF16 = errors.New("invalid UTF-16LE")

// utf16le neither writes nor strips a byte order mark. A BOM in the input
// decodes to U+FEFF.
var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DecodeUTF16LE strictly decodes b as UTF-16LE.
func DecodeUTF16LE(b []byte) (string, error) {
	if err := validateUTF16LE(b); err != nil {
		return "", err
	}
	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUTF16, err)
	}
	return string(out), nil
}

// DecodeUTF16LELossy decodes b as UTF-16LE, replacing invalid sequences with
// U+FFFD. It never fails.
func DecodeUTF16LELossy(b []byte) string {
	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return string(DecodeUnitsLossy(Units(b)))
	}
	return string(out)
}

// EncodeUTF16LE encodes s as UTF-16LE without a BOM.
func EncodeUTF16LE(s string) ([]byte, error) {
	out, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding UTF-16LE: %w", err)
	}
	return out, nil
}

// Units splits b into little-endian 16-bit code units. A trailing odd byte
// is dropped.
func Units(b []byte) []uint16 {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return units
}

// DecodeUnitsLossy converts code units to runes, replacing lone surrogates.
func DecodeUnitsLossy(units []uint16) []rune {
	out := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u < 0xDC00 && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] < 0xE000:
			out = append(out, (rune(u)-0xD800)<<10+(rune(units[i+1])-0xDC00)+0x10000)
			i++
		case u >= 0xD800 && u < 0xE000:
			out = append(out, '\uFFFD')
		default:
			out = append(out, rune(u))
		}
	}
	return out
}

func validateUTF16LE(b []byte) error {
	if len(b)%2 != 0 {
		return fmt.Errorf("%w: odd length %d", ErrInvalidUTF16, len(b))
	}
	units := Units(b)
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u >= 0xD800 && u < 0xDC00:
			if i+1 >= len(units) || units[i+1] < 0xDC00 || units[i+1] >= 0xE000 {
				return fmt.Errorf("%w: unpaired high surrogate at byte %d", ErrInvalidUTF16, 2*i)
			}
			i++
		case u >= 0xDC00 && u < 0xE000:
			return fmt.Errorf("%w: unpaired low surrogate at byte %d", ErrInvalidUTF16, 2*i)
		}
	}
	return nil
}
