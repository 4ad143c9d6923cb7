package container

import "bytes"

// Anchor is the base64 encoding of the gzip magic plus the deflate method
// byte. Every Fixed segment starts with it.
var Anchor = []byte("H4sI")

// minFixedLen is the shortest whitespace-stripped run accepted as a segment.
const minFixedLen = 16

// scanFixed finds every anchor, then greedily extends over base64 alphabet and
// whitespace bytes. The search resumes four bytes after each anchor rather
// than after the whole run, so a run may contain later anchors that produce
// overlapping segments.
func scanFixed(data []byte) ([]Segment, Info) {
	var segs []Segment
	info := Info{Layout: "anchor", Markers: map[string]int{}}

	pos := 0
	for {
		i := bytes.Index(data[pos:], Anchor)
		if i < 0 {
			break
		}
		off := pos + i

		end := off
		for end < len(data) && isRegionByte(data[end]) {
			end++
		}

		stripped := stripWhitespace(data[off:end])
		if len(stripped) >= minFixedLen {
			if len(segs) == 0 {
				info.HeaderLen = off
			}
			segs = append(segs, Segment{Offset: off, StoredLen: end - off, Raw: stripped})
			info.Markers[string(Anchor)]++
		}

		pos = off + len(Anchor)
	}

	return segs, info
}

func isRegionByte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '+', c == '/', c == '=':
		return true
	case c == ' ', c == '\t', c == '\r', c == '\n':
		return true
	}
	return false
}

func stripWhitespace(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		}
		out = append(out, c)
	}
	return out
}
