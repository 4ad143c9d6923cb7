package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// Variant layout constants. They mirror the game's own writer and are not
// ours to change.
var (
	// VariantMagic opens every Variant file.
	VariantMagic = []byte("FALLENSV")

	// Sentinel immediately precedes every Variant payload.
	Sentinel = []byte{0xFE, 0xFF, 0x53, 0x45, 0x47, 0x00, 0xFF, 0xFE}
)

const (
	offTableBase = 8
	offCount     = 12
	offDataLen   = 16
	offFlags     = 20

	// TableStart is where the first header table entry begins.
	TableStart = 24
	// EntrySize is the size of one header table entry: id, type, length and
	// payload offset, each a little-endian uint32.
	EntrySize = 16
)

var errBadTable = errors.New("malformed header table")

// TableEntry is one decoded header table record.
type TableEntry struct {
	ID            uint32
	Type          uint32
	Length        uint32
	PayloadOffset uint32
}

func scanVariant(data []byte) ([]Segment, Info) {
	segs, info, err := parseTable(data)
	if err == nil {
		return segs, info
	}

	segs, info = ScanSentinels(data)
	info.Fallback = err.Error()
	return segs, info
}

// parseTable reads the header table. Entries whose payload is not preceded by
// the sentinel, or whose range leaves the file, are rejected. A table that is
// structurally unsound or yields no segment is an error.
func parseTable(data []byte) ([]Segment, Info, error) {
	info := Info{Layout: "table", Markers: map[string]int{}}
	size := uint64(len(data))

	if size < TableStart {
		return nil, info, fmt.Errorf("%w: file shorter than header", errBadTable)
	}

	base := uint64(binary.LittleEndian.Uint32(data[offTableBase:]))
	count := uint64(binary.LittleEndian.Uint32(data[offCount:]))
	info.HeaderLen = int(base)
	info.TableEntries = int(count)
	info.DataLen = binary.LittleEndian.Uint32(data[offDataLen:])
	info.Flags = binary.LittleEndian.Uint32(data[offFlags:])

	switch {
	case count == 0:
		return nil, info, fmt.Errorf("%w: no entries", errBadTable)
	case count > (size-TableStart)/EntrySize:
		return nil, info, fmt.Errorf("%w: entry count %d exceeds file", errBadTable, count)
	case base < TableStart+count*EntrySize:
		return nil, info, fmt.Errorf("%w: table base %d overlaps %d entries", errBadTable, base, count)
	case base > size:
		return nil, info, fmt.Errorf("%w: table base %d beyond end of file", errBadTable, base)
	}

	type candidate struct {
		seg  Segment
		kind uint32
	}

	var cands []candidate
	for i := uint64(0); i < count; i++ {
		e := readEntry(data[TableStart+i*EntrySize:])
		abs := base + uint64(e.PayloadOffset)
		end := abs + uint64(e.Length)

		if abs < uint64(len(Sentinel)) || end > size || e.Length == 0 ||
			!bytes.Equal(data[abs-uint64(len(Sentinel)):abs], Sentinel) {
			info.RejectedEntries++
			continue
		}

		cands = append(cands, candidate{
			seg: Segment{
				Offset:    int(abs),
				StoredLen: int(e.Length),
				Raw:       data[abs:end],
			},
			kind: e.Type,
		})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].seg.Offset < cands[j].seg.Offset
	})

	// Regions must not share bytes; a duplicate or overlapping entry loses
	// to the one starting first.
	var segs []Segment
	prevEnd := 0
	for _, c := range cands {
		if c.seg.Offset < prevEnd {
			info.RejectedEntries++
			continue
		}
		segs = append(segs, c.seg)
		prevEnd = c.seg.Offset + c.seg.StoredLen
		info.Markers[fmt.Sprintf("type_%d", c.kind)]++
	}

	if len(segs) == 0 {
		return nil, info, fmt.Errorf("%w: no entry passed validation", errBadTable)
	}

	return segs, info, nil
}

func readEntry(b []byte) TableEntry {
	return TableEntry{
		ID:            binary.LittleEndian.Uint32(b[0:]),
		Type:          binary.LittleEndian.Uint32(b[4:]),
		Length:        binary.LittleEndian.Uint32(b[8:]),
		PayloadOffset: binary.LittleEndian.Uint32(b[12:]),
	}
}

// ScanSentinels splits data on every sentinel occurrence. Each segment runs
// from just after one sentinel to the next sentinel, or to end of file for
// the last one. Empty segments are skipped.
func ScanSentinels(data []byte) ([]Segment, Info) {
	info := Info{Layout: "sentinel", Markers: map[string]int{}}

	var starts []int
	pos := 0
	for {
		i := bytes.Index(data[pos:], Sentinel)
		if i < 0 {
			break
		}
		starts = append(starts, pos+i)
		pos += i + len(Sentinel)
	}

	if len(starts) > 0 {
		info.HeaderLen = starts[0]
	}

	var segs []Segment
	for n, s := range starts {
		begin := s + len(Sentinel)
		end := len(data)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		if end <= begin {
			continue
		}
		segs = append(segs, Segment{Offset: begin, StoredLen: end - begin, Raw: data[begin:end]})
		info.Markers["sentinel"]++
	}

	return segs, info
}
