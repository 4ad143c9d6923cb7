package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/driftsave/pkg/driftsave/container"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
	"github.com/jamesainslie/driftsave/pkg/driftsave/repack"
)

func preflightResult() *Result {
	return FromReport(&repack.Report{
		Operation: "preflight",
		BaseFile:  "memory.dat",
		BaseSize:  4096,
		Dir:       "/work/memory_4096_abcd1234",
		Container: container.KindFixed,
		Items: []repack.Item{
			{Index: 0, Offset: 0x0C, StoredLen: 120, Capacity: 120, NewLen: 100, Headroom: 20,
				OutName: "block_00_off_0000000C.json", Kind: manifest.KindText, Status: repack.StatusOK},
			{Index: 1, Offset: 0x200, StoredLen: 80, Capacity: 80, NewLen: 96, Headroom: -16,
				OutName: "block_01_off_00000200.json", Kind: manifest.KindText, Status: repack.StatusFail,
				Note: "exceeds capacity by 16 bytes"},
			{Index: 2, Offset: 0x400, StoredLen: 64, Capacity: 64,
				OutName: "block_02_off_00000400.bin", Kind: manifest.KindBinary, Status: repack.StatusSkip,
				Note: "unchanged"},
		},
		OK:         1,
		Failed:     1,
		Skipped:    1,
		Warnings:   []string{"block 1 exceeds capacity by 16 bytes"},
		ReportPath: "/work/memory_4096_abcd1234/repack_preflight_report.txt",
		Elapsed:    15 * time.Millisecond,
	})
}

func blocksResult() *Result {
	m := &manifest.Manifest{
		BaseFile:  "memory.dat",
		FileSize:  4096,
		Container: container.KindVariant,
		Blocks: []manifest.Block{
			{Index: 0, Offset: 40, StoredLen: 200, PayloadPrefixLen: 150,
				OutName: "block_00_off_00000028.json", Kind: manifest.KindContainerText},
			{Index: 1, Offset: 300, StoredLen: 100, PayloadPrefixLen: 0,
				OutName: "block_01_off_0000012C.txt", Kind: manifest.KindContainerText,
				Note: "payload is not JSON; kept as text"},
		},
	}
	return FromManifest("/work/dir", m, m.Blocks)
}

func TestRegistry(t *testing.T) {
	names := Available()
	for _, want := range []string{"pretty", "plain", "tsv", "csv", "json", "jsonl", "yaml", "names", "template"} {
		assert.Contains(t, names, want)
	}

	_, err := Get("nope")
	assert.Error(t, err)

	f, err := Get("template={{.Source}}")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, preflightResult()))
	assert.Equal(t, "memory.dat", buf.String())
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	reg.Register("custom", func() Formatter { return &NamesFormatter{} })

	assert.Equal(t, []string{"custom"}, reg.Available())
	f, err := reg.Get("custom")
	require.NoError(t, err)
	assert.IsType(t, &NamesFormatter{}, f)
}

func TestFromReport(t *testing.T) {
	r := preflightResult()

	assert.Equal(t, "preflight", r.Operation)
	assert.Equal(t, "h4si", r.Container)
	assert.True(t, r.HasStatus())
	assert.Equal(t, Summary{Blocks: 3, OK: 1, Failed: 1, Skipped: 1}, r.Summary)
	require.Len(t, r.Rows, 3)
	assert.Equal(t, "FAIL", r.Rows[1].Status)
	assert.Equal(t, -16, r.Rows[1].Headroom)
}

func TestFromRoundTrip(t *testing.T) {
	rt := &repack.RoundTripResult{
		BaseFile:  "memory.dat",
		Size:      4096,
		Blocks:    2,
		Identical: false,
		FirstDiff: 0x30,
		BaseSum:   "aa",
		OutSum:    "bb",
	}

	r := FromRoundTrip(rt)
	assert.Equal(t, "roundtrip", r.Operation)
	assert.Equal(t, 2, r.Summary.Blocks)
	require.NotNil(t, r.Compare)
	assert.Equal(t, 0x30, r.Compare.FirstDiff)

	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, r))
	assert.Contains(t, buf.String(), "differs at 0x00000030")
}

func TestFromScan(t *testing.T) {
	sr := &container.Result{
		Kind: container.KindFixed,
		Segments: []container.Segment{
			{Offset: 12, StoredLen: 40},
			{Offset: 100, StoredLen: 60},
		},
	}

	r := FromScan("memory.dat", 200, sr)
	assert.Equal(t, "inspect", r.Operation)
	assert.False(t, r.HasStatus())
	assert.Equal(t, 100, r.TotalStored())
	assert.Equal(t, 1, r.Rows[1].Index)
}

func TestFromManifest_Capacity(t *testing.T) {
	r := blocksResult()
	assert.Equal(t, 150, r.Rows[0].Capacity)
	assert.Equal(t, 0, r.Rows[1].Capacity)
	assert.Equal(t, "fallen", r.Container)
}

func TestPrettyFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, preflightResult()))

	out := buf.String()
	assert.Contains(t, out, "PREFLIGHT")
	assert.Contains(t, out, "memory.dat")
	assert.Contains(t, out, "HEADROOM")
	assert.Contains(t, out, "block_01_off_00000200.json")
	assert.Contains(t, out, "0x0000000C")
	assert.Contains(t, out, "exceeds capacity by 16 bytes")
	assert.Contains(t, out, "Warnings:")
	assert.Contains(t, out, "FAIL 1")
}

func TestPrettyFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	r := &Result{Operation: "inspect", Source: "empty.dat"}
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, r))
	assert.Contains(t, buf.String(), "No blocks found")
}

func TestPrettyFormatter_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	r := &Result{Source: "memory.dat", Compare: &Compare{Identical: true, BaseSum: "aa", OutSum: "aa"}}
	require.NoError(t, (&PrettyFormatter{}).Format(&buf, r))
	assert.Contains(t, buf.String(), "Round trip identical")
}

func TestPlainFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&PlainFormatter{}).Format(&buf, blocksResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "#"))
	assert.Contains(t, lines[0], "CAPACITY")
	assert.Contains(t, lines[1], "block_00_off_00000028.json")
	assert.Contains(t, lines[1], "fallen_text")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestTSVAndCSVFormatter(t *testing.T) {
	var tsv bytes.Buffer
	require.NoError(t, (&TSVFormatter{}).Format(&tsv, preflightResult()))
	lines := strings.Split(strings.TrimSpace(tsv.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "STATUS\t#\tOFFSET\tCAPACITY\tNEW\tHEADROOM\tNAME\tNOTE", lines[0])
	assert.Equal(t, "OK\t0\t0x0000000C\t120\t100\t20\tblock_00_off_0000000C.json\t", lines[1])

	var csvBuf bytes.Buffer
	require.NoError(t, (&CSVFormatter{}).Format(&csvBuf, blocksResult()))
	assert.Contains(t, csvBuf.String(), `"payload is not JSON; kept as text"`)
}

func TestNamesFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&NamesFormatter{}).Format(&buf, blocksResult()))
	assert.Equal(t, "block_00_off_00000028.json\nblock_01_off_0000012C.txt\n", buf.String())
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, preflightResult()))

	var doc struct {
		Meta struct {
			Operation string `json:"operation"`
			Elapsed   string `json:"elapsed"`
		} `json:"meta"`
		Summary Summary `json:"summary"`
		Blocks  []Row   `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "preflight", doc.Meta.Operation)
	assert.Equal(t, "15ms", doc.Meta.Elapsed)
	assert.Equal(t, 1, doc.Summary.Failed)
	require.Len(t, doc.Blocks, 3)
	assert.Equal(t, "SKIP", doc.Blocks[2].Status)
}

func TestJSONFormatter_EmptyBlocks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format(&buf, &Result{Source: "x"}))
	assert.Contains(t, buf.String(), `"blocks": []`)
}

func TestJSONLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONLFormatter{}).Format(&buf, blocksResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var row Row
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &row))
	assert.Equal(t, 300, row.Offset)
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, preflightResult()))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Contains(t, doc, "meta")
	assert.Contains(t, doc, "summary")
	blocks, ok := doc["blocks"].([]any)
	require.True(t, ok)
	assert.Len(t, blocks, 3)
}

func TestTemplateFormatter(t *testing.T) {
	f := NewTemplateFormatter(`{{range .Rows}}{{hex .Offset}} {{bytes .StoredLen}}{{"\n"}}{{end}}`)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, blocksResult()))
	assert.Equal(t, "0x00000028 200 B\n0x0000012C 100 B\n", buf.String())

	f.SetTemplate("{{.Summary.Blocks}}")
	buf.Reset()
	require.NoError(t, f.Format(&buf, blocksResult()))
	assert.Equal(t, "2", buf.String())

	f.SetTemplate("{{.Missing")
	assert.Error(t, f.Format(&buf, blocksResult()))
}

func TestTemplateFormatter_Default(t *testing.T) {
	f, err := Get("template")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, blocksResult()))
	assert.Equal(t, "0\t0x00000028\tblock_00_off_00000028.json\n1\t0x0000012C\tblock_01_off_0000012C.txt\n", buf.String())
}
