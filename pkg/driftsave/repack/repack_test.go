package repack

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/driftsave/pkg/driftsave/codec"
	"github.com/jamesainslie/driftsave/pkg/driftsave/container"
	"github.com/jamesainslie/driftsave/pkg/driftsave/container/containertest"
	"github.com/jamesainslie/driftsave/pkg/driftsave/extract"
	"github.com/jamesainslie/driftsave/pkg/driftsave/manifest"
)

var tail = []byte{0xEF, 0xBE, 0xAD, 0xDE, 0x10, 0x20, 0x30, 0x40}

// workspace writes data as a base file, extracts it and returns both paths
// plus the manifest.
func workspace(t *testing.T, data []byte) (string, string, *manifest.Manifest) {
	t.Helper()

	root := t.TempDir()
	base := filepath.Join(root, "memory.dat")
	require.NoError(t, os.WriteFile(base, data, 0o644))

	dir := filepath.Join(root, "work")
	m, err := extract.File(context.Background(), base, dir, extract.Options{})
	require.NoError(t, err)
	return base, dir, m
}

func writeUTF16(t *testing.T, dir string, b manifest.Block, text string) {
	t.Helper()
	enc, err := codec.EncodeUTF16LE(text)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(manifest.BlockPath(dir, b), enc, 0o644))
}

func writeUTF8(t *testing.T, dir string, b manifest.Block, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(manifest.BlockPath(dir, b), []byte(text), 0o644))
}

// decodeFixedRegion decodes the Fixed segment stored at [off, off+n) of data.
func decodeFixedRegion(t *testing.T, data []byte, off, n int) string {
	t.Helper()
	region := strings.TrimRight(string(data[off:off+n]), " ")
	gz, ok := codec.DecodeBase64Gzip([]byte(region))
	require.True(t, ok)
	payload, err := codec.DecompressFirstMember(gz)
	require.NoError(t, err)
	text, err := codec.DecodeUTF16LE(payload)
	require.NoError(t, err)
	return text
}

func fixedSave(t *testing.T) []byte {
	data, _ := containertest.BuildFixed(
		containertest.FixedBlock(t, `{"coins":5}`, 200, 1600000000),
		containertest.FixedBlock(t, `{"garage":{"cars":[1,2,3],"slots":4}}`, 240, 1600000000),
		containertest.FixedRaw(t, []byte{9, 8, 7}, 64, 0),
	)
	return data
}

func variantSave(t *testing.T) []byte {
	data, _ := containertest.BuildVariant(
		containertest.VariantSegment{Type: 2, Payload: containertest.VariantText(t, `{"a":1,"b":[1,2]}`, tail)},
		containertest.VariantSegment{Type: 2, Payload: containertest.VariantText(t, `{"name":"drifter","level":12}`, tail)},
	)
	return data
}

func TestRepack_RoundTripIdentity(t *testing.T) {
	for name, data := range map[string][]byte{"fixed": fixedSave(t), "variant": variantSave(t)} {
		t.Run(name, func(t *testing.T) {
			base, dir, m := workspace(t, data)
			out := filepath.Join(t.TempDir(), "out.dat")

			r, err := Repack(context.Background(), base, dir, out, Options{})
			require.NoError(t, err)

			got, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Equal(t, data, got)
			assert.Equal(t, len(m.Blocks), r.Skipped)
			assert.Zero(t, r.OK)
			assert.False(t, r.Blocking())
			assert.FileExists(t, out+ReportSuffix)
		})
	}
}

func TestRepack_CoinsScenario(t *testing.T) {
	data := fixedSave(t)
	base, dir, m := workspace(t, data)
	coins := m.Blocks[0]

	require.Equal(t, "blocks/block_00_off_0000000C.json", coins.OutName)
	writeUTF16(t, dir, coins, `{"coins":999999999}`)

	out := filepath.Join(t.TempDir(), "out.dat")
	r, err := Repack(context.Background(), base, dir, out, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, r.OK)
	assert.Equal(t, 2, r.Skipped)
	assert.Equal(t, StatusOK, r.Items[0].Status)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, got, len(data))
	assert.Equal(t, `{"coins":999999999}`, decodeFixedRegion(t, got, coins.Offset, coins.StoredLen))

	// Everything outside the edited region is untouched.
	assert.Equal(t, data[:coins.Offset], got[:coins.Offset])
	assert.Equal(t, data[coins.End():], got[coins.End():])

	// The rebuilt region rescans to the same segment.
	scan := container.Scan(got)
	require.Len(t, scan.Segments, 3)
	assert.Equal(t, coins.Offset, scan.Segments[0].Offset)
	assert.Equal(t, coins.StoredLen, scan.Segments[0].StoredLen)
}

func TestRepack_ShortEditSameSize(t *testing.T) {
	data := fixedSave(t)
	base, dir, m := workspace(t, data)
	coins := m.Blocks[0]

	// Eleven characters: too few NULs for the density check to see UTF-16LE.
	writeUTF16(t, dir, coins, `{"coins":7}`)

	out := filepath.Join(t.TempDir(), "out.dat")
	r, err := Repack(context.Background(), base, dir, out, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, r.Items[0].Status)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, `{"coins":7}`, decodeFixedRegion(t, got, coins.Offset, coins.StoredLen))
}

func TestRepack_MinifiesAndKeepsMtime(t *testing.T) {
	base, dir, m := workspace(t, fixedSave(t))
	garage := m.Blocks[1]

	writeUTF8(t, dir, garage, `{
  // edited by hand
  "garage": {"cars": [1, 2, 3, 4,], "slots": 4},
}`)

	out := filepath.Join(t.TempDir(), "out.dat")
	_, err := Repack(context.Background(), base, dir, out, Options{})
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, `{"garage":{"cars":[1,2,3,4],"slots":4}}`,
		decodeFixedRegion(t, got, garage.Offset, garage.StoredLen))

	region := strings.TrimRight(string(got[garage.Offset:garage.End()]), " ")
	gz, ok := codec.DecodeBase64Gzip([]byte(region))
	require.True(t, ok)
	assert.Equal(t, uint32(1600000000), codec.Mtime(gz))
}

func TestRepack_CapacityInvariant(t *testing.T) {
	data := fixedSave(t)
	base, dir, m := workspace(t, data)

	writeUTF16(t, dir, m.Blocks[0], `{"coins":1,"gems":2,"xp":3}`)
	writeUTF16(t, dir, m.Blocks[1], `{"garage":{"cars":[],"slots":0}}`)
	require.NoError(t, os.WriteFile(manifest.BlockPath(dir, m.Blocks[2]), []byte{1, 1, 2, 3, 5, 8}, 0o644))

	out := filepath.Join(t.TempDir(), "out.dat")
	r, err := Repack(context.Background(), base, dir, out, Options{})
	require.NoError(t, err)
	require.Equal(t, 3, r.OK)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Len(t, got, len(data))

	scan := container.Scan(got)
	require.Len(t, scan.Segments, 3)
	for i, b := range m.Blocks {
		assert.Equal(t, b.Offset, scan.Segments[i].Offset)
		assert.Equal(t, b.StoredLen, scan.Segments[i].StoredLen, "block %d", i)
		assert.Equal(t, b.StoredLen, r.Items[i].NewLen+r.Items[i].Headroom)
	}
}

func TestRepack_VariantTailPreserved(t *testing.T) {
	data := variantSave(t)
	base, dir, m := workspace(t, data)
	b := m.Blocks[0]
	require.Equal(t, 34, b.PayloadPrefixLen)

	writeUTF8(t, dir, b, "{\n  \"a\": 2\n}\n")

	out := filepath.Join(t.TempDir(), "out.dat")
	r, err := Repack(context.Background(), base, dir, out, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, r.OK)
	assert.Equal(t, 34-14, r.Items[0].Headroom)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Len(t, got, len(data))

	want, err := codec.EncodeUTF16LE(`{"a":2}`)
	require.NoError(t, err)
	assert.Equal(t, want, got[b.Offset:b.Offset+len(want)])
	assert.Equal(t, make([]byte, b.PayloadPrefixLen-len(want)), got[b.Offset+len(want):b.Offset+b.PayloadPrefixLen])
	assert.Equal(t, data[b.Offset+b.PayloadPrefixLen:b.End()], got[b.Offset+b.PayloadPrefixLen:b.End()])
	assert.Equal(t, data[b.End():], got[b.End():])
}

func TestRepack_DriftDetected(t *testing.T) {
	data := fixedSave(t)
	base, dir, m := workspace(t, data)
	writeUTF16(t, dir, m.Blocks[0], `{"coins":999999999}`)

	mutated := append([]byte{}, data...)
	mutated[m.Blocks[1].Offset+5] ^= 0x01
	require.NoError(t, os.WriteFile(base, mutated, 0o644))

	out := filepath.Join(t.TempDir(), "out.dat")
	_, err := Repack(context.Background(), base, dir, out, Options{})
	assert.ErrorIs(t, err, manifest.ErrSignatureMismatch)
	assert.NoFileExists(t, out)

	_, err = Preflight(context.Background(), base, dir, Options{})
	assert.ErrorIs(t, err, manifest.ErrSignatureMismatch)
	assert.NoFileExists(t, filepath.Join(dir, manifest.PreflightReportName))
}

func TestRepack_OverflowFailsOneBlock(t *testing.T) {
	data := fixedSave(t)
	base, dir, m := workspace(t, data)

	rng := rand.New(rand.NewSource(42))
	var sb strings.Builder
	for i := 0; i < 1000; i++ {
		sb.WriteByte(byte('a' + rng.Intn(26)))
	}
	writeUTF16(t, dir, m.Blocks[0], `{"coins":"`+sb.String()+`"}`)
	writeUTF16(t, dir, m.Blocks[1], `{"garage":{"cars":[7],"slots":1}}`)

	out := filepath.Join(t.TempDir(), "out.dat")
	r, err := Repack(context.Background(), base, dir, out, Options{})
	require.NoError(t, err)

	assert.Len(t, r.Items, len(m.Blocks))
	assert.Equal(t, StatusFail, r.Items[0].Status)
	assert.Negative(t, r.Items[0].Headroom)
	assert.Equal(t, StatusOK, r.Items[1].Status)
	assert.Equal(t, StatusSkip, r.Items[2].Status)
	assert.Equal(t, 1, r.Failed)
	assert.True(t, r.Blocking())
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "too large")

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	b0 := m.Blocks[0]
	assert.Equal(t, data[b0.Offset:b0.End()], got[b0.Offset:b0.End()], "failed region left untouched")
	assert.Equal(t, `{"garage":{"cars":[7],"slots":1}}`,
		decodeFixedRegion(t, got, m.Blocks[1].Offset, m.Blocks[1].StoredLen))

	report, err := os.ReadFile(r.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), "Blocks failed: 1")
	assert.Contains(t, string(report), "[FAIL] block 00")
}

func TestRepack_VariantOverflow(t *testing.T) {
	data := variantSave(t)
	base, dir, m := workspace(t, data)

	writeUTF8(t, dir, m.Blocks[1], `{"name":"a much longer name than before","level":99}`)

	out := filepath.Join(t.TempDir(), "out.dat")
	r, err := Repack(context.Background(), base, dir, out, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusFail, r.Items[1].Status)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPreflight_Statuses(t *testing.T) {
	base, dir, m := workspace(t, fixedSave(t))

	writeUTF16(t, dir, m.Blocks[0], `{"coins":999999999}`)
	require.NoError(t, os.Remove(manifest.BlockPath(dir, m.Blocks[1])))
	rawPath := manifest.BlockPath(dir, m.Blocks[2])
	require.NoError(t, os.Remove(rawPath))
	require.NoError(t, os.Mkdir(rawPath, 0o755))

	r, err := Preflight(context.Background(), base, dir, Options{Workers: 2})
	require.NoError(t, err)

	require.Len(t, r.Items, 3)
	assert.Equal(t, StatusOK, r.Items[0].Status)
	assert.Positive(t, r.Items[0].Headroom)
	assert.Equal(t, StatusSkip, r.Items[1].Status)
	assert.Equal(t, "missing extracted file", r.Items[1].Note)
	assert.Equal(t, StatusError, r.Items[2].Status)
	assert.Equal(t, 1, r.Errors)

	assert.Equal(t, filepath.Join(dir, manifest.PreflightReportName), r.ReportPath)
	report, err := os.ReadFile(r.ReportPath)
	require.NoError(t, err)
	text := string(report)
	assert.Contains(t, text, "Blocks: 3 | OK: 1 | FAIL: 0 | ERROR: 1 | SKIP: 1")
	assert.Contains(t, text, "Worst headroom (lowest first):")
	assert.Contains(t, text, "ERROR blocks:")

	// Preflight never writes the base file.
	after, err := os.ReadFile(base)
	require.NoError(t, err)
	assert.Equal(t, fixedSave(t), after)
}

func TestPreflight_ManifestMissing(t *testing.T) {
	base := filepath.Join(t.TempDir(), "memory.dat")
	require.NoError(t, os.WriteFile(base, fixedSave(t), 0o644))

	_, err := Preflight(context.Background(), base, t.TempDir(), Options{})
	assert.ErrorIs(t, err, manifest.ErrManifestMissing)
}

func TestCheckBlock(t *testing.T) {
	base, dir, m := workspace(t, fixedSave(t))
	writeUTF16(t, dir, m.Blocks[0], `{"coins":123456789}`)

	it, err := CheckBlock(base, dir, 0, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusOK, it.Status)

	it, err = CheckBlock(base, dir, 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusSkip, it.Status)

	_, err = CheckBlock(base, dir, 42, Options{})
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	base := filepath.Join(t.TempDir(), "memory.dat")
	require.NoError(t, os.WriteFile(base, variantSave(t), 0o644))

	res, err := RoundTrip(context.Background(), base, manifest.BLAKE3, Options{})
	require.NoError(t, err)
	assert.True(t, res.Identical)
	assert.Equal(t, -1, res.FirstDiff)
	assert.Equal(t, res.BaseSum, res.OutSum)
	assert.Equal(t, 2, res.Blocks)
}

func TestFirstDiff(t *testing.T) {
	assert.Equal(t, -1, firstDiff([]byte("abc"), []byte("abc")))
	assert.Equal(t, 1, firstDiff([]byte("abc"), []byte("aXc")))
	assert.Equal(t, 2, firstDiff([]byte("ab"), []byte("abc")))
}

func TestEncodeBlock_TextKeepsComments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "blocks"), 0o755))

	for _, tt := range []struct {
		name string
		want string
	}{
		{name: "blocks/block_00_off_00000010.txt", want: "123 // note"},
		{name: "blocks/block_01_off_00000020.json", want: "123"},
	} {
		raw, err := codec.EncodeUTF16LE("123 // note")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.FromSlash(tt.name)), raw, 0o644))

		b := manifest.Block{Kind: manifest.KindContainerText, OutName: tt.name}
		got, err := EncodeBlock(dir, b, true, 0)
		require.NoError(t, err)

		text, err := codec.DecodeUTF16LE(got)
		require.NoError(t, err)
		assert.Equal(t, tt.want, text, tt.name)
	}
}

func TestMinify(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		tolerant bool
		want     string
	}{
		{name: "pretty", in: "{\n  \"a\": [1, 2],\n  \"b\": \"x y\"\n}", want: `{"a":[1,2],"b":"x y"}`},
		{name: "comments and trailing commas", in: "{\"a\": 1, /* c */ \"b\": [2,],}", tolerant: true, want: `{"a":1,"b":[2]}`},
		{name: "comments kept when strict", in: "{\"a\": 1, /* c */ \"b\": 2}", want: "{\"a\": 1, /* c */ \"b\": 2}"},
		{name: "text with line comment", in: "123 // note", want: "123 // note"},
		{name: "escapes kept", in: `{"s": "é\n"}`, tolerant: true, want: `{"s":"é\n"}`},
		{name: "not json", in: "coins = 5", tolerant: true, want: "coins = 5"},
		{name: "truncated", in: `{"a": `, tolerant: true, want: `{"a": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Minify(tt.in, tt.tolerant))
		})
	}
}
