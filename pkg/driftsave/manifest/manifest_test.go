package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/driftsave/pkg/driftsave/codec"
	"github.com/jamesainslie/driftsave/pkg/driftsave/container"
)

func TestBlockName(t *testing.T) {
	assert.Equal(t, "block_00_off_0000000C.json", BlockName(0, 12, ".json"))
	assert.Equal(t, "block_123_off_00ABCDEF.bin", BlockName(123, 0xABCDEF, ".bin"))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrManifestMissing)
}

func TestLoad_Unparseable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir), []byte("{not json"), 0o644))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrManifestMissing)
}

func TestLoad_LegacyManifest(t *testing.T) {
	dir := t.TempDir()
	legacy := `{
  "base_file": "memory.dat",
  "file_size": 4096,
  "blocks": [
    {"index": 0, "offset": 16, "stored_len": 200, "gzip_mtime": 0,
     "out_name": "blocks/block_00_off_00000010.json", "kind": "text",
     "file_sha1": "aa", "region_sha1": "bb", "some_future_field": true}
  ]
}`
	require.NoError(t, os.WriteFile(Path(dir), []byte(legacy), 0o644))

	m, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, container.KindFixed, m.Container)
	assert.Equal(t, SHA1, m.Checksum)
	require.Len(t, m.Blocks, 1)
	assert.Equal(t, "aa", m.Blocks[0].FileChecksum)
	assert.Equal(t, "bb", m.Blocks[0].RegionChecksum)
	assert.Equal(t, 0, m.Blocks[0].PayloadPrefixLen)
	assert.Equal(t, 200, m.Blocks[0].Capacity())
}

func TestLoad_VariantPrefixLen(t *testing.T) {
	dir := t.TempDir()
	body := `{
  "base_file": "memory.dat",
  "file_size": 4096,
  "container": "fallen",
  "blocks": [
    {"index": 0, "offset": 32, "stored_len": 300, "kind": "fallen_text",
     "out_name": "blocks/block_00_off_00000020.json"},
    {"index": 1, "offset": 400, "stored_len": 120, "kind": "fallen_text",
     "out_name": "blocks/block_01_off_00000190.json", "payload_prefix_len": 0}
  ]
}`
	require.NoError(t, os.WriteFile(Path(dir), []byte(body), 0o644))

	m, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, m.Blocks, 2)

	assert.Equal(t, 300, m.Blocks[0].PayloadPrefixLen, "absent prefix length falls back to stored_len")
	assert.Equal(t, 300, m.Blocks[0].Capacity())
	assert.Equal(t, 0, m.Blocks[1].PayloadPrefixLen, "explicit zero is kept")
	assert.Equal(t, 0, m.Blocks[1].Capacity())
}

func TestLoad_UTF16Manifest(t *testing.T) {
	dir := t.TempDir()
	enc, err := codec.EncodeUTF16LE(`{"base_file":"x.dat","file_size":10,"container":"fallen","blocks":[]}`)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(Path(dir), enc, 0o644))

	m, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, container.KindVariant, m.Container)
	assert.NotNil(t, m.Blocks)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{
		BaseFile:  "memory.dat",
		FileSize:  1000,
		BaseSig:   "abc",
		Checksum:  BLAKE3,
		Container: container.KindVariant,
		ContainerInfo: container.Info{
			HeaderLen: 40, Segments: 1, Layout: "table", Markers: map[string]int{"type_2": 1},
		},
		Blocks: []Block{{
			Index: 0, Offset: 48, StoredLen: 100, OutName: "blocks/block_00_off_00000030.json",
			Kind: KindContainerText, PayloadPrefixLen: 80, RegionChecksum: "r", FileChecksum: "f",
		}},
	}
	require.NoError(t, Save(dir, m))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.Equal(t, 80, got.Blocks[0].Capacity())
	assert.True(t, got.Blocks[0].IsVariant())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		blocks  []Block
		wantErr bool
	}{
		{name: "empty", blocks: nil},
		{name: "in range", blocks: []Block{{Index: 0, Offset: 0, StoredLen: 100}, {Index: 1, Offset: 100, StoredLen: 28}}},
		{name: "past end", blocks: []Block{{Index: 0, Offset: 100, StoredLen: 29}}, wantErr: true},
		{name: "reused index", blocks: []Block{{Index: 1}, {Index: 1}}, wantErr: true},
		{name: "prefix beyond stored", blocks: []Block{{Index: 0, StoredLen: 4, PayloadPrefixLen: 6}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Manifest{FileSize: 128, Blocks: tt.blocks}
			err := m.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_ContainerTag(t *testing.T) {
	m := &Manifest{FileSize: 8, Container: container.KindVariant}
	assert.NoError(t, m.Validate())

	m.Container = "zip"
	assert.ErrorIs(t, m.Validate(), container.ErrUnknownContainer)
}

func TestValidate_ChecksumAlgorithm(t *testing.T) {
	m := &Manifest{FileSize: 8, Checksum: BLAKE3}
	assert.NoError(t, m.Validate())

	m.Checksum = "md5"
	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"md5"`)
}

func TestVerifyBase(t *testing.T) {
	data := []byte("0123456789abcdefghijklmnopqrstuvwxyz")

	for _, algo := range []Algorithm{SHA1, BLAKE3} {
		t.Run(string(algo), func(t *testing.T) {
			m := &Manifest{
				FileSize: len(data),
				BaseSig:  algo.Sum(data),
				Checksum: algo,
				Blocks: []Block{
					{Index: 0, Offset: 4, StoredLen: 6, RegionChecksum: algo.Sum(data[4:10])},
				},
			}
			require.NoError(t, m.VerifyBase(data))

			mutated := append([]byte{}, data...)
			mutated[30] = 'Z'
			assert.ErrorIs(t, m.VerifyBase(mutated), ErrSignatureMismatch)

			// Without a whole-file signature the region guard still trips.
			m.BaseSig = ""
			mutated[5] = 'Z'
			assert.ErrorIs(t, m.VerifyBase(mutated), ErrBaseDrift)
		})
	}
}

func TestUntouched(t *testing.T) {
	dir := t.TempDir()
	b := Block{OutName: "blocks/block_00_off_00000000.json"}
	path := BlockPath(dir, b)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	m := &Manifest{Checksum: SHA1}
	assert.False(t, m.Untouched(dir, b), "no recorded checksum")

	b.FileChecksum = SHA1.Sum([]byte("original"))
	assert.True(t, m.Untouched(dir, b))

	require.NoError(t, os.WriteFile(path, []byte("edited"), 0o644))
	assert.False(t, m.Untouched(dir, b))

	require.NoError(t, os.Remove(path))
	assert.False(t, m.Untouched(dir, b))
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, SHA1, a)

	a, err = ParseAlgorithm("blake3")
	require.NoError(t, err)
	assert.Equal(t, BLAKE3, a)

	_, err = ParseAlgorithm("md5")
	assert.Error(t, err)

	assert.Len(t, SHA1.Sum(nil), 40)
	assert.Len(t, BLAKE3.Sum(nil), 64)
}
