package capture

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	raw := []byte("{U\x03raw[$U#l\x00\x00\x00\x00")

	plain := filepath.Join(dir, "game.slp")
	require.NoError(t, os.WriteFile(plain, raw, 0600))

	compressed, err := Compress(raw)
	require.NoError(t, err)
	assert.True(t, IsCompressed(compressed))
	packed := filepath.Join(dir, "game2.slp.zst")
	require.NoError(t, os.WriteFile(packed, compressed, 0600))

	testCases := []struct {
		name string
		path string
	}{
		{name: "plain", path: plain},
		{name: "zstd", path: packed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReadFile(tc.path)
			require.NoError(t, err)
			assert.Equal(t, raw, got)
		})
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.slp"))
	assert.Error(t, err)
}

func TestRead_CorruptFrame(t *testing.T) {
	data := append(append([]byte{}, zstdMagic...), bytes.Repeat([]byte{0xFF}, 16)...)
	_, err := Read(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestReadLimit(t *testing.T) {
	zeros := make([]byte, 1<<20)
	bomb, err := Compress(zeros)
	require.NoError(t, err)
	require.Less(t, len(bomb), 4096)

	testCases := []struct {
		name     string
		data     []byte
		maxBytes int64
		wantErr  error
	}{
		{name: "raw within limit", data: zeros[:100], maxBytes: 100},
		{name: "raw over limit", data: zeros[:101], maxBytes: 100, wantErr: ErrTooLarge},
		{name: "zstd within limit", data: bomb, maxBytes: 1 << 20},
		{name: "zstd expands past limit", data: bomb, maxBytes: 64 << 10, wantErr: ErrTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReadLimit(bytes.NewReader(tc.data), tc.maxBytes)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.LessOrEqual(t, int64(len(got)), tc.maxBytes)
		})
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.slp", "a.SLP", "c.slp.zst", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.slp"), 0755))

	files, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.SLP"),
		filepath.Join(dir, "b.slp"),
		filepath.Join(dir, "c.slp.zst"),
	}, files)
}
