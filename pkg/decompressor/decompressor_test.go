package decompressor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goopsie/dczf/pkg/compressor"
	"github.com/goopsie/dczf/pkg/dczerr"
)

func buildContainer(t *testing.T, dir string, data []byte) string {
	t.Helper()
	input := filepath.Join(dir, "in.bin")
	require.NoError(t, os.WriteFile(input, data, 0644))
	out := filepath.Join(dir, "c.dczf")
	require.NoError(t, compressor.New().Compress(context.Background(), input, out, nil))
	return out
}

func TestDecompressRejectsEmptyInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.dczf")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	err := New().Decompress(context.Background(), path, filepath.Join(dir, "out.bin"), nil)
	require.ErrorIs(t, err, dczerr.ErrEmptyInput)
}

func TestDecompressRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	container := buildContainer(t, dir, []byte("some data"))

	data, err := os.ReadFile(container)
	require.NoError(t, err)
	data[0] ^= 0xFF
	require.NoError(t, os.WriteFile(container, data, 0644))

	err = New().Decompress(context.Background(), container, filepath.Join(dir, "out.bin"), nil)
	require.ErrorIs(t, err, dczerr.ErrBadMagic)
}

func TestDecompressProgressCallback(t *testing.T) {
	dir := t.TempDir()
	container := buildContainer(t, dir, bytes.Repeat([]byte("chunked "), 5000))

	var calls int
	var last float64
	err := New().Decompress(context.Background(), container, filepath.Join(dir, "out.bin"), func(fraction float64) {
		calls++
		last = fraction
	})
	require.NoError(t, err)
	require.Greater(t, calls, 0)
	require.Equal(t, 1.0, last)
}

func TestDecompressCancellation(t *testing.T) {
	dir := t.TempDir()
	container := buildContainer(t, dir, bytes.Repeat([]byte{0x05}, 1000))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Decompress(ctx, container, filepath.Join(dir, "out.bin"), nil)
	require.ErrorIs(t, err, dczerr.ErrCancelled)
}
