package compressor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/goopsie/dczf/pkg/decompressor"
	"github.com/goopsie/dczf/pkg/verify"
)

func writeTempInput(t *testing.T, dir string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, "input.bin")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	dir := t.TempDir()
	input := writeTempInput(t, dir, bytes.Repeat([]byte("ABRACADABRA "), 1000))
	compressed := filepath.Join(dir, "out.dczf")
	output := filepath.Join(dir, "roundtrip.bin")

	c := New()
	require.NoError(t, c.Compress(context.Background(), input, compressed, nil))

	d := decompressor.New()
	require.NoError(t, d.Decompress(context.Background(), compressed, output, nil))

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	want, err := os.ReadFile(input)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestCompressDecompressMultiChunk(t *testing.T) {
	dir := t.TempDir()
	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte(i % 251)
	}
	input := writeTempInput(t, dir, data)
	compressed := filepath.Join(dir, "out.dczf")
	output := filepath.Join(dir, "roundtrip.bin")

	c := New(WithChunkSize(1000))
	require.NoError(t, c.Compress(context.Background(), input, compressed, nil))

	d := decompressor.New()
	require.NoError(t, d.Decompress(context.Background(), compressed, output, nil))

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestCompressEmptyInput(t *testing.T) {
	dir := t.TempDir()
	input := writeTempInput(t, dir, nil)
	compressed := filepath.Join(dir, "out.dczf")
	output := filepath.Join(dir, "roundtrip.bin")

	c := New()
	require.NoError(t, c.Compress(context.Background(), input, compressed, nil))

	d := decompressor.New()
	require.NoError(t, d.Decompress(context.Background(), compressed, output, nil))

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestCompressSingleByte(t *testing.T) {
	dir := t.TempDir()
	input := writeTempInput(t, dir, []byte{0x00})
	compressed := filepath.Join(dir, "out.dczf")
	output := filepath.Join(dir, "roundtrip.bin")

	c := New()
	require.NoError(t, c.Compress(context.Background(), input, compressed, nil))

	d := decompressor.New()
	require.NoError(t, d.Decompress(context.Background(), compressed, output, nil))

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00}, got)
}

func TestCompressCleansUpOnCancellation(t *testing.T) {
	dir := t.TempDir()
	input := writeTempInput(t, dir, bytes.Repeat([]byte{0x01}, 100))
	compressed := filepath.Join(dir, "out.dczf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New()
	err := c.Compress(ctx, input, compressed, nil)
	require.Error(t, err)

	_, statErr := os.Stat(compressed)
	require.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".tmp.")
	}
}

func TestVerifyPassesOnValidContainer(t *testing.T) {
	dir := t.TempDir()
	input := writeTempInput(t, dir, bytes.Repeat([]byte("hello world "), 500))
	compressed := filepath.Join(dir, "out.dczf")

	c := New()
	require.NoError(t, c.Compress(context.Background(), input, compressed, nil))

	result, err := verify.Verify(compressed, verify.WithChecksumRecompute())
	require.NoError(t, err)
	require.True(t, result.OK, result.Reason)
}

func TestVerifyDetectsTruncation(t *testing.T) {
	dir := t.TempDir()
	input := writeTempInput(t, dir, bytes.Repeat([]byte("hello world "), 500))
	compressed := filepath.Join(dir, "out.dczf")

	c := New()
	require.NoError(t, c.Compress(context.Background(), input, compressed, nil))

	data, err := os.ReadFile(compressed)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(compressed, data[:len(data)-4], 0644))

	result, err := verify.Verify(compressed)
	require.NoError(t, err)
	require.False(t, result.OK)
}

func TestDecompressDetectsChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	input := writeTempInput(t, dir, bytes.Repeat([]byte("payload data "), 200))
	compressed := filepath.Join(dir, "out.dczf")
	output := filepath.Join(dir, "roundtrip.bin")

	c := New()
	require.NoError(t, c.Compress(context.Background(), input, compressed, nil))

	data, err := os.ReadFile(compressed)
	require.NoError(t, err)
	// Flip a byte in the middle of the payload, well clear of any unused
	// padding bits at the very end of the bitstream.
	data[len(data)/2] ^= 0xFF
	require.NoError(t, os.WriteFile(compressed, data, 0644))

	d := decompressor.New()
	err = d.Decompress(context.Background(), compressed, output, nil)
	require.Error(t, err)

	_, statErr := os.Stat(output)
	require.True(t, os.IsNotExist(statErr))
}
