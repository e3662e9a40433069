package bitio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterSingleBit(t *testing.T) {
	w := NewWriter(0)
	w.WriteBits(0, 1)
	require.Equal(t, []byte{0x00}, w.Bytes())
}

func TestWriterPacksMSBFirst(t *testing.T) {
	w := NewWriter(0)
	// 1010 1010 as eight single-bit writes.
	bits := []uint32{1, 0, 1, 0, 1, 0, 1, 0}
	for _, b := range bits {
		w.WriteBits(b, 1)
	}
	require.Equal(t, []byte{0xAA}, w.Bytes())
}

func TestWriterPartialByteLeftShifted(t *testing.T) {
	w := NewWriter(0)
	w.WriteBits(0b101, 3)
	got := w.Bytes()
	require.Equal(t, []byte{0b10100000}, got)
}

func TestWriterWideValue(t *testing.T) {
	w := NewWriter(0)
	w.WriteBits(0xDEADBEEF, 32)
	got := w.Bytes()
	require.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, got)
}

func TestReaderRoundTrip(t *testing.T) {
	w := NewWriter(0)
	w.WriteBits(0b110, 3)
	w.WriteBits(0b0, 1)
	w.WriteBits(0b1111, 4)
	data := w.Bytes()

	r := NewReader(data)
	var bits []byte
	for i := 0; i < 8; i++ {
		bits = append(bits, r.ReadBit())
	}
	require.Equal(t, []byte{1, 1, 0, 0, 1, 1, 1, 1}, bits)
}

func TestReaderZeroPadsPastEnd(t *testing.T) {
	r := NewReader([]byte{0xFF})
	for i := 0; i < 8; i++ {
		require.Equal(t, byte(1), r.ReadBit())
	}
	require.True(t, r.Exhausted())
	for i := 0; i < 16; i++ {
		require.Equal(t, byte(0), r.ReadBit())
	}
}

func TestReaderEmpty(t *testing.T) {
	r := NewReader(nil)
	require.True(t, r.Exhausted())
	require.Equal(t, byte(0), r.ReadBit())
}
