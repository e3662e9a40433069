// Package container implements the DCZF binary container format: the
// header, per-chunk metadata records, and their big-endian wire encoding
// (spec.md §3, §6). It is grounded on the teacher's pkg/archive.Header,
// generalized from a fixed 24-byte header to DCZF's variable-length,
// chunk-list header: Header has a Validate method, while encoding and
// decoding are the free streaming functions WriteHeader and ReadHeader.
// ReadHeader does not call Validate.
package container

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/goopsie/dczf/pkg/dczerr"
)

// Magic identifies a DCZF container: the ASCII bytes "DCZF" read as a
// big-endian uint32.
const Magic uint32 = 0x44435A46

// Version is the only container format version this build writes and
// reads.
const Version uint32 = 1

// MaxChunks bounds num_chunks to fit a signed 32-bit chunk index (spec.md
// §4.G.1: "fail if num_chunks > 2^31 - 1").
const MaxChunks = (1 << 31) - 1

// CodeLengthsSize is the on-wire byte size of one chunk's code_lengths
// table: 256 big-endian uint16 values, high byte always zero (spec.md §4.F).
const CodeLengthsSize = 256 * 2

// ChunkMetadata describes one chunk's placement and integrity data within
// the container (spec.md §3).
type ChunkMetadata struct {
	ChunkIndex       uint32
	OriginalOffset   uint64
	OriginalSize     uint32
	CompressedOffset uint64
	CompressedSize   uint32
	Checksum         [32]byte
	CodeLengths      [256]uint8
}

// chunkRecordSize is the fixed on-wire size of one ChunkMetadata record.
const chunkRecordSize = 4 + 8 + 4 + 8 + 4 + 32 + CodeLengthsSize

// Header is the top-level DCZF container metadata (spec.md §3).
type Header struct {
	Version             uint32
	OriginalFilename    string
	OriginalFileSize    uint64
	OriginalTimestampMs uint64
	ChunkSizeBytes      uint32
	GlobalChecksum      [32]byte
	Chunks              []ChunkMetadata
}

// Validate checks structural invariants that don't require reading the
// payload: magic/version are checked by ReadHeader (which never returns a
// Header built from bad magic), so Validate focuses on the
// chunk-list invariants of spec.md §3.
func (h *Header) Validate() error {
	if len(h.Chunks) > MaxChunks {
		return &dczerr.TooManyChunksError{Required: uint64(len(h.Chunks))}
	}
	var originalTotal uint64
	var compressedTotal uint64
	for i, c := range h.Chunks {
		if c.ChunkIndex != uint32(i) {
			return &dczerr.CorruptError{AtChunk: uint32(i), Reason: "chunk_index out of order"}
		}
		if c.OriginalOffset != originalTotal {
			return &dczerr.CorruptError{AtChunk: uint32(i), Reason: "original_offset not contiguous"}
		}
		if c.CompressedOffset != compressedTotal {
			return &dczerr.CorruptError{AtChunk: uint32(i), Reason: "compressed_offset not contiguous"}
		}
		originalTotal += uint64(c.OriginalSize)
		compressedTotal += uint64(c.CompressedSize)
	}
	if originalTotal != h.OriginalFileSize {
		return &dczerr.CorruptError{Reason: fmt.Sprintf("sum of original_size %d != original_file_size %d", originalTotal, h.OriginalFileSize)}
	}
	return nil
}

// PayloadSize returns the total byte length of the compressed-data region
// that follows the header.
func (h *Header) PayloadSize() uint64 {
	var total uint64
	for _, c := range h.Chunks {
		total += uint64(c.CompressedSize)
	}
	return total
}

// WriteHeader serializes h to w in the wire layout of spec.md §6.
func WriteHeader(w io.Writer, h *Header) error {
	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.BigEndian, Magic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(bw, binary.BigEndian, h.Version); err != nil {
		return fmt.Errorf("write version: %w", err)
	}

	nameBytes := []byte(h.OriginalFilename)
	if len(nameBytes) > 1<<16-1 {
		return fmt.Errorf("filename too long: %d bytes", len(nameBytes))
	}
	if err := binary.Write(bw, binary.BigEndian, uint16(len(nameBytes))); err != nil {
		return fmt.Errorf("write filename length: %w", err)
	}
	if _, err := bw.Write(nameBytes); err != nil {
		return fmt.Errorf("write filename: %w", err)
	}

	for _, v := range []any{h.OriginalFileSize, h.OriginalTimestampMs, h.ChunkSizeBytes} {
		if err := binary.Write(bw, binary.BigEndian, v); err != nil {
			return fmt.Errorf("write header scalar: %w", err)
		}
	}
	if _, err := bw.Write(h.GlobalChecksum[:]); err != nil {
		return fmt.Errorf("write global checksum: %w", err)
	}
	if err := binary.Write(bw, binary.BigEndian, uint32(len(h.Chunks))); err != nil {
		return fmt.Errorf("write num_chunks: %w", err)
	}

	for i := range h.Chunks {
		if err := writeChunkMetadata(bw, &h.Chunks[i]); err != nil {
			return fmt.Errorf("write chunk %d: %w", i, err)
		}
	}

	return bw.Flush()
}

func writeChunkMetadata(w io.Writer, c *ChunkMetadata) error {
	for _, v := range []any{c.ChunkIndex, c.OriginalOffset, c.OriginalSize, c.CompressedOffset, c.CompressedSize} {
		if err := binary.Write(w, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if _, err := w.Write(c.Checksum[:]); err != nil {
		return err
	}
	var packed [CodeLengthsSize]byte
	for i, l := range c.CodeLengths {
		binary.BigEndian.PutUint16(packed[i*2:], uint16(l))
	}
	_, err := w.Write(packed[:])
	return err
}

// ReadHeader parses a Header from r, validating magic and version before
// reading anything else (spec.md §8: "flipping the magic MUST cause
// BadMagic without reading further").
func ReadHeader(r io.Reader) (*Header, error) {
	// r is read directly, never wrapped in a bufio.Reader here: callers
	// that need the exact byte offset where the payload begins (Open's
	// countingReader) or that keep streaming chunk data from the same
	// reader afterwards (the decompressor) would otherwise lose whatever
	// a local buffer pulled ahead past the header.
	var magic, version uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != Magic {
		return nil, dczerr.ErrBadMagic
	}
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != Version {
		return nil, &dczerr.UnsupportedVersionError{Found: version}
	}

	var nameLen uint16
	if err := binary.Read(r, binary.BigEndian, &nameLen); err != nil {
		return nil, fmt.Errorf("read filename length: %w", err)
	}
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return nil, fmt.Errorf("read filename: %w", err)
	}

	h := &Header{Version: version, OriginalFilename: string(nameBytes)}
	for _, v := range []any{&h.OriginalFileSize, &h.OriginalTimestampMs, &h.ChunkSizeBytes} {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return nil, fmt.Errorf("read header scalar: %w", err)
		}
	}
	if _, err := io.ReadFull(r, h.GlobalChecksum[:]); err != nil {
		return nil, fmt.Errorf("read global checksum: %w", err)
	}

	var numChunks uint32
	if err := binary.Read(r, binary.BigEndian, &numChunks); err != nil {
		return nil, fmt.Errorf("read num_chunks: %w", err)
	}
	if numChunks > MaxChunks {
		return nil, &dczerr.TooManyChunksError{Required: uint64(numChunks)}
	}

	h.Chunks = make([]ChunkMetadata, numChunks)
	for i := range h.Chunks {
		if err := readChunkMetadata(r, &h.Chunks[i]); err != nil {
			return nil, fmt.Errorf("read chunk %d: %w", i, err)
		}
	}

	return h, nil
}

func readChunkMetadata(r io.Reader, c *ChunkMetadata) error {
	for _, v := range []any{&c.ChunkIndex, &c.OriginalOffset, &c.OriginalSize, &c.CompressedOffset, &c.CompressedSize} {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return err
		}
	}
	if _, err := io.ReadFull(r, c.Checksum[:]); err != nil {
		return err
	}
	var packed [CodeLengthsSize]byte
	if _, err := io.ReadFull(r, packed[:]); err != nil {
		return err
	}
	for i := range c.CodeLengths {
		c.CodeLengths[i] = uint8(binary.BigEndian.Uint16(packed[i*2:]))
	}
	return nil
}
