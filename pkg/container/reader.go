package container

import (
	"fmt"
	"io"
)

// countingReader tracks how many bytes have been read through it, so the
// byte offset where the header ends (and the payload begins) can be
// recovered without hard-coding a fixed header size.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Reader provides random access to individual encoded chunks within an
// already-parsed DCZF container, generalizing the seek-by-offset pattern
// the teacher's pkg/manifest.Package.ReadContent/ReadRawFrame use to reach
// into a package file by a Frame's stored offset and length.
type Reader struct {
	src          io.ReadSeeker
	header       *Header
	payloadStart int64
}

// Open parses the header at the current position of src and returns a
// Reader positioned to serve random access to individual chunks.
func Open(src io.ReadSeeker) (*Reader, error) {
	start, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locate header start: %w", err)
	}
	cr := &countingReader{r: src}
	h, err := ReadHeader(cr)
	if err != nil {
		return nil, err
	}
	return &Reader{src: src, header: h, payloadStart: start + cr.n}, nil
}

// Header returns the parsed container header.
func (r *Reader) Header() *Header {
	return r.header
}

// ChunkAt reads the raw (still Huffman-coded) bytes of chunk i without
// decoding it, seeking directly to its compressed_offset within the
// payload region.
func (r *Reader) ChunkAt(i int) ([]byte, error) {
	if i < 0 || i >= len(r.header.Chunks) {
		return nil, fmt.Errorf("chunk index %d out of range [0, %d)", i, len(r.header.Chunks))
	}
	c := r.header.Chunks[i]
	pos := r.payloadStart + int64(c.CompressedOffset)
	if _, err := r.src.Seek(pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek chunk %d: %w", i, err)
	}
	buf := make([]byte, c.CompressedSize)
	if _, err := io.ReadFull(r.src, buf); err != nil {
		return nil, fmt.Errorf("read chunk %d: %w", i, err)
	}
	return buf, nil
}
