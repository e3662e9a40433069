// Package compressor implements the two-phase streaming compression
// pipeline of spec.md §4.G, grounded on CpuCompressionService.compress:
// chunks are histogrammed, Huffman-coded, and spooled to a sibling temp
// file one at a time; only once every chunk has been processed and the
// global checksum is known is the final container written with a correct
// header prefix.
package compressor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/goopsie/dczf/pkg/checksum"
	"github.com/goopsie/dczf/pkg/chunkcodec"
	"github.com/goopsie/dczf/pkg/container"
	"github.com/goopsie/dczf/pkg/dczerr"
	"github.com/goopsie/dczf/pkg/histogram"
	"github.com/goopsie/dczf/pkg/huffman"
)

// DefaultChunkSizeBytes is used when no WithChunkSize option is given,
// matching the reference implementation's 512 MiB default (spec.md §6).
const DefaultChunkSizeBytes = 512 * 1024 * 1024

const (
	ioBufferSize   = 1 << 20 // 1 MiB streaming write buffer (spec.md §4.G.3)
	copyBufferSize = 64 << 10 // 64 KiB buffer used to stream the spool into the final file (spec.md §4.G.8)
	flushEvery     = 10       // chunks between user-space buffer flushes (spec.md §4.G.5.f)
)

// Compressor runs the compress pipeline. The zero value is not usable;
// construct with New.
type Compressor struct {
	chunkSize uint32
	log       *logrus.Logger
}

// Option configures a Compressor, the same functional-option shape the
// teacher's archive.Writer uses for WithCompressionLevel.
type Option func(*Compressor)

// WithChunkSize overrides the default chunk size.
func WithChunkSize(bytes uint32) Option {
	return func(c *Compressor) { c.chunkSize = bytes }
}

// WithLogger attaches a structured logger; if omitted a logger that
// discards all output is used.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Compressor) { c.log = log }
}

// New constructs a Compressor with the given options applied over the
// defaults.
func New(opts ...Option) *Compressor {
	c := &Compressor{
		chunkSize: DefaultChunkSizeBytes,
		log:       silentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Progress is invoked with a value in [0, 1] after each chunk completes.
// It may be nil.
type Progress func(fraction float64)

// Compress reads inputPath, Huffman-codes it chunk by chunk, and writes a
// DCZF container to outputPath. Any error leaves neither outputPath nor
// its temp spool behind (spec.md §7).
func (c *Compressor) Compress(ctx context.Context, inputPath, outputPath string, progress Progress) (err error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return &dczerr.IOError{Path: inputPath, Cause: err}
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return &dczerr.IOError{Path: inputPath, Cause: err}
	}
	size := uint64(stat.Size())

	numChunks := (size + uint64(c.chunkSize) - 1) / uint64(c.chunkSize)
	if numChunks > container.MaxChunks {
		return &dczerr.TooManyChunksError{Required: numChunks}
	}

	log := c.log.WithFields(logrus.Fields{"input": inputPath, "output": outputPath, "chunks": numChunks})
	log.Info("starting compression")

	tempPath := fmt.Sprintf("%s.tmp.%d.%s", outputPath, time.Now().UnixMilli(), uuid.NewString()[:8])
	defer func() {
		os.Remove(tempPath)
		if err != nil {
			os.Remove(outputPath)
		}
	}()

	chunks, err := c.spoolChunks(ctx, in, size, numChunks, tempPath, log, progress)
	if err != nil {
		return err
	}

	header := &container.Header{
		Version:             container.Version,
		OriginalFilename:    filepath.Base(inputPath),
		OriginalFileSize:    size,
		OriginalTimestampMs: uint64(stat.ModTime().UnixMilli()),
		ChunkSizeBytes:      c.chunkSize,
		GlobalChecksum:      chunks.globalChecksum,
		Chunks:              chunks.metadata,
	}

	if err := c.assembleOutput(outputPath, tempPath, header, log); err != nil {
		return err
	}

	if size > 0 {
		finalStat, statErr := os.Stat(outputPath)
		if statErr != nil || finalStat.Size() == 0 {
			return &dczerr.IOError{Path: outputPath, Cause: fmt.Errorf("final output is empty")}
		}
	}

	log.Info("compression complete")
	return nil
}

type spoolResult struct {
	metadata       []container.ChunkMetadata
	globalChecksum [32]byte
}

func (c *Compressor) spoolChunks(ctx context.Context, in *os.File, size uint64, numChunks uint64, tempPath string, log *logrus.Entry, progress Progress) (*spoolResult, error) {
	temp, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, &dczerr.IOError{Path: tempPath, Cause: err}
	}
	defer temp.Close()

	bw := bufio.NewWriterSize(temp, ioBufferSize)
	global := checksum.NewDigest()
	chunkBuf := make([]byte, c.chunkSize)
	metadata := make([]container.ChunkMetadata, 0, numChunks)
	var compressedOffset uint64

	for i := uint64(0); i < numChunks; i++ {
		select {
		case <-ctx.Done():
			return nil, dczerr.ErrCancelled
		default:
		}

		offset := i * uint64(c.chunkSize)
		want := c.chunkSize
		if remaining := size - offset; uint64(want) > remaining {
			want = uint32(remaining)
		}

		n, err := readFullAt(in, chunkBuf[:want], int64(offset))
		if err != nil {
			return nil, &dczerr.IOError{Path: "", Cause: fmt.Errorf("read chunk %d: %w", i, err)}
		}
		if n == 0 && size > 0 {
			return nil, &dczerr.IOError{Path: "", Cause: fmt.Errorf("short read at chunk %d", i)}
		}
		data := chunkBuf[:n]

		chunkSum := checksum.Sum(data)
		global.Update(chunkSum[:])

		freq := histogram.Count(data)
		lengths := huffman.BuildLengths(freq)
		codes, _ := huffman.FromLengths(lengths)
		encoded := chunkcodec.Encode(data, codes)

		if _, err := bw.Write(encoded); err != nil {
			return nil, &dczerr.IOError{Path: tempPath, Cause: err}
		}

		metadata = append(metadata, container.ChunkMetadata{
			ChunkIndex:       uint32(i),
			OriginalOffset:   offset,
			OriginalSize:     uint32(n),
			CompressedOffset: compressedOffset,
			CompressedSize:   uint32(len(encoded)),
			Checksum:         chunkSum,
			CodeLengths:      lengths,
		})
		compressedOffset += uint64(len(encoded))

		if i%flushEvery == 0 {
			if err := bw.Flush(); err != nil {
				return nil, &dczerr.IOError{Path: tempPath, Cause: err}
			}
		}

		log.WithFields(logrus.Fields{"chunk_index": i, "original_size": n, "compressed_size": len(encoded)}).Debug("chunk compressed")

		if progress != nil {
			progress(float64(i+1) / float64(numChunks))
		}
	}

	if err := bw.Flush(); err != nil {
		return nil, &dczerr.IOError{Path: tempPath, Cause: err}
	}

	tempStat, err := temp.Stat()
	if err != nil {
		return nil, &dczerr.IOError{Path: tempPath, Cause: err}
	}
	if numChunks > 0 && tempStat.Size() == 0 {
		return nil, &dczerr.IOError{Path: tempPath, Cause: fmt.Errorf("spool file is empty but %d chunks were expected", numChunks)}
	}
	if uint64(tempStat.Size()) != compressedOffset {
		return nil, &dczerr.IOError{Path: tempPath, Cause: fmt.Errorf("spool size %d does not match sum of compressed sizes %d", tempStat.Size(), compressedOffset)}
	}

	return &spoolResult{metadata: metadata, globalChecksum: global.Finalize()}, nil
}

func (c *Compressor) assembleOutput(outputPath, tempPath string, header *container.Header, log *logrus.Entry) error {
	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return &dczerr.IOError{Path: outputPath, Cause: err}
	}
	defer out.Close()

	if err := container.WriteHeader(out, header); err != nil {
		return &dczerr.IOError{Path: outputPath, Cause: err}
	}
	log.WithField("num_chunks", len(header.Chunks)).Debug("header written")

	temp, err := os.Open(tempPath)
	if err != nil {
		return &dczerr.IOError{Path: tempPath, Cause: err}
	}
	defer temp.Close()

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(out, temp, buf); err != nil {
		return &dczerr.IOError{Path: outputPath, Cause: err}
	}

	if err := out.Sync(); err != nil {
		return &dczerr.IOError{Path: outputPath, Cause: err}
	}
	return nil
}

// readFullAt reads len(buf) bytes at off via ReadAt, tolerating the final
// short read at EOF the way io.ReadFull does for io.Reader.
func readFullAt(r io.ReaderAt, buf []byte, off int64) (int, error) {
	n, err := r.ReadAt(buf, off)
	if err == io.EOF && n == len(buf) {
		err = nil
	}
	if err == io.EOF {
		return n, nil
	}
	return n, err
}
