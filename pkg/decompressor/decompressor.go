// Package decompressor implements the sequential decompression pipeline of
// spec.md §4.H, grounded on CpuCompressionService.decompress: parse the
// header, then decode each chunk in order, verifying its checksum before
// the bytes are ever written out.
package decompressor

import (
	"bufio"
	"context"
	"crypto/subtle"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/goopsie/dczf/pkg/checksum"
	"github.com/goopsie/dczf/pkg/chunkcodec"
	"github.com/goopsie/dczf/pkg/container"
	"github.com/goopsie/dczf/pkg/dczerr"
	"github.com/goopsie/dczf/pkg/huffman"
)

const (
	ioBufferSize = 1 << 20
	// fsyncEveryChunks bounds how often a very large output gets a
	// mid-stream fsync (a full File.Sync) (spec.md §4.H.5.f).
	fsyncEveryChunks = 10
	largeOutputBytes = 5_000_000_000 // 5 GB, matching the original's threshold for periodic sync/GC hints
)

// Decompressor runs the decompress pipeline. The zero value is not usable;
// construct with New.
type Decompressor struct {
	log *logrus.Logger
}

// Option configures a Decompressor.
type Option func(*Decompressor)

// WithLogger attaches a structured logger; if omitted a logger that
// discards all output is used.
func WithLogger(log *logrus.Logger) Option {
	return func(d *Decompressor) { d.log = log }
}

// New constructs a Decompressor with the given options applied.
func New(opts ...Option) *Decompressor {
	d := &Decompressor{log: silentLogger()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// Progress is invoked with a value in [0, 1] after each chunk completes.
// It may be nil.
type Progress func(fraction float64)

// Decompress parses inputPath as a DCZF container and writes its decoded
// bytes to outputPath, verifying every chunk's checksum and the overall
// size invariant before returning success (spec.md §8, property 1).
func (d *Decompressor) Decompress(ctx context.Context, inputPath, outputPath string, progress Progress) (err error) {
	inStat, statErr := os.Stat(inputPath)
	if statErr != nil {
		return &dczerr.IOError{Path: inputPath, Cause: statErr}
	}
	if inStat.Size() == 0 {
		return dczerr.ErrEmptyInput
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return &dczerr.IOError{Path: inputPath, Cause: err}
	}
	defer in.Close()

	br := bufio.NewReaderSize(in, ioBufferSize)
	header, err := container.ReadHeader(br)
	if err != nil {
		return err
	}

	log := d.log.WithFields(logrus.Fields{"input": inputPath, "output": outputPath, "chunks": len(header.Chunks)})
	log.Info("starting decompression")

	defer func() {
		if err != nil {
			os.Remove(outputPath)
		}
	}()

	if len(header.Chunks) == 0 {
		if header.OriginalFileSize != 0 {
			return &dczerr.CorruptError{Reason: "zero chunks but non-zero original_file_size"}
		}
		out, createErr := os.OpenFile(outputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if createErr != nil {
			return &dczerr.IOError{Path: outputPath, Cause: createErr}
		}
		defer out.Close()
		return nil
	}

	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return &dczerr.IOError{Path: outputPath, Cause: err}
	}
	defer out.Close()

	var totalDecoded uint64
	for i, meta := range header.Chunks {
		select {
		case <-ctx.Done():
			return dczerr.ErrCancelled
		default:
		}

		compressed := make([]byte, meta.CompressedSize)
		if _, readErr := io.ReadFull(br, compressed); readErr != nil {
			return &dczerr.CorruptError{AtChunk: meta.ChunkIndex, Reason: "unexpected EOF reading chunk payload"}
		}

		var kraft uint64 // sum of 2^(MaxLength-len) over present symbols
		for _, l := range meta.CodeLengths {
			if l > huffman.MaxLength {
				return &dczerr.CorruptError{AtChunk: meta.ChunkIndex, Reason: "code length exceeds maximum"}
			}
			if l > 0 {
				kraft += uint64(1) << (huffman.MaxLength - l)
			}
		}
		if kraft > uint64(1)<<huffman.MaxLength {
			return &dczerr.CorruptError{AtChunk: meta.ChunkIndex, Reason: "code lengths violate the Kraft inequality"}
		}

		_, dec := huffman.FromLengths(huffman.CodeLengths(meta.CodeLengths))
		decoded, decErr := chunkcodec.Decode(compressed, meta.OriginalSize, dec)
		if decErr != nil {
			return &dczerr.CorruptError{AtChunk: meta.ChunkIndex, Reason: decErr.Error()}
		}

		sum := checksum.Sum(decoded)
		if subtle.ConstantTimeCompare(sum[:], meta.Checksum[:]) != 1 {
			return &dczerr.ChecksumMismatchError{ChunkIndex: meta.ChunkIndex}
		}

		if _, writeErr := out.Write(decoded); writeErr != nil {
			return &dczerr.IOError{Path: outputPath, Cause: writeErr}
		}
		totalDecoded += uint64(len(decoded))

		if header.OriginalFileSize > largeOutputBytes && i%fsyncEveryChunks == 0 {
			out.Sync()
		}

		log.WithFields(logrus.Fields{"chunk_index": meta.ChunkIndex, "bytes": len(decoded)}).Debug("chunk decoded")

		if progress != nil {
			progress(float64(i+1) / float64(len(header.Chunks)))
		}
	}

	if err := out.Sync(); err != nil {
		return &dczerr.IOError{Path: outputPath, Cause: err}
	}

	if totalDecoded != header.OriginalFileSize {
		return &dczerr.SizeMismatchError{Expected: header.OriginalFileSize, Actual: totalDecoded}
	}

	finalStat, statErr := os.Stat(outputPath)
	if statErr != nil {
		return &dczerr.IOError{Path: outputPath, Cause: statErr}
	}
	if uint64(finalStat.Size()) != header.OriginalFileSize {
		return &dczerr.SizeMismatchError{Expected: header.OriginalFileSize, Actual: uint64(finalStat.Size())}
	}

	log.Info("decompression complete")
	return nil
}
