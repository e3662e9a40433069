// Package chunkcodec encodes and decodes a single chunk's bytes against a
// canonical Huffman code table, grounded on the original service's
// encodeChunk/decodeChunk pair and its private BitOutputStream/
// BitInputStream helpers (reimplemented here as pkg/bitio).
package chunkcodec

import (
	"fmt"

	"github.com/goopsie/dczf/pkg/bitio"
	"github.com/goopsie/dczf/pkg/huffman"
)

// Encode packs data into a bit-level Huffman-coded byte slice using codes.
// Every byte in data must have a present code (length > 0); codes are
// always built from data's own histogram, so an absent code here is a
// programmer error, not a data error, and Encode panics rather than
// returning a decode-shaped error for it.
func Encode(data []byte, codes huffman.Codes) []byte {
	w := bitio.NewWriter(len(data))
	for _, b := range data {
		c := codes[b]
		if c.Length == 0 {
			panic(fmt.Sprintf("chunkcodec: no code for symbol %d in its own histogram", b))
		}
		w.WriteBits(c.Codeword, c.Length)
	}
	return w.Bytes()
}

// Decode reads exactly originalSize symbols from encoded using decoder,
// stopping as soon as each symbol resolves. Reading past the real
// compressed bytes synthesizes zero bits (bitio.Reader's contract), which
// is safe because the loop never reads more than originalSize symbols.
func Decode(encoded []byte, originalSize uint32, decoder *huffman.Decoder) ([]byte, error) {
	out := make([]byte, 0, originalSize)
	r := bitio.NewReader(encoded)
	maxLen := decoder.MaxCodeLen()

	for i := uint32(0); i < originalSize; i++ {
		var code uint32
		var length uint8
		symbol, ok := byte(0), false
		for length = 1; length <= maxLen; length++ {
			code = (code << 1) | uint32(r.ReadBit())
			symbol, ok = decoder.Decode(code, length)
			if ok {
				break
			}
		}
		if !ok {
			return nil, fmt.Errorf("decode stuck past max code length %d at symbol index %d", maxLen, i)
		}
		out = append(out, symbol)
	}
	return out, nil
}
