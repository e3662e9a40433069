package huffman

// Code is a canonical Huffman codeword and its bit length. Length 0 means
// the symbol is absent from the table.
type Code struct {
	Codeword uint32
	Length   uint8
}

// Codes holds one Code per symbol in the 256-symbol alphabet.
type Codes [256]Code

// Decoder resolves an accumulated (code, length) pair back to a symbol
// during chunk decode.
type Decoder struct {
	firstCode  [MaxLength + 1]uint32
	firstIndex [MaxLength + 1]int
	count      [MaxLength + 1]int
	symbols    []byte
	maxLen     uint8
}

// MaxCodeLen returns the longest codeword length present in the table, or 0
// if the table is empty (e.g. an empty chunk).
func (d *Decoder) MaxCodeLen() uint8 {
	return d.maxLen
}

// Decode attempts to resolve the accumulated code/length pair to a symbol.
// ok is false if no symbol has this exact (code, length) pair, meaning the
// caller should read one more bit and retry with length+1.
func (d *Decoder) Decode(code uint32, length uint8) (symbol byte, ok bool) {
	if length == 0 || int(length) > int(d.maxLen) {
		return 0, false
	}
	n := d.count[length]
	if n == 0 {
		return 0, false
	}
	base := d.firstCode[length]
	if code < base || code-base >= uint32(n) {
		return 0, false
	}
	return d.symbols[d.firstIndex[length]+int(code-base)], true
}

// FromLengths derives both the canonical codeword table used by the
// encoder and the decoder used for decompression from a single
// CodeLengths table, so encode and decode are always built from the same
// canonical assignment (spec.md §9's "collapse build-decoder and
// rebuild-codes-from-lengths into one function").
func FromLengths(lengths CodeLengths) (Codes, *Decoder) {
	var codes Codes
	var bitCount [MaxLength + 2]int
	maxLen := uint8(0)
	for _, l := range lengths {
		bitCount[l]++
		if l > maxLen {
			maxLen = l
		}
	}
	bitCount[0] = 0

	var nextCode [MaxLength + 2]uint32
	code := uint32(0)
	for bits := 1; bits <= int(maxLen); bits++ {
		code = (code + uint32(bitCount[bits-1])) << 1
		nextCode[bits] = code
	}

	dec := &Decoder{maxLen: maxLen}
	for l := 1; l <= int(maxLen); l++ {
		dec.firstCode[l] = nextCode[l]
		dec.count[l] = bitCount[l]
	}

	// Symbols sorted by (length, symbol) ascending, matching the
	// enumeration order spec.md §4.D assigns codewords in.
	idx := 0
	dec.symbols = make([]byte, 0, len(lengths))
	for l := 1; l <= int(maxLen); l++ {
		dec.firstIndex[l] = idx
		for sym := 0; sym < len(lengths); sym++ {
			if int(lengths[sym]) != l {
				continue
			}
			codes[sym] = Code{Codeword: nextCode[l], Length: uint8(l)}
			nextCode[l]++
			dec.symbols = append(dec.symbols, byte(sym))
			idx++
		}
	}

	return codes, dec
}
