// Package histogram computes per-byte frequency counts over a chunk,
// grounded on the original service's CpuFrequencyService.computeHistogram.
package histogram

// Frequencies is a fixed-size table of byte frequency counts across the
// 256-symbol alphabet.
type Frequencies [256]uint64

// Count returns the byte-frequency histogram of buf. Safe to call on an
// empty slice, which yields an all-zero table.
func Count(buf []byte) Frequencies {
	var freq Frequencies
	for _, b := range buf {
		freq[b]++
	}
	return freq
}

// NonZero returns the number of symbols with non-zero frequency.
func (f Frequencies) NonZero() int {
	n := 0
	for _, c := range f {
		if c > 0 {
			n++
		}
	}
	return n
}

// Sum returns the total count across all symbols, i.e. the number of bytes
// the histogram was built from.
func (f Frequencies) Sum() uint64 {
	var total uint64
	for _, c := range f {
		total += c
	}
	return total
}
