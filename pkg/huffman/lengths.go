// Package huffman builds canonical Huffman code tables from a byte
// histogram, grounded on the tree construction and canonical-code
// generation of the original CanonicalHuffman/HuffmanNode classes.
//
// The tree itself is never materialized as heap-allocated parent/child
// objects: nodes live in a single flat slice and are addressed by index,
// so building a table for one chunk allocates one slice instead of O(K)
// individually heap-allocated nodes.
package huffman

import (
	"container/heap"
	"sort"

	"github.com/goopsie/dczf/pkg/histogram"
)

// MaxLength is the largest code length the container format can represent
// (spec: length is stored as a byte in [1, 32]; 0 means absent).
const MaxLength = 32

// CodeLengths is the persisted per-symbol code length table. len == 0 means
// the symbol never appeared in the chunk.
type CodeLengths [256]uint8

type leaf struct {
	symbol int
	freq   uint64
}

// treeNode is a slot in the flat tree array. leaf nodes have symbol >= 0;
// internal nodes have left/right >= 0 and symbol == -1.
type treeNode struct {
	freq   uint64
	minSym int
	left   int32
	right  int32
	symbol int32
}

// nodeHeap is a min-heap of node indices ordered by (frequency, minSymbol),
// the deterministic tie-break spec.md §4.D and the original HuffmanNode's
// compareTo both require.
type nodeHeap struct {
	idx   []int32
	nodes []treeNode
}

func (h nodeHeap) Len() int { return len(h.idx) }
func (h nodeHeap) Less(i, j int) bool {
	a, b := h.nodes[h.idx[i]], h.nodes[h.idx[j]]
	if a.freq != b.freq {
		return a.freq < b.freq
	}
	return a.minSym < b.minSym
}
func (h nodeHeap) Swap(i, j int) { h.idx[i], h.idx[j] = h.idx[j], h.idx[i] }
func (h *nodeHeap) Push(x any)   { h.idx = append(h.idx, x.(int32)) }
func (h *nodeHeap) Pop() any {
	old := h.idx
	n := len(old)
	v := old[n-1]
	h.idx = old[:n-1]
	return v
}

// BuildLengths computes canonical code lengths for freq, handling the
// zero-symbol and one-symbol edge cases directly and falling back to a
// priority-queue Huffman tree construction otherwise.
func BuildLengths(freq histogram.Frequencies) CodeLengths {
	var lengths CodeLengths

	var leaves []leaf
	for s, c := range freq {
		if c > 0 {
			leaves = append(leaves, leaf{symbol: s, freq: c})
		}
	}

	switch len(leaves) {
	case 0:
		return lengths
	case 1:
		lengths[leaves[0].symbol] = 1
		return lengths
	}

	k := len(leaves)
	nodes := make([]treeNode, 0, 2*k-1)
	h := &nodeHeap{}
	for _, lf := range leaves {
		nodes = append(nodes, treeNode{freq: lf.freq, minSym: lf.symbol, left: -1, right: -1, symbol: int32(lf.symbol)})
		h.idx = append(h.idx, int32(len(nodes)-1))
	}
	h.nodes = nodes
	heap.Init(h)

	for h.Len() > 1 {
		li := heap.Pop(h).(int32)
		ri := heap.Pop(h).(int32)
		l, r := nodes[li], nodes[ri]
		minSym := l.minSym
		if r.minSym < minSym {
			minSym = r.minSym
		}
		nodes = append(nodes, treeNode{
			freq:   l.freq + r.freq,
			minSym: minSym,
			left:   li,
			right:  ri,
			symbol: -1,
		})
		h.nodes = nodes
		heap.Push(h, int32(len(nodes)-1))
	}
	root := heap.Pop(h).(int32)

	rawLen := make(map[int]int, k)
	type frame struct {
		node  int32
		depth int
	}
	stack := []frame{{root, 0}}
	maxRaw := 0
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := nodes[f.node]
		if n.symbol >= 0 {
			rawLen[int(n.symbol)] = f.depth
			if f.depth > maxRaw {
				maxRaw = f.depth
			}
			continue
		}
		stack = append(stack, frame{n.left, f.depth + 1}, frame{n.right, f.depth + 1})
	}

	if maxRaw <= MaxLength {
		for sym, l := range rawLen {
			lengths[sym] = uint8(l)
		}
		return lengths
	}

	return limitLengths(leaves, rawLen, maxRaw)
}

// limitLengths applies length limiting when the natural tree depth exceeds
// MaxLength. It rebalances the length-count histogram with the classic
// overflow-redistribution technique (as used to keep JPEG Huffman tables
// within 16 bits, generalized here to MaxLength), then reassigns the
// rebalanced lengths back to symbols ordered by (original length asc,
// frequency desc, symbol asc) so the result stays deterministic.
func limitLengths(leaves []leaf, rawLen map[int]int, maxRaw int) CodeLengths {
	var lengths CodeLengths

	counts := make([]int, maxRaw+1) // counts[l] = number of symbols at length l, 1-indexed
	for _, lf := range leaves {
		counts[rawLen[lf.symbol]]++
	}

	for i := len(counts) - 1; i > MaxLength; i-- {
		for counts[i] > 0 {
			j := i - 2
			for j >= 1 && counts[j] == 0 {
				j--
			}
			counts[i] -= 2
			counts[i-1]++
			counts[j+1] += 2
			counts[j]--
		}
	}
	counts = counts[:MaxLength+1]

	ordered := make([]leaf, len(leaves))
	copy(ordered, leaves)
	sort.Slice(ordered, func(i, j int) bool {
		li, lj := rawLen[ordered[i].symbol], rawLen[ordered[j].symbol]
		if li != lj {
			return li < lj
		}
		if ordered[i].freq != ordered[j].freq {
			return ordered[i].freq > ordered[j].freq
		}
		return ordered[i].symbol < ordered[j].symbol
	})

	pos := 0
	for l := 1; l <= MaxLength; l++ {
		for n := 0; n < counts[l]; n++ {
			lengths[ordered[pos].symbol] = uint8(l)
			pos++
		}
	}
	return lengths
}
