/*
Copyright 2011-2025 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package huffman implements a canonical, static (single-pass, no
// adaptive updates) Huffman codec: code lengths are derived once from
// a chunk's byte histogram, transmitted as a compact per-symbol length
// table, and codes are reconstructed canonically on the decode side
// from lengths alone.
package huffman

import (
	"fmt"
	"sort"
)

// MaxSymbols is the size of the alphabet: one slot per possible byte
// value.
const MaxSymbols = 256

// normalizeRetries bounds how many times DeriveLengths will rescale
// frequencies downward and retry after an over-length result, mirroring
// kanzi-go's HuffmanEncoder.updateFrequencies retry loop.
const normalizeRetries = 3

// DeriveLengths computes a code length for every symbol with a
// non-zero count, in [1, maxCodeLen]. Symbols with a zero count get
// length 0 (absent from the alphabet). Ties in frequency are broken by
// ascending symbol value, so the result is a deterministic function of
// counts alone: two histograms with identical counts always produce
// identical lengths, regardless of how the histogram was computed
// (see freq.Histogram's bit-exactness contract).
//
// alphabetSize is the number of symbols with non-zero count. When it
// is 0, lengths is all zero and the caller must special-case the
// degenerate empty chunk. When it is 1, the sole symbol is assigned
// length 1 by convention (a single-symbol alphabet has no information
// content to encode beyond a run length known from original_size).
func DeriveLengths(counts [MaxSymbols]uint32, maxCodeLen int) (lengths [MaxSymbols]uint8, alphabetSize int, err error) {
	var alphabet [MaxSymbols]int

	for s := 0; s < MaxSymbols; s++ {
		if counts[s] > 0 {
			alphabet[alphabetSize] = s
			alphabetSize++
		}
	}

	if alphabetSize == 0 {
		return lengths, 0, nil
	}

	if alphabetSize == 1 {
		lengths[alphabet[0]] = 1
		return lengths, 1, nil
	}

	symbols := alphabet[:alphabetSize]
	freqs := make([]int64, alphabetSize)

	for i, s := range symbols {
		freqs[i] = int64(counts[s])
	}

	for retry := 0; ; retry++ {
		sizes, maxLen := deriveSizesOnce(symbols, freqs)

		if maxLen <= maxCodeLen {
			for i, s := range symbols {
				lengths[s] = sizes[i]
			}

			return lengths, alphabetSize, nil
		}

		if retry >= normalizeRetries {
			return lengths, alphabetSize, fmt.Errorf("huffman: could not derive code lengths within max length %d after %d retries", maxCodeLen, normalizeRetries)
		}

		normalizeFrequencies(freqs, int64(1)<<uint(14-retry))
	}
}

// deriveSizesOnce runs the Moffat-Katajainen in-place minimum-redundancy
// length computation once, returning a size per symbol (same order as
// symbols/freqs) and the maximum length produced.
func deriveSizesOnce(symbols []int, freqs []int64) ([]uint8, int) {
	count := len(symbols)
	ranks := make([]rankedSymbol, count)

	for i := range symbols {
		ranks[i] = rankedSymbol{freq: freqs[i], symbol: symbols[i]}
	}

	// Sort by (frequency, symbol) ascending: this is both the order the
	// in-place algorithm requires and the tie-break rule fixed for this
	// codec (deterministic regardless of histogram traversal order).
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].freq != ranks[j].freq {
			return ranks[i].freq < ranks[j].freq
		}

		return ranks[i].symbol < ranks[j].symbol
	})

	data := make([]int64, count)

	for i, r := range ranks {
		data[i] = r.freq
	}

	computeInPlaceSizesPhase1(data)
	maxLen := computeInPlaceSizesPhase2(data)

	sizes := make([]uint8, count)

	for i, r := range ranks {
		// data[i] now holds the depth (code length) for the symbol that
		// was at sorted position i; map it back to the caller's symbol
		// order.
		for j, s := range symbols {
			if s == r.symbol {
				sizes[j] = uint8(data[i])
				break
			}
		}
	}

	return sizes, maxLen
}

type rankedSymbol struct {
	freq   int64
	symbol int
}

// computeInPlaceSizesPhase1 implements the first pass of the
// Moffat-Katajainen in-place minimum-redundancy length algorithm:
// data must enter sorted ascending by weight, and on return holds
// intermediate parent-pointer-like sums used by phase 2.
//
// See "In-Place Calculation of Minimum-Redundancy Codes" by Alistair
// Moffat & Jyrki Katajainen.
func computeInPlaceSizesPhase1(data []int64) {
	n := len(data)

	for s, r, t := 0, 0, 0; t < n-1; t++ {
		sum := int64(0)

		for i := 0; i < 2; i++ {
			if s >= n || (r < t && data[r] < data[s]) {
				sum += data[r]
				data[r] = int64(t)
				r++
				continue
			}

			sum += data[s]

			if s > t {
				data[s] = 0
			}

			s++
		}

		data[t] = sum
	}
}

// computeInPlaceSizesPhase2 implements the second pass: converts the
// phase-1 intermediate array into per-symbol code lengths in place and
// returns the maximum length produced. len(data) must be >= 2.
func computeInPlaceSizesPhase2(data []int64) int {
	if len(data) < 2 {
		return 0
	}

	levelTop := len(data) - 2 // root
	depth := 1
	i := len(data)
	totalNodesAtLevel := 2

	for i > 0 {
		k := levelTop

		for k > 0 && data[k-1] >= int64(levelTop) {
			k--
		}

		internalNodesAtLevel := levelTop - k
		leavesAtLevel := totalNodesAtLevel - internalNodesAtLevel

		for j := 0; j < leavesAtLevel; j++ {
			i--
			data[i] = int64(depth)
		}

		totalNodesAtLevel = internalNodesAtLevel << 1
		levelTop = k
		depth++
	}

	return depth - 1
}

// normalizeFrequencies rescales freqs in place, proportionally, so
// their sum is close to targetTotal while keeping every non-zero entry
// at least 1. Used only on retry, when the unconstrained length
// computation overshoots maxCodeLen: shrinking the frequency spread
// shortens the longest codes at the cost of coding efficiency.
func normalizeFrequencies(freqs []int64, targetTotal int64) {
	var total int64

	for _, f := range freqs {
		total += f
	}

	if total == 0 {
		return
	}

	for i, f := range freqs {
		nf := (f * targetTotal) / total

		if nf < 1 {
			nf = 1
		}

		freqs[i] = nf
	}
}
