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

package huffman

import (
	"fmt"

	"github.com/dcz-project/dcz/bitstream"
)

// Encoder packs a block's bytes into a bitstream.Writer using a fixed
// canonical codebook. Unlike kanzi-go's HuffmanEncoder, which rebuilds
// its codebook once per internal sub-chunk and transmits lengths
// inline via an exp-Golomb-coded alphabet, this codec derives one
// codebook per top-level chunk and lets the container format carry
// the length table in chunk metadata — so Encoder only ever emits
// codeword bits, nothing else.
type Encoder struct {
	codes   [MaxSymbols]uint16
	lengths [MaxSymbols]uint8
}

// NewEncoder builds an Encoder from a derived length table. Returns an
// error if the lengths don't correspond to a valid prefix-free code.
func NewEncoder(lengths [MaxSymbols]uint8, maxCodeLen int) (*Encoder, error) {
	codes, err := CanonicalCodes(lengths, maxCodeLen)

	if err != nil {
		return nil, err
	}

	limit := uint64(1) << uint(maxCodeLen)

	if sum := KraftSum(lengths, maxCodeLen); sum > limit {
		return nil, fmt.Errorf("huffman: invalid length assignment, Kraft sum %d exceeds %d", sum, limit)
	}

	return &Encoder{codes: codes, lengths: lengths}, nil
}

// Encode appends block's codewords, MSB first, to w. A single-symbol
// alphabet gets length 1 by convention (see DeriveLengths), so a
// degenerate chunk still emits exactly len(block) zero-bits here, and
// Decoder.Decode reads and validates every one of them against the
// codebook just like any other chunk: nothing about original_size or
// the length table alone is trusted to stand in for the payload.
func (e *Encoder) Encode(w *bitstream.Writer, block []byte) {
	for _, b := range block {
		n := uint(e.lengths[b])
		w.WriteBits(uint32(e.codes[b]), n)
	}
}
