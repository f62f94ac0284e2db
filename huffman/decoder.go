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
	"sort"

	"github.com/dcz-project/dcz/bitstream"
)

// tableEntry packs a decoded symbol and its code length into one
// uint16: high byte is the symbol, low byte is the length. A zero
// entry means "no code of length <= tableBits has this prefix" -
// decode must fall back to the tree walk.
type tableEntry uint16

func (e tableEntry) length() uint8 { return uint8(e) }
func (e tableEntry) symbol() byte  { return byte(e >> 8) }

// Decoder reconstructs bytes from a canonical Huffman bitstream given
// the same length table the encoder used. It decodes most codewords
// with a single direct lookup into a 2^tableBits table; codes longer
// than tableBits (possible whenever MaxCodeLen > DecodeTableBits) fall
// back to a bit-by-bit canonical walk, mirroring the slow path kanzi-go's
// HuffmanDecoder.Read keeps for its older bitstream version.
type Decoder struct {
	table     []tableEntry
	tableBits int

	// Per-length canonical decode state for the tree-walk fallback.
	firstCode  [MaxSymbols + 1]uint32
	firstIndex [MaxSymbols + 1]int
	count      [MaxSymbols + 1]int
	sorted     []byte
	maxLen     int
}

// NewDecoder builds a Decoder from a derived length table. tableBits
// is the width of the direct lookup table (spec default 12); it may be
// smaller than maxCodeLen, in which case long codes use the fallback
// path exclusively.
func NewDecoder(lengths [MaxSymbols]uint8, maxCodeLen, tableBits int) (*Decoder, error) {
	codes, err := CanonicalCodes(lengths, maxCodeLen)

	if err != nil {
		return nil, err
	}

	d := &Decoder{tableBits: tableBits, maxLen: maxCodeLen}
	d.table = make([]tableEntry, 1<<uint(tableBits))

	type entry struct {
		symbol int
		length uint8
	}

	var entries []entry

	for s := 0; s < MaxSymbols; s++ {
		if lengths[s] == 0 {
			continue
		}

		entries = append(entries, entry{symbol: s, length: lengths[s]})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].length != entries[j].length {
			return entries[i].length < entries[j].length
		}

		return entries[i].symbol < entries[j].symbol
	})

	d.sorted = make([]byte, len(entries))

	for i, e := range entries {
		d.sorted[i] = byte(e.symbol)
	}

	// Build per-length firstCode/firstIndex/count for the canonical
	// fallback walk, and populate the direct table for short codes.
	idx := 0

	for length := 1; length <= maxCodeLen; length++ {
		d.firstIndex[length] = idx
		first := true

		for idx < len(entries) && int(entries[idx].length) == length {
			s := entries[idx].symbol
			code := codes[s]

			if first {
				d.firstCode[length] = uint32(code)
				first = false
			}

			if length <= tableBits {
				lo := int(code) << uint(tableBits-length)
				hi := lo + (1 << uint(tableBits-length))
				val := tableEntry(uint16(s)<<8 | uint16(length))

				for i := lo; i < hi; i++ {
					d.table[i] = val
				}
			}

			d.count[length]++
			idx++
		}
	}

	return d, nil
}

// Decode fills out with n symbols read from r.
func (d *Decoder) Decode(r *bitstream.Reader, out []byte) error {
	for i := range out {
		sym, err := d.decodeOne(r)

		if err != nil {
			return err
		}

		out[i] = sym
	}

	return nil
}

func (d *Decoder) decodeOne(r *bitstream.Reader) (byte, error) {
	if d.tableBits > 0 {
		peek := r.PeekBits(uint(d.tableBits))
		e := d.table[peek]

		if l := e.length(); l != 0 {
			r.SkipBits(uint(l))
			return e.symbol(), nil
		}
	}

	// Fallback: canonical bit-by-bit walk for codes longer than the
	// direct table width.
	code := uint32(0)

	for length := 1; length <= d.maxLen; length++ {
		code = (code << 1) | uint32(r.ReadBit())

		if d.count[length] == 0 {
			continue
		}

		upper := d.firstCode[length] + uint32(d.count[length])

		if code >= d.firstCode[length] && code < upper {
			rank := d.firstIndex[length] + int(code-d.firstCode[length])
			return d.sorted[rank], nil
		}
	}

	return 0, fmt.Errorf("huffman: invalid code, no match within max length %d", d.maxLen)
}
