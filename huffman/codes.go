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
)

// CanonicalCodes assigns a canonical codeword to every symbol with a
// non-zero length, per the standard recurrence: symbols are ordered
// by (length, symbol) ascending, the first code at the shortest length
// is 0, and each subsequent code at the same length is the previous
// plus one; moving to a longer length left-shifts by the length delta.
// Symbols with length 0 get code 0 but are never looked up (callers
// key on length to know whether a symbol belongs to the alphabet).
func CanonicalCodes(lengths [MaxSymbols]uint8, maxCodeLen int) (codes [MaxSymbols]uint16, err error) {
	type entry struct {
		symbol int
		length uint8
	}

	var entries []entry

	for s := 0; s < MaxSymbols; s++ {
		if lengths[s] == 0 {
			continue
		}

		if int(lengths[s]) > maxCodeLen {
			return codes, fmt.Errorf("huffman: symbol %d has length %d exceeding max %d", s, lengths[s], maxCodeLen)
		}

		entries = append(entries, entry{symbol: s, length: lengths[s]})
	}

	if len(entries) == 0 {
		return codes, nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].length != entries[j].length {
			return entries[i].length < entries[j].length
		}

		return entries[i].symbol < entries[j].symbol
	})

	code := uint16(0)
	curLen := entries[0].length

	for _, e := range entries {
		if e.length > curLen {
			code <<= e.length - curLen
			curLen = e.length
		}

		codes[e.symbol] = code
		code++
	}

	return codes, nil
}

// KraftSum returns the Kraft sum Σ 2^-length[s] scaled by 2^maxCodeLen,
// i.e. Σ 2^(maxCodeLen-length[s]). A valid prefix-free length
// assignment satisfies KraftSum <= 2^maxCodeLen.
func KraftSum(lengths [MaxSymbols]uint8, maxCodeLen int) uint64 {
	var sum uint64

	for s := 0; s < MaxSymbols; s++ {
		if lengths[s] == 0 {
			continue
		}

		sum += uint64(1) << uint(maxCodeLen-int(lengths[s]))
	}

	return sum
}
