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

package chunk

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/dcz-project/dcz/bitstream"
	"github.com/dcz-project/dcz/huffman"
)

// Decode reconstructs the original chunk bytes from payload and meta,
// verifying the chunk's SHA-256 before returning. Errors wrap one of
// ErrChecksumMismatch, ErrInvalidCode or ErrTruncatedBitstream, except
// for a code length above 32 in meta, which is rejected with an error
// wrapping none of them; the caller (which already knows the chunk
// index from meta) is expected to attribute these to the right chunk
// when re-raising.
func Decode(payload []byte, meta Metadata, decodeTableBits int) ([]byte, error) {
	if meta.OriginalSize == 0 {
		return nil, verifyChecksum(nil, meta)
	}

	alphabetSize := 0

	for _, l := range meta.CodeLengths {
		if l > 0 {
			alphabetSize++
		}
	}

	if alphabetSize == 0 {
		return nil, fmt.Errorf("chunk %d: %w: empty alphabet for non-empty chunk", meta.ChunkIndex, ErrInvalidCode)
	}

	if meta.Stored {
		if uint32(len(payload)) != meta.OriginalSize {
			return nil, fmt.Errorf("chunk %d: %w: stored payload length %d != original size %d", meta.ChunkIndex, ErrTruncatedBitstream, len(payload), meta.OriginalSize)
		}

		out := make([]byte, len(payload))
		copy(out, payload)
		return out, verifyChecksum(out, meta)
	}

	// General Huffman path, including the degenerate single-symbol
	// alphabet: the encoder always emits a real length-1 codeword per
	// symbol in that case (see huffman.Encoder.Encode), so decoding
	// still reads and validates every bit of payload instead of
	// trusting CodeLengths/OriginalSize alone. A corrupted bit here
	// flips a codeword to one with no match, surfacing as
	// ErrInvalidCode rather than silently reproducing the wrong bytes.
	var lengths [huffman.MaxSymbols]uint8
	maxLen := 0

	for s, l := range meta.CodeLengths {
		if l > 32 {
			return nil, fmt.Errorf("chunk %d: code length %d for symbol %d exceeds 32", meta.ChunkIndex, l, s)
		}

		lengths[s] = uint8(l)

		if int(l) > maxLen {
			maxLen = int(l)
		}
	}

	dec, err := huffman.NewDecoder(lengths, maxLen, decodeTableBits)

	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w: %v", meta.ChunkIndex, ErrInvalidCode, err)
	}

	out := make([]byte, meta.OriginalSize)
	r := bitstream.NewReader(payload)

	if err := dec.Decode(r, out); err != nil {
		return nil, fmt.Errorf("chunk %d: %w: %v", meta.ChunkIndex, ErrInvalidCode, err)
	}

	if r.Overrun() {
		return nil, fmt.Errorf("chunk %d: %w: ran out of bitstream bytes before decoding %d symbols", meta.ChunkIndex, ErrTruncatedBitstream, meta.OriginalSize)
	}

	return out, verifyChecksum(out, meta)
}

func verifyChecksum(data []byte, meta Metadata) error {
	sum := sha256.Sum256(data)

	if !bytes.Equal(sum[:], meta.SHA256[:]) {
		return fmt.Errorf("chunk %d: %w", meta.ChunkIndex, ErrChecksumMismatch)
	}

	return nil
}
