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
	"crypto/sha256"
	"fmt"

	"github.com/dcz-project/dcz/bitstream"
	"github.com/dcz-project/dcz/freq"
	"github.com/dcz-project/dcz/huffman"
)

// EncodeOptions carries the per-chunk knobs the caller has already
// resolved from dcz.Options; chunk stays free of a dependency on the
// root package so the root package can depend on chunk instead.
type EncodeOptions struct {
	MaxCodeLen             int
	AllowStoreUncompressed bool
	Histogram              freq.Histogram
}

// Encode derives a canonical Huffman codebook for data, packs data
// into a bitstream with it, and returns the encoded payload alongside
// the chunk's Metadata (SHA-256, code lengths, sizes). chunkIndex and
// originalOffset are recorded verbatim into the returned Metadata;
// CompressedOffset is left zero for the caller to fill in once the
// chunk's position in the body region is known. When no code fits
// within opts.MaxCodeLen and AllowStoreUncompressed is set, the chunk
// is stored verbatim instead of returning an error.
func Encode(data []byte, chunkIndex uint32, originalOffset uint64, opts EncodeOptions) ([]byte, Metadata, error) {
	meta := Metadata{
		ChunkIndex:     chunkIndex,
		OriginalOffset: originalOffset,
		OriginalSize:   uint32(len(data)),
		SHA256:         sha256.Sum256(data),
	}

	hist := opts.Histogram

	if hist == nil {
		hist = freq.Scalar{}
	}

	counts := countWithFallback(hist, data)
	lengths, alphabetSize, err := huffman.DeriveLengths(counts, opts.MaxCodeLen)

	if err != nil {
		if !opts.AllowStoreUncompressed {
			return nil, meta, fmt.Errorf("chunk %d: %w", chunkIndex, err)
		}

		// No length table fits MaxCodeLen: keep the chunk verbatim and
		// record length 8 for every symbol present.
		for s, c := range counts {
			if c > 0 {
				meta.CodeLengths[s] = 8
			}
		}

		meta.Stored = true
		meta.CompressedSize = uint32(len(data))
		return data, meta, nil
	}

	for s, l := range lengths {
		meta.CodeLengths[s] = uint16(l)
	}

	if alphabetSize == 0 {
		// Empty chunk: no bytes, no bits.
		meta.CompressedSize = 0
		return nil, meta, nil
	}

	enc, err := huffman.NewEncoder(lengths, opts.MaxCodeLen)

	if err != nil {
		return nil, meta, fmt.Errorf("chunk %d: %w", chunkIndex, err)
	}

	w := bitstream.NewWriter(len(data))
	enc.Encode(w, data)
	payload, _ := w.Finish()

	if opts.AllowStoreUncompressed && len(payload) >= len(data) {
		meta.Stored = true
		meta.CompressedSize = uint32(len(data))
		return data, meta, nil
	}

	meta.CompressedSize = uint32(len(payload))
	return payload, meta, nil
}

// countWithFallback runs hist.Count, retrying once on freq.Scalar if
// the caller-supplied backend panics. A misbehaving Histogram must not
// take down an otherwise-healthy compression run.
func countWithFallback(hist freq.Histogram, data []byte) (counts [256]uint32) {
	defer func() {
		if r := recover(); r != nil {
			warnHistogramFallback(r)
			counts = freq.Scalar{}.Count(data)
		}
	}()

	return hist.Count(data)
}
