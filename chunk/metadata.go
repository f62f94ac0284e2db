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

// Package chunk implements the per-chunk codec: encoding a slice of
// the input file into a self-describing compressed unit, and
// decoding it back, verifying its checksum along the way. Chunks are
// the unit of work the pipeline package hands to its worker pool and
// the unit the container package indexes in its footer.
package chunk

// Metadata describes one encoded chunk, mirroring the on-disk
// per-chunk footer entry byte for byte (see container.metadataEntrySize).
type Metadata struct {
	ChunkIndex       uint32
	OriginalOffset   uint64
	OriginalSize     uint32
	CompressedOffset uint64
	CompressedSize   uint32
	SHA256           [32]byte
	CodeLengths      [256]uint16

	// Stored marks a chunk the encoder chose to keep verbatim because
	// Huffman coding would not have shrunk it. This is the reserved
	// flag byte documented as this implementation's resolution of the
	// store-uncompressed ambiguity: a dedicated byte rather than an
	// overloaded code length value.
	Stored bool
}
