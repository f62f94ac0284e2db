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

// Package container reads and writes the .dcz on-disk format: a body
// region of compressed chunk bitstreams in ascending index order,
// followed by a footer region (file-level metadata plus a per-chunk
// metadata array), followed by an 8-byte footer pointer.
package container

import (
	"encoding/binary"
	"fmt"

	"github.com/dcz-project/dcz/chunk"
)

// Magic identifies a .dcz file: ASCII "DCZF".
const Magic uint32 = 0x44435A46

// FormatVersion is the only version this implementation produces or
// accepts.
const FormatVersion uint32 = 1

// metadataEntrySize is 572 (the literal spec size) plus one reserved
// byte this implementation uses to flag a verbatim-stored chunk,
// rather than overloading a code-length value. See DESIGN.md for the
// rationale; this is a deliberate, documented deviation.
const metadataEntrySize = 573

// Header carries the file-level fields preceding the chunk metadata
// array in the footer region.
type Header struct {
	Filename         string
	OriginalFileSize uint64
	OriginalMtime    uint64 // unix millis
	ChunkSize        uint32
	GlobalSHA256     [32]byte
	ChunkCount       uint32
}

func (h Header) encodedSize() int {
	return 4 + 4 + 4 + len(h.Filename) + 8 + 8 + 4 + 32 + 4
}

func marshalHeader(h Header) []byte {
	buf := make([]byte, h.encodedSize())
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	binary.BigEndian.PutUint32(buf[4:8], FormatVersion)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(h.Filename)))
	off := 12
	copy(buf[off:off+len(h.Filename)], h.Filename)
	off += len(h.Filename)
	binary.BigEndian.PutUint64(buf[off:off+8], h.OriginalFileSize)
	off += 8
	binary.BigEndian.PutUint64(buf[off:off+8], h.OriginalMtime)
	off += 8
	binary.BigEndian.PutUint32(buf[off:off+4], h.ChunkSize)
	off += 4
	copy(buf[off:off+32], h.GlobalSHA256[:])
	off += 32
	binary.BigEndian.PutUint32(buf[off:off+4], h.ChunkCount)
	return buf
}

// unmarshalHeader parses the header portion from buf, returning the
// header and the number of bytes consumed.
func unmarshalHeader(buf []byte) (Header, int, error) {
	if len(buf) < 4 {
		return Header{}, 0, fmt.Errorf("container: footer too short for header")
	}

	magic := binary.BigEndian.Uint32(buf[0:4])

	if magic != Magic {
		return Header{}, 0, fmt.Errorf("container: bad magic %08x", magic)
	}

	if len(buf) < 12 {
		return Header{}, 0, fmt.Errorf("container: footer too short for header")
	}

	version := binary.BigEndian.Uint32(buf[4:8])

	if version != FormatVersion {
		return Header{}, 0, fmt.Errorf("container: unsupported format version %d", version)
	}

	filenameLen := int(binary.BigEndian.Uint32(buf[8:12]))
	off := 12

	if len(buf) < off+filenameLen+8+8+4+32+4 {
		return Header{}, 0, fmt.Errorf("container: footer too short for header with filename length %d", filenameLen)
	}

	h := Header{}
	h.Filename = string(buf[off : off+filenameLen])
	off += filenameLen
	h.OriginalFileSize = binary.BigEndian.Uint64(buf[off : off+8])
	off += 8
	h.OriginalMtime = binary.BigEndian.Uint64(buf[off : off+8])
	off += 8
	h.ChunkSize = binary.BigEndian.Uint32(buf[off : off+4])
	off += 4
	copy(h.GlobalSHA256[:], buf[off:off+32])
	off += 32
	h.ChunkCount = binary.BigEndian.Uint32(buf[off : off+4])
	off += 4

	return h, off, nil
}

func marshalMetadata(m chunk.Metadata) []byte {
	buf := make([]byte, metadataEntrySize)
	binary.BigEndian.PutUint32(buf[0:4], m.ChunkIndex)
	binary.BigEndian.PutUint64(buf[4:12], m.OriginalOffset)
	binary.BigEndian.PutUint32(buf[12:16], m.OriginalSize)
	binary.BigEndian.PutUint64(buf[16:24], m.CompressedOffset)
	binary.BigEndian.PutUint32(buf[24:28], m.CompressedSize)
	copy(buf[28:60], m.SHA256[:])

	for i, l := range m.CodeLengths {
		binary.BigEndian.PutUint16(buf[60+i*2:62+i*2], l)
	}

	if m.Stored {
		buf[572] = 1
	}

	return buf
}

func unmarshalMetadata(buf []byte) (chunk.Metadata, error) {
	if len(buf) < metadataEntrySize {
		return chunk.Metadata{}, fmt.Errorf("container: truncated chunk metadata entry")
	}

	var m chunk.Metadata
	m.ChunkIndex = binary.BigEndian.Uint32(buf[0:4])
	m.OriginalOffset = binary.BigEndian.Uint64(buf[4:12])
	m.OriginalSize = binary.BigEndian.Uint32(buf[12:16])
	m.CompressedOffset = binary.BigEndian.Uint64(buf[16:24])
	m.CompressedSize = binary.BigEndian.Uint32(buf[24:28])
	copy(m.SHA256[:], buf[28:60])

	for i := 0; i < 256; i++ {
		m.CodeLengths[i] = binary.BigEndian.Uint16(buf[60+i*2 : 62+i*2])
	}

	m.Stored = buf[572] != 0
	return m, nil
}
