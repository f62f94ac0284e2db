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

package container

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/dcz-project/dcz/chunk"
)

// Reader provides positional, concurrency-safe reads over a .dcz file:
// every read uses ReadAt, so multiple workers can read distinct
// chunks' compressed bytes in parallel over one shared file handle
// without a shared seek cursor.
type Reader struct {
	f    *os.File
	size int64
}

// Open opens path for reading and stats its size.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)

	if err != nil {
		return nil, err
	}

	info, err := f.Stat()

	if err != nil {
		f.Close()
		return nil, err
	}

	return &Reader{f: f, size: info.Size()}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// Size returns the total file size in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// ReadFooterPointer reads the last 8 bytes of the file and validates
// that the footer_start offset they encode falls within the file, at or
// before the pointer itself. footer_start == 0 is legitimate — an empty
// input has no body bytes at all, so the footer region starts at the
// very beginning of the file — and is left for ReadFooter's own magic
// check to reject if it doesn't actually hold a valid header.
func (r *Reader) ReadFooterPointer() (uint64, error) {
	if r.size < 8 {
		return 0, fmt.Errorf("container: file too short to contain a footer pointer")
	}

	var buf [8]byte

	if _, err := r.f.ReadAt(buf[:], r.size-8); err != nil {
		return 0, err
	}

	footerStart := binary.BigEndian.Uint64(buf[:])

	if footerStart > uint64(r.size-8) {
		return 0, fmt.Errorf("container: footer pointer %d out of bounds for file size %d", footerStart, r.size)
	}

	return footerStart, nil
}

// ReadFooter reads and parses the footer region starting at
// footerStart, returning the file-level Header and the parsed chunk
// metadata array (in the order entries were stored, which encode
// always writes in ascending chunk_index order).
func (r *Reader) ReadFooter(footerStart uint64) (Header, []chunk.Metadata, error) {
	footerLen := uint64(r.size-8) - footerStart
	buf := make([]byte, footerLen)

	if _, err := r.f.ReadAt(buf, int64(footerStart)); err != nil {
		return Header{}, nil, err
	}

	header, consumed, err := unmarshalHeader(buf)

	if err != nil {
		return Header{}, nil, err
	}

	rest := buf[consumed:]
	expectedEntriesLen := int(header.ChunkCount) * metadataEntrySize

	if len(rest) != expectedEntriesLen {
		return Header{}, nil, fmt.Errorf("container: chunk_count %d does not match footer size (expected %d bytes of entries, got %d)", header.ChunkCount, expectedEntriesLen, len(rest))
	}

	entries := make([]chunk.Metadata, header.ChunkCount)

	for i := range entries {
		m, err := unmarshalMetadata(rest[i*metadataEntrySize : (i+1)*metadataEntrySize])

		if err != nil {
			return Header{}, nil, err
		}

		entries[i] = m
	}

	return header, entries, nil
}

// ReadChunkPayload reads a chunk's compressed bytes from the body
// region at its recorded compressed_offset.
func (r *Reader) ReadChunkPayload(m chunk.Metadata) ([]byte, error) {
	if m.CompressedSize == 0 {
		return nil, nil
	}

	buf := make([]byte, m.CompressedSize)

	if _, err := r.f.ReadAt(buf, int64(m.CompressedOffset)); err != nil {
		return nil, err
	}

	return buf, nil
}
