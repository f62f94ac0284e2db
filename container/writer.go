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
	"os"
	"sync"

	"github.com/coreos/pkg/capnslog"
	"golang.org/x/sys/unix"

	"github.com/dcz-project/dcz/chunk"
)

var plog = capnslog.NewPackageLogger("github.com/dcz-project/dcz", "container")

var fallocateWarnOnce sync.Once

// Writer appends a .dcz body sequentially, then a footer and footer
// pointer. The body is written in strict ascending chunk_index order:
// callers drive it from pipeline.RunEncode's DrainFunc, which already
// guarantees that order, so Writer never needs to seek during the
// body phase.
type Writer struct {
	f      *os.File
	offset uint64
}

// Create opens path for writing, truncating any existing file.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)

	if err != nil {
		return nil, err
	}

	return &Writer{f: f}, nil
}

// Preallocate hints the filesystem to reserve sizeHint bytes up front
// for the body+footer region, reducing fragmentation for large
// outputs.
func (w *Writer) Preallocate(sizeHint int64) {
	Preallocate(w.f, sizeHint)
}

// Preallocate hints the filesystem to reserve sizeHint bytes for f. It
// is advisory: platforms or filesystems that don't support fallocate
// get a single process-wide warning and otherwise proceed unaffected,
// since a file's real length is whatever was actually written by the
// time it's closed (the reservation uses FALLOC_FL_KEEP_SIZE, so it
// never changes the reported file size). Shared by Writer (the .dcz
// output) and the decompressed-output file, both of which know their
// final size (or an estimate of it) before the first byte is written.
func Preallocate(f *os.File, sizeHint int64) {
	if sizeHint <= 0 {
		return
	}

	if err := unix.Fallocate(int(f.Fd()), unix.FALLOC_FL_KEEP_SIZE, 0, sizeHint); err != nil {
		fallocateWarnOnce.Do(func() {
			plog.Warningf("fallocate unsupported on this filesystem, proceeding without preallocation: %v", err)
		})
	}
}

// WriteBody appends payload to the body region and returns the byte
// offset (relative to file start, i.e. compressed_offset) at which it
// was written.
func (w *Writer) WriteBody(payload []byte) (uint64, error) {
	offset := w.offset

	if len(payload) == 0 {
		return offset, nil
	}

	if _, err := w.f.Write(payload); err != nil {
		return offset, err
	}

	w.offset += uint64(len(payload))
	return offset, nil
}

// WriteFooter serializes header and entries (already expected in
// ascending ChunkIndex order) and appends them to the file. It returns
// the offset at which the footer region begins, for the caller to pass
// to WriteFooterPointer.
func (w *Writer) WriteFooter(header Header, entries []chunk.Metadata) (uint64, error) {
	footerStart := w.offset
	buf := marshalHeader(header)

	for _, m := range entries {
		buf = append(buf, marshalMetadata(m)...)
	}

	n, err := w.f.Write(buf)
	w.offset += uint64(n)
	return footerStart, err
}

// WriteFooterPointer appends the final 8-byte big-endian footer start
// offset, the file's very last bytes.
func (w *Writer) WriteFooterPointer(footerStart uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], footerStart)
	_, err := w.f.Write(buf[:])
	return err
}

// Abort closes and removes the output file, leaving no partial result
// behind. Called when the pipeline's first-error-sticky cancellation
// fires.
func (w *Writer) Abort() error {
	name := w.f.Name()
	closeErr := w.f.Close()
	removeErr := os.Remove(name)

	if closeErr != nil {
		return closeErr
	}

	return removeErr
}

// Close flushes and closes the output file.
func (w *Writer) Close() error {
	return w.f.Close()
}
