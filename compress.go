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

package dcz

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"time"

	"github.com/dcz-project/dcz/chunk"
	"github.com/dcz-project/dcz/container"
	"github.com/dcz-project/dcz/freq"
	"github.com/dcz-project/dcz/pipeline"
)

// Compress reads inputPath, splits it into fixed-size chunks, encodes
// each with an independently derived canonical Huffman codebook, and
// writes outputPath as a .dcz container. Chunks are encoded in
// parallel across opts.resolveWorkers() goroutines but the body region
// is always written in ascending chunk order, so the output bytes are
// identical regardless of worker count or scheduling.
func Compress(inputPath, outputPath string, opts Options) (Metrics, error) {
	in, err := os.Open(inputPath)

	if err != nil {
		return Metrics{}, WrapIOError(err, "opening input file")
	}

	defer in.Close()

	info, err := in.Stat()

	if err != nil {
		return Metrics{}, WrapIOError(err, "statting input file")
	}

	originalSize := info.Size()
	chunkSize := int64(opts.resolveChunkSize())
	chunkCount := 0

	if originalSize > 0 {
		chunkCount = int((originalSize + chunkSize - 1) / chunkSize)
	}

	out, err := container.Create(outputPath)

	if err != nil {
		return Metrics{}, WrapIOError(err, "creating output file")
	}

	out.Preallocate(originalSize)

	workers := opts.resolveWorkers()
	maxCodeLen := opts.resolveMaxCodeLen()
	var hist freq.Histogram = freq.Parallel{Workers: workers}

	metas := make([]chunk.Metadata, chunkCount)

	encode := func(ctx context.Context, idx int) ([]byte, error) {
		offset := int64(idx) * chunkSize
		size := chunkSize

		if offset+size > originalSize {
			size = originalSize - offset
		}

		data := make([]byte, size)

		if _, err := in.ReadAt(data, offset); err != nil {
			return nil, WrapIOError(err, "reading input chunk")
		}

		payload, meta, err := chunk.Encode(data, uint32(idx), uint64(offset), chunk.EncodeOptions{
			MaxCodeLen:             maxCodeLen,
			AllowStoreUncompressed: opts.AllowStoreUncompressed,
			Histogram:              hist,
		})

		if err != nil {
			return nil, newChunkWrap(ErrLengthLimitViolation, idx, err)
		}

		metas[idx] = meta

		if opts.testChunkDelay != nil {
			opts.testChunkDelay(idx)
		}

		return payload, nil
	}

	entries := make([]chunk.Metadata, 0, chunkCount)

	drain := func(idx int, payload []byte) error {
		bodyOffset, err := out.WriteBody(payload)

		if err != nil {
			return WrapIOError(err, "writing chunk body")
		}

		m := metas[idx]
		m.CompressedOffset = bodyOffset
		entries = append(entries, m)

		notifyListeners(opts.Listeners, Event{
			Type:           EvtChunkEncoded,
			ChunkIndex:     idx,
			OriginalSize:   int64(m.OriginalSize),
			CompressedSize: int64(m.CompressedSize),
			Time:           time.Now(),
		})

		return nil
	}

	if err := pipeline.RunEncode(context.Background(), workers, chunkCount, encode, drain); err != nil {
		out.Abort()
		return Metrics{}, err
	}

	header := container.Header{
		Filename:         filepath.Base(inputPath),
		OriginalFileSize: uint64(originalSize),
		OriginalMtime:    uint64(info.ModTime().UnixMilli()),
		ChunkSize:        uint32(chunkSize),
		GlobalSHA256:     globalChecksum(entries),
		ChunkCount:       uint32(len(entries)),
	}

	footerStart, err := out.WriteFooter(header, entries)

	if err != nil {
		out.Abort()
		return Metrics{}, WrapIOError(err, "writing footer")
	}

	if err := out.WriteFooterPointer(footerStart); err != nil {
		out.Abort()
		return Metrics{}, WrapIOError(err, "writing footer pointer")
	}

	if err := out.Close(); err != nil {
		return Metrics{}, WrapIOError(err, "closing output file")
	}

	var compressedSize int64

	if fi, err := os.Stat(outputPath); err == nil {
		compressedSize = fi.Size()
	}

	notifyListeners(opts.Listeners, Event{Type: EvtCompressionEnd, Time: time.Now()})

	return Metrics{
		ChunkCount:     len(entries),
		OriginalSize:   originalSize,
		CompressedSize: compressedSize,
	}, nil
}

// globalChecksum is SHA-256 over the concatenation of the per-chunk
// SHA-256s in ascending chunk index order, per this implementation's
// resolution of the ambiguous "global checksum" definition.
func globalChecksum(entries []chunk.Metadata) [32]byte {
	h := sha256.New()

	for _, m := range entries {
		h.Write(m.SHA256[:])
	}

	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

func newChunkWrap(code, chunkIndex int, cause error) *Error {
	e := NewChunkError(code, chunkIndex, cause.Error())
	e.cause = cause
	return e
}
