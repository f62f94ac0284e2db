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
	"errors"
	"os"
	"time"

	"github.com/dcz-project/dcz/chunk"
	"github.com/dcz-project/dcz/container"
	"github.com/dcz-project/dcz/pipeline"
)

// Decompress reads a .dcz container at inputPath and writes the
// reconstructed original bytes to outputPath. Chunks are decoded in
// parallel; each writes directly to its own original_offset in the
// output file, so completion order never affects the result.
func Decompress(inputPath, outputPath string, opts Options) (Metrics, error) {
	in, err := container.Open(inputPath)

	if err != nil {
		return Metrics{}, WrapIOError(err, "opening .dcz input")
	}

	defer in.Close()

	footerStart, err := in.ReadFooterPointer()

	if err != nil {
		return Metrics{}, NewError(ErrBadFormat, err.Error())
	}

	header, entries, err := in.ReadFooter(footerStart)

	if err != nil {
		return Metrics{}, NewError(ErrBadFormat, err.Error())
	}

	if globalChecksum(entries) != header.GlobalSHA256 {
		return Metrics{}, NewError(ErrChecksumMismatch, "footer global checksum does not match chunk metadata")
	}

	out, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)

	if err != nil {
		return Metrics{}, WrapIOError(err, "creating output file")
	}

	container.Preallocate(out, int64(header.OriginalFileSize))

	decodeTableBits := opts.resolveDecodeTableBits()
	workers := opts.resolveWorkers()

	decode := func(ctx context.Context, idx int) error {
		meta := entries[idx]

		payload, err := in.ReadChunkPayload(meta)

		if err != nil {
			return newChunkWrap(ErrIO, idx, err)
		}

		data, err := chunk.Decode(payload, meta, decodeTableBits)

		if err != nil {
			return classifyChunkError(idx, err)
		}

		if len(data) > 0 {
			if _, err := out.WriteAt(data, int64(meta.OriginalOffset)); err != nil {
				return newChunkWrap(ErrIO, idx, err)
			}
		}

		notifyListeners(opts.Listeners, Event{
			Type:           EvtChunkDecoded,
			ChunkIndex:     idx,
			OriginalSize:   int64(meta.OriginalSize),
			CompressedSize: int64(meta.CompressedSize),
			Time:           time.Now(),
		})

		return nil
	}

	if err := pipeline.RunDecode(context.Background(), workers, len(entries), decode); err != nil {
		out.Close()
		os.Remove(outputPath)
		return Metrics{}, err
	}

	if err := out.Truncate(int64(header.OriginalFileSize)); err != nil {
		out.Close()
		os.Remove(outputPath)
		return Metrics{}, WrapIOError(err, "truncating output file to original size")
	}

	if err := out.Close(); err != nil {
		return Metrics{}, WrapIOError(err, "closing output file")
	}

	notifyListeners(opts.Listeners, Event{Type: EvtDecompressionEnd, Time: time.Now()})

	var compressedTotal int64

	for _, m := range entries {
		compressedTotal += int64(m.CompressedSize)
	}

	return Metrics{
		ChunkCount:     len(entries),
		OriginalSize:   int64(header.OriginalFileSize),
		CompressedSize: compressedTotal,
	}, nil
}

// classifyChunkError maps a chunk-package sentinel error to the
// matching root Error code, attributing it to chunkIndex.
func classifyChunkError(chunkIndex int, err error) *Error {
	switch {
	case errors.Is(err, chunk.ErrChecksumMismatch):
		return newChunkWrap(ErrChecksumMismatch, chunkIndex, err)
	case errors.Is(err, chunk.ErrInvalidCode):
		return newChunkWrap(ErrInvalidCode, chunkIndex, err)
	case errors.Is(err, chunk.ErrTruncatedBitstream):
		return newChunkWrap(ErrTruncatedBitstream, chunkIndex, err)
	default:
		return newChunkWrap(ErrBadFormat, chunkIndex, err)
	}
}
