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
	"sort"
	"sync"

	"github.com/dcz-project/dcz/chunk"
	"github.com/dcz-project/dcz/container"
	"github.com/dcz-project/dcz/pipeline"
)

// Verify reads every chunk of the .dcz file at path, decodes it (without
// writing any output), and checks its SHA-256 against the footer's
// recorded value. Unlike Decompress, Verify does not stop at the first
// failure: it visits every chunk and reports every one that failed, so
// a single corrupted chunk does not hide the state of the rest of the
// file. ChecksumFailures in the returned Metrics holds the sorted chunk
// indices that failed, covering both checksum mismatches and malformed
// bitstreams (invalid codes, truncation) the decoder itself rejected.
func Verify(path string, opts Options) (Metrics, error) {
	in, err := container.Open(path)

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

	var (
		mu       sync.Mutex
		failures []int
	)

	decodeTableBits := opts.resolveDecodeTableBits()
	workers := opts.resolveWorkers()

	decode := func(ctx context.Context, idx int) error {
		meta := entries[idx]

		payload, err := in.ReadChunkPayload(meta)

		if err != nil {
			mu.Lock()
			failures = append(failures, idx)
			mu.Unlock()
			return nil
		}

		if _, err := chunk.Decode(payload, meta, decodeTableBits); err != nil {
			mu.Lock()
			failures = append(failures, idx)
			mu.Unlock()
		}

		return nil
	}

	// RunDecode's first-error-sticky cancellation never triggers here
	// since decode always returns nil; every chunk gets visited.
	if err := pipeline.RunDecode(context.Background(), workers, len(entries), decode); err != nil {
		return Metrics{}, err
	}

	sort.Ints(failures)

	var compressedTotal int64

	for _, m := range entries {
		compressedTotal += int64(m.CompressedSize)
	}

	return Metrics{
		ChunkCount:       len(entries),
		OriginalSize:     int64(header.OriginalFileSize),
		CompressedSize:   compressedTotal,
		ChecksumFailures: failures,
	}, nil
}
