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

package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DecodeFunc decodes one chunk and writes its bytes at their
// original_offset itself (typically via a positional WriteAt), since
// decode output order needs no barrier: unlike the encode body, which
// must grow contiguously, every decoded chunk's destination offset is
// already known from its metadata before decoding starts.
type DecodeFunc func(ctx context.Context, index int) error

// RunDecode fans chunks [0, chunkCount) out across up to workers
// concurrent calls to decode. Because each DecodeFunc writes directly
// to its own offset, there is no drain barrier: chunks may finish (and
// be written) in any order. On the first error, RunDecode stops
// admitting new chunks, waits for in-flight ones to finish, and
// returns that first error.
func RunDecode(ctx context.Context, workers, chunkCount int, decode DecodeFunc) error {
	if chunkCount == 0 {
		return nil
	}

	if workers < 1 {
		workers = 1
	}

	sem := semaphore.NewWeighted(int64(workers))
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < chunkCount; i++ {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		idx := i

		g.Go(func() error {
			defer sem.Release(1)
			return decode(gctx, idx)
		})
	}

	return g.Wait()
}
