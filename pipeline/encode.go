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

// Package pipeline drives chunk_count independent units of work
// (encode or decode) through a bounded worker pool, built on
// golang.org/x/sync's errgroup+semaphore pipeline idiom rather than
// kanzi-go's hand-rolled atomic-spin WaitGroup: the result is the same
// bounded-admission, first-error-sticky pool, expressed with fewer
// moving parts.
package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// EncodeFunc produces the encoded payload for chunk index. It must not
// retain ctx past return and must be safe to call concurrently for
// distinct indices.
type EncodeFunc func(ctx context.Context, index int) (payload []byte, err error)

// DrainFunc consumes one chunk's payload. RunEncode calls it only once
// the prefix 0..index is fully available, strictly in ascending index
// order — so a DrainFunc that appends to a file body never needs to
// seek.
type DrainFunc func(index int, payload []byte) error

// RunEncode fans chunks [0, chunkCount) out across up to workers
// concurrent calls to encode, then drains completed payloads through
// drain in ascending index order as soon as each contiguous prefix is
// ready. On the first error from either encode or drain, RunEncode
// stops admitting new chunks, lets in-flight ones finish their
// encode() call (chunks are never aborted mid-encode), and returns
// that first error.
func RunEncode(ctx context.Context, workers, chunkCount int, encode EncodeFunc, drain DrainFunc) error {
	if chunkCount == 0 {
		return nil
	}

	if workers < 1 {
		workers = 1
	}

	sem := semaphore.NewWeighted(int64(workers))
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	pending := make(map[int][]byte, workers)
	next := 0

	drainReady := func() error {
		for {
			payload, ok := pending[next]

			if !ok {
				return nil
			}

			if err := drain(next, payload); err != nil {
				return err
			}

			delete(pending, next)
			next++
		}
	}

	for i := 0; i < chunkCount; i++ {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		idx := i

		g.Go(func() error {
			defer sem.Release(1)

			payload, err := encode(gctx, idx)

			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			pending[idx] = payload
			return drainReady()
		})
	}

	return g.Wait()
}
