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

package freq

import (
	"sync"

	"github.com/dcz-project/dcz/internal"
)

// minParallelBlock is the smallest block size for which splitting
// across goroutines is worth the synchronization overhead.
const minParallelBlock = 64 * 1024

// Parallel counts a block's histogram by splitting it into contiguous
// spans, one per worker, each reduced with Scalar, then merging the
// per-span partials. Merging is plain integer addition over the 256
// bins in a fixed left-to-right span order, so the result is bit-exact
// identical to Scalar.Count on the same bytes regardless of how many
// workers ran or how the OS scheduled them.
type Parallel struct {
	// Workers bounds the goroutine fan-out. 0 (or 1) degrades to Scalar.
	Workers int
}

// Count implements Histogram.
func (p Parallel) Count(block []byte) (counts [256]uint32) {
	workers := p.Workers

	if workers < 1 {
		workers = 1
	}

	if len(block) < minParallelBlock || workers == 1 {
		return Scalar{}.Count(block)
	}

	if workers > len(block) {
		workers = len(block)
	}

	spans := make([]uint, workers)
	spans, err := internal.ComputeJobsPerTask(spans, uint(len(block)), uint(workers))

	if err != nil {
		return Scalar{}.Count(block)
	}

	partials := make([][256]uint32, workers)
	var wg sync.WaitGroup
	off := 0

	for i := 0; i < workers; i++ {
		n := int(spans[i])
		lo, hi := off, off+n
		off = hi

		if n == 0 {
			continue
		}

		wg.Add(1)

		go func(idx, lo, hi int) {
			defer wg.Done()
			partials[idx] = Scalar{}.Count(block[lo:hi])
		}(i, lo, hi)
	}

	wg.Wait()

	for _, part := range partials {
		for b := 0; b < 256; b++ {
			counts[b] += part[b]
		}
	}

	return counts
}
