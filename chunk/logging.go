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

package chunk

import (
	"sync"

	"github.com/coreos/pkg/capnslog"
)

var plog = capnslog.NewPackageLogger("github.com/dcz-project/dcz", "chunk")

// histogramFallbackWarnOnce ensures a caller-supplied Histogram that
// panics gets exactly one warning logged for the whole run, not one
// per chunk.
var histogramFallbackWarnOnce sync.Once

func warnHistogramFallback(recovered interface{}) {
	histogramFallbackWarnOnce.Do(func() {
		plog.Warningf("histogram backend panicked (%v), falling back to freq.Scalar for each chunk it fails on", recovered)
	})
}
