/*
Copyright 2011-2024 Frederic Langlet
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
	"fmt"
	"time"
)

// Event types pushed to Listeners. Never on the hot path: the
// orchestrator samples one event per completed chunk.
const (
	EvtChunkEncoded = iota
	EvtChunkDecoded
	EvtCompressionEnd
	EvtDecompressionEnd
)

// Event describes a single pipeline progress sample.
type Event struct {
	Type          int
	ChunkIndex    int
	OriginalSize  int64
	CompressedSize int64
	Time          time.Time
}

func (e Event) String() string {
	return fmt.Sprintf("{chunk=%d orig=%d comp=%d}", e.ChunkIndex, e.OriginalSize, e.CompressedSize)
}

// Listener receives progress Events. Implementations must not block;
// the orchestrator notifies synchronously from worker goroutines.
type Listener interface {
	ProcessEvent(evt Event)
}

func notifyListeners(listeners []Listener, evt Event) {
	for _, l := range listeners {
		l.ProcessEvent(evt)
	}
}
