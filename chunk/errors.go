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

import "errors"

// Sentinel errors a caller (the pipeline or root package) classifies
// with errors.Is and re-attributes to a chunk index it already knows,
// avoiding an import cycle back to the root error type.
var (
	ErrChecksumMismatch   = errors.New("chunk: checksum mismatch")
	ErrInvalidCode        = errors.New("chunk: invalid huffman code")
	ErrTruncatedBitstream = errors.New("chunk: truncated bitstream")
)
