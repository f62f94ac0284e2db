package dcz

import "runtime"

const (
	// DefaultChunkSize is the default chunk granularity: 16 MiB.
	DefaultChunkSize = 16 * 1024 * 1024

	// DefaultMaxCodeLen is the default length limit applied to derived
	// Huffman code lengths.
	DefaultMaxCodeLen = 16

	// DefaultDecodeTableBits is the width of the direct decode lookup
	// table. Codes longer than this fall back to a tree walk.
	DefaultDecodeTableBits = 12

	minWorkers = 2
	maxWorkers = 8
)

// Options configures a Compress/Decompress/Verify call. The zero value
// is not valid; use NewOptions to get a struct populated with defaults.
type Options struct {
	// ChunkSizeBytes is the chunk granularity. Default DefaultChunkSize.
	ChunkSizeBytes uint32

	// WorkerCount is the thread pool size. 0 auto-clamps to
	// [minWorkers, maxWorkers] based on runtime.NumCPU().
	WorkerCount int

	// MaxCodeLen is the length limit applied to derived code lengths
	// after tree build. Must be <= DecodeTableBits*2 in practice, but
	// this implementation supports MaxCodeLen > DecodeTableBits via a
	// fallback tree-walk decode path (see huffman package).
	MaxCodeLen int

	// DecodeTableBits is the direct-lookup table width.
	DecodeTableBits int

	// AllowStoreUncompressed lets the encoder store a chunk verbatim
	// when Huffman coding would not shrink it.
	AllowStoreUncompressed bool

	// Listeners receive progress Events. Optional.
	Listeners []Listener

	// testChunkDelay, when set, is invoked by Compress immediately
	// before a chunk's encode closure returns, letting tests force a
	// specific chunk completion order to verify that the body region's
	// ascending-index drain barrier is scheduling-independent. Never
	// set outside tests.
	testChunkDelay func(chunkIndex int)
}

// NewOptions returns Options populated with documented defaults.
func NewOptions() Options {
	return Options{
		ChunkSizeBytes:         DefaultChunkSize,
		WorkerCount:            0,
		MaxCodeLen:             DefaultMaxCodeLen,
		DecodeTableBits:        DefaultDecodeTableBits,
		AllowStoreUncompressed: true,
	}
}

func (o Options) resolveWorkers() int {
	if o.WorkerCount > 0 {
		if o.WorkerCount > maxWorkers {
			return maxWorkers
		}
		return o.WorkerCount
	}

	n := runtime.NumCPU()

	if n < minWorkers {
		return minWorkers
	}

	if n > maxWorkers {
		return maxWorkers
	}

	return n
}

func (o Options) resolveChunkSize() uint32 {
	if o.ChunkSizeBytes == 0 {
		return DefaultChunkSize
	}

	return o.ChunkSizeBytes
}

func (o Options) resolveMaxCodeLen() int {
	if o.MaxCodeLen <= 0 {
		return DefaultMaxCodeLen
	}

	return o.MaxCodeLen
}

func (o Options) resolveDecodeTableBits() int {
	if o.DecodeTableBits <= 0 {
		return DefaultDecodeTableBits
	}

	return o.DecodeTableBits
}

// Metrics summarizes the outcome of a Compress, Decompress or Verify call.
type Metrics struct {
	ChunkCount       int
	OriginalSize     int64
	CompressedSize   int64
	ChecksumFailures []int // chunk indices, only populated by Verify
}
