// Functions and methods are not thread safe.

package malloc

import "unsafe"

import "github.com/bnclabs/memalloc/api"

// Arena is a fixed capacity buffer with a monotonically increasing
// watermark. Allocations are carved off the front, the whole arena is
// reclaimed at once via Reset. No per-allocation metadata is kept,
// outstanding offsets become invalid the moment Reset is called and
// the arena does not validate that callers have stopped using them.
type Arena struct {
	used     int64 // watermark, 0 <= used <= capacity
	capacity int64
	buffer   []byte
}

// NewArena create a new memory arena of `capacity` bytes.
func NewArena(capacity int64) *Arena {
	if capacity <= 0 {
		panicerr("arena capacity %v", capacity)
	} else if capacity > Maxarenasize {
		panicerr("arena cannot exceed %v bytes (%v)", Maxarenasize, capacity)
	}
	return &Arena{capacity: capacity, buffer: make([]byte, capacity)}
}

//---- operations

// Alloc carve out the next 8-byte-aligned multiple of `n` from the
// arena and return its offset. Returns false when the arena is
// exhausted, in which case the watermark is left untouched.
func (arena *Arena) Alloc(n int64) (offset int64, ok bool) {
	if arena.buffer == nil {
		panicerr("arena released")
	} else if n <= 0 {
		panicerr("Alloc size %v", n)
	}
	size := alignup(n)
	if arena.used+size > arena.capacity {
		return 0, false
	}
	offset = arena.used
	arena.used += size
	return offset, true
}

// Bytes view into an allocated region. Callers must not read beyond
// the size they requested from Alloc.
func (arena *Arena) Bytes(offset, n int64) []byte {
	return arena.buffer[offset : offset+n : offset+n]
}

// Reset the watermark to zero in O(1). Every offset handed out so far
// becomes logically invalid, that is a caller contract and not
// runtime-checked.
func (arena *Arena) Reset() {
	if arena.buffer == nil {
		panicerr("arena released")
	}
	arena.used = 0
}

// Release implement api.Mallocer{} interface.
func (arena *Arena) Release() {
	arena.buffer, arena.used = nil, 0
}

//---- statistics and maintenance

// Info implement api.Mallocer{} interface.
func (arena *Arena) Info() (capacity, heap, alloc, overhead int64) {
	self := int64(unsafe.Sizeof(*arena))
	return arena.capacity, int64(len(arena.buffer)), arena.used, self
}

// Utilization percentage of capacity handed out to the application.
func (arena *Arena) Utilization() float64 {
	return (float64(arena.used) / float64(arena.capacity)) * 100
}

var _ api.Mallocer = (*Arena)(nil)
