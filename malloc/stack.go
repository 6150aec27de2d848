// Functions and methods are not thread safe.

package malloc

import "unsafe"

import "github.com/bnclabs/memalloc/api"

// Stack is a bump allocator over a heap backed buffer, structurally
// the same as Arena but with markers for LIFO scoped reclamation.
// Take a Marker before a batch of temporary allocations and roll back
// to it with Freetomarker once the batch is done.
type Stack struct {
	used       int64 // watermark, 0 <= used <= capacity
	capacity   int64
	generation int64 // bumped on Reset and Release
	buffer     []byte
}

// Marker is a saved watermark. Markers must be rolled back in the
// reverse order they were taken, rollbacks violating that discipline
// are detected and refused.
type Marker struct {
	used       int64
	generation int64
}

// NewStack create a new stack allocator backed by a `capacity` byte
// buffer.
func NewStack(capacity int64) (*Stack, error) {
	if capacity <= 0 {
		panicerr("stack capacity %v", capacity)
	} else if capacity > Maxarenasize {
		return nil, api.ErrorOutofMemory
	}
	stack := &Stack{capacity: capacity, buffer: make([]byte, capacity)}
	return stack, nil
}

//---- operations

// Alloc bump the watermark by the next 8-byte-aligned multiple of `n`
// and return a view over the carved region. Returns false when the
// stack is exhausted, the watermark is left untouched.
func (stack *Stack) Alloc(n int64) ([]byte, bool) {
	if stack.buffer == nil {
		panicerr("stack released")
	} else if n <= 0 {
		panicerr("Alloc size %v", n)
	}
	size := alignup(n)
	if stack.used+size > stack.capacity {
		return nil, false
	}
	block := stack.buffer[stack.used : stack.used+n : stack.used+n]
	stack.used += size
	return block, true
}

// Marker capture the current watermark.
func (stack *Stack) Marker() Marker {
	if stack.buffer == nil {
		panicerr("stack released")
	}
	return Marker{used: stack.used, generation: stack.generation}
}

// Freetomarker roll the watermark back to `marker`, reclaiming
// everything allocated since the marker was taken. Returns
// api.ErrorStaleMarker when the marker was taken before the last
// Reset, or when its span was already reclaimed by an earlier
// rollback.
func (stack *Stack) Freetomarker(marker Marker) error {
	if stack.buffer == nil {
		panicerr("stack released")
	}
	if marker.generation != stack.generation || marker.used > stack.used {
		return api.ErrorStaleMarker
	}
	stack.used = marker.used
	return nil
}

// Reset the watermark to zero, invalidating every outstanding marker.
func (stack *Stack) Reset() {
	if stack.buffer == nil {
		panicerr("stack released")
	}
	stack.used, stack.generation = 0, stack.generation+1
}

// Release implement api.Mallocer{} interface.
func (stack *Stack) Release() {
	stack.buffer, stack.used = nil, 0
	stack.generation++
}

//---- statistics and maintenance

// Info implement api.Mallocer{} interface.
func (stack *Stack) Info() (capacity, heap, alloc, overhead int64) {
	self := int64(unsafe.Sizeof(*stack))
	return stack.capacity, int64(len(stack.buffer)), stack.used, self
}

// Utilization percentage of capacity handed out to the application.
func (stack *Stack) Utilization() float64 {
	return (float64(stack.used) / float64(stack.capacity)) * 100
}

var _ api.Mallocer = (*Stack)(nil)
