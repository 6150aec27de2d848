// Package api define types and interfaces common to all allocator
// strategies implemented by this library.
package api

// Mallocer interface for custom memory management. Every allocator
// strategy, whatever its reclamation granularity, satisfies this
// contract.
type Mallocer interface {
	// Info of memory accounting for this allocator. `capacity` is the
	// maximum memory this allocator will manage, `heap` is memory
	// obtained from the OS, `alloc` is memory handed out to the
	// application and `overhead` is the cost of book-keeping.
	Info() (capacity, heap, alloc, overhead int64)

	// Release this allocator and all its resources. No operation is
	// defined on an allocator after Release.
	Release()
}
