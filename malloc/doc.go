// Package malloc supplies custom memory management for applications
// whose allocation behaviour is known apriori, with a limited scope:
//
//   - Types and Functions exported by this package are not thread safe.
//   - Four independent strategies are supplied, differing only in
//     reclamation granularity. They are alternatives, never a pipeline.
//   - Memory handed out by this package is always 8-byte aligned.
//
// Arena is a fixed capacity buffer with a monotonically increasing
// watermark. Allocations are carved off the front in O(1) and the
// whole arena is reclaimed at once with Reset. Ideal for per-request
// scratch memory.
//
// Stack behaves like Arena but adds markers, a saved watermark that
// can later be rolled back to, reclaiming everything allocated after
// the marker was taken. Markers follow LIFO discipline and rollbacks
// are validated against a generation counter.
//
// Blockpool manages many fixed size blocks, growing chunk by chunk
// from the runtime and threading every block of a fresh chunk onto an
// index free list. Allocate and free are O(1) and blocks can be
// reclaimed in any order.
//
// Tracker wraps raw allocation with leak detection and corruption
// checks. Every outstanding allocation carries a header with a magic
// number and its call site, linked into a per-session record list
// that can be walked for leak reports at teardown.
package malloc
