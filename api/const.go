package api

import "errors"

// ErrorOutofMemory allocation cannot succeed because the allocator's
// configured capacity is exhausted, or the underlying allocator
// refused memory.
var ErrorOutofMemory = errors.New("malloc.outofmemory")

// ErrorStaleMarker rollback cannot succeed because the marker was
// taken before the most recent reset, or its span was already
// reclaimed by an earlier rollback.
var ErrorStaleMarker = errors.New("malloc.stalemarker")

// ErrorCorruption the block's tracking header is damaged, either by
// an out-of-bounds write or by freeing the block twice.
var ErrorCorruption = errors.New("malloc.corruption")
