package malloc

import s "github.com/bnclabs/gosettings"
import "github.com/cloudfoundry/gosigar"

// Alignment every allocation from this package is aligned to this
// boundary, block sizes are rounded up to its multiple.
const Alignment = int64(8)

// Maxarenasize maximum capacity of an Arena or Stack. Can be used as
// default capacity for NewArena() and NewStack().
const Maxarenasize = int64(1024 * 1024 * 1024 * 1024) // 1TB

// Maxchunks maximum number of chunks allowed in a Blockpool.
const Maxchunks = int64(65536)

// Maxblockschunk maximum number of blocks allowed in a single chunk.
const Maxblockschunk = int64(65536)

// Malloc configurable parameters and default settings.
//
// "arena.capacity" (int64, default: 10% of free RAM)
//		Capacity of the arena buffer in bytes.
//
// "stack.capacity" (int64, default: 10% of free RAM)
//		Capacity of the stack allocator's buffer in bytes.
//
// "pool.blocksize" (int64, default: 64)
//		Size of fixed blocks handed out by the block pool, will be
//		rounded up to a multiple of Alignment.
//
// "pool.blockschunk" (int64, default: 1024)
//		Number of blocks the pool obtains from the runtime in a
//		single chunk.
//
// "pool.maxchunks" (int64, default: Maxchunks)
//		Chunk budget for the block pool, allocations fail once the
//		budget is spent and the free list is empty.
//
// "tracker.logleaks" (bool, default: true)
//		If true, Tracker.Release logs a leak report when outstanding
//		allocations remain.
func Defaultsettings() s.Settings {
	_, _, free := getsysmem()
	capacity := int64(float64(free) * 0.1)
	if capacity > Maxarenasize {
		capacity = Maxarenasize
	} else if capacity < 1024*1024 {
		capacity = 1024 * 1024
	}
	return s.Settings{
		"arena.capacity":   capacity,
		"stack.capacity":   capacity,
		"pool.blocksize":   int64(64),
		"pool.blockschunk": int64(1024),
		"pool.maxchunks":   Maxchunks,
		"tracker.logleaks": true,
	}
}

// Arenafromsetts construct a new Arena from settings.
func Arenafromsetts(setts s.Settings) *Arena {
	return NewArena(setts.Int64("arena.capacity"))
}

// Stackfromsetts construct a new Stack from settings.
func Stackfromsetts(setts s.Settings) (*Stack, error) {
	return NewStack(setts.Int64("stack.capacity"))
}

// Blockpoolfromsetts construct a new Blockpool from settings.
func Blockpoolfromsetts(setts s.Settings) (*Blockpool, error) {
	blocksize := setts.Int64("pool.blocksize")
	blockschunk := setts.Int64("pool.blockschunk")
	maxchunks := setts.Int64("pool.maxchunks")
	return NewBlockpool(blocksize, blockschunk, maxchunks)
}

// Trackerfromsetts construct a new Tracker from settings.
func Trackerfromsetts(setts s.Settings) *Tracker {
	tracker := NewTracker()
	tracker.logleaks = setts.Bool("tracker.logleaks")
	return tracker
}

func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	mem.Get()
	return mem.Total, mem.Used, mem.Free
}
