// Functions and methods are not thread safe.

package malloc

import "sort"
import "unsafe"

import "github.com/bnclabs/memalloc/api"

// Blockpool manages many fixed size blocks, growing chunk by chunk
// from the runtime. Every block of a fresh chunk is threaded onto an
// index free list, allocation pops the list, free pushes back onto
// it. Blocks from a new chunk are handed out in reverse address
// order. Unlike Arena and Stack, blocks can be reclaimed in any
// order.
type Blockpool struct {
	// 64-bit aligned stats
	mallocated int64

	blocksize   int64    // fixed size blocks in this pool
	blockschunk int64    // blocks obtained per chunk
	maxchunks   int64    // chunk budget
	chunks      [][]byte // creation order, block ids are stable
	sorted      []int    // chunk positions ordered by base address
	freelist    []uint32 // stack of free block ids
	freebits    []uint64 // 1 bit per block id, set while free
}

// NewBlockpool create a pool of `blocksize` blocks, rounded up to a
// multiple of Alignment, growing `blockschunk` blocks at a time up to
// `maxchunks` chunks.
func NewBlockpool(blocksize, blockschunk, maxchunks int64) (*Blockpool, error) {
	if blocksize <= 0 || blockschunk <= 0 || maxchunks <= 0 {
		panicerr("blockpool dimensions %v,%v,%v",
			blocksize, blockschunk, maxchunks)
	} else if blockschunk > Maxblockschunk {
		panicerr("blockschunk cannot exceed %v (%v)",
			Maxblockschunk, blockschunk)
	} else if maxchunks > Maxchunks {
		panicerr("maxchunks cannot exceed %v (%v)", Maxchunks, maxchunks)
	}
	blocksize = alignup(blocksize)
	if blocksize*blockschunk*maxchunks > Maxarenasize {
		return nil, api.ErrorOutofMemory
	}
	pool := &Blockpool{
		blocksize:   blocksize,
		blockschunk: blockschunk,
		maxchunks:   maxchunks,
		chunks:      make([][]byte, 0, maxchunks),
		sorted:      make([]int, 0, maxchunks),
		freelist:    make([]uint32, 0, blockschunk),
	}
	return pool, nil
}

//---- operations

// Alloc pop a block from the free list, growing the pool by one chunk
// when the list is empty. Returns false once the chunk budget is
// spent and no free block remains.
func (pool *Blockpool) Alloc() ([]byte, bool) {
	if pool.freelist == nil {
		panicerr("blockpool released")
	}
	if len(pool.freelist) == 0 {
		if pool.addchunk() == false {
			return nil, false
		}
	}
	id := int64(pool.freelist[len(pool.freelist)-1])
	pool.freelist = pool.freelist[:len(pool.freelist)-1]
	pool.clearfree(id)
	block := pool.blockat(id)
	initblock(block)
	pool.mallocated += pool.blocksize
	return block, true
}

// Free push `block` back onto the head of the free list. Double frees
// and pointers not handed out by this pool panic.
func (pool *Blockpool) Free(block []byte) {
	if pool.freelist == nil {
		panicerr("blockpool released")
	} else if block == nil {
		panicerr("blockpool.free(): nil pointer")
	}
	ptr := uintptr(unsafe.Pointer(&block[0]))
	chunkpos, ok := pool.findchunk(ptr)
	if ok == false {
		panicerr("blockpool.free(): foreign pointer %x", ptr)
	}
	diffptr := uint64(ptr - pool.chunkbase(chunkpos))
	if (diffptr % uint64(pool.blocksize)) != 0 {
		panicerr("blockpool.free(): unaligned pointer: %x,%v",
			diffptr, pool.blocksize)
	}
	id := int64(chunkpos)*pool.blockschunk + int64(diffptr)/pool.blocksize
	if pool.isfree(id) {
		panicerr("blockpool.free(): double free %x", ptr)
	}
	pool.setfree(id)
	pool.freelist = append(pool.freelist, uint32(id))
	pool.mallocated -= pool.blocksize
}

// Release implement api.Mallocer{} interface. Does not validate that
// every block has been returned first.
func (pool *Blockpool) Release() {
	pool.chunks, pool.sorted = nil, nil
	pool.freelist, pool.freebits = nil, nil
	pool.mallocated = 0
}

//---- statistics and maintenance

// Blocksize of blocks handed out by this pool, after alignment.
func (pool *Blockpool) Blocksize() int64 {
	return pool.blocksize
}

// Chunkcount number of chunks obtained from the runtime so far.
func (pool *Blockpool) Chunkcount() int64 {
	return int64(len(pool.chunks))
}

// Info implement api.Mallocer{} interface.
func (pool *Blockpool) Info() (capacity, heap, alloc, overhead int64) {
	self := int64(unsafe.Sizeof(*pool))
	slicesz := int64(cap(pool.freelist))*4 + int64(len(pool.freebits))*8
	slicesz += int64(cap(pool.sorted)) * 8
	capacity = pool.blocksize * pool.blockschunk * pool.maxchunks
	heap = int64(len(pool.chunks)) * pool.blockschunk * pool.blocksize
	return capacity, heap, pool.mallocated, self + slicesz
}

// Utilization percentage of chunk memory handed out to the
// application.
func (pool *Blockpool) Utilization() float64 {
	_, heap, alloc, _ := pool.Info()
	if heap == 0 {
		return 0
	}
	return (float64(alloc) / float64(heap)) * 100
}

//---- local functions

func (pool *Blockpool) addchunk() bool {
	if int64(len(pool.chunks)) >= pool.maxchunks {
		return false
	}
	chunkpos := len(pool.chunks)
	pool.chunks = append(pool.chunks, make([]byte, pool.blockschunk*pool.blocksize))
	pool.freebits = append(pool.freebits, make([]uint64, pool.wordschunk())...)
	for i := int64(0); i < pool.blockschunk; i++ {
		id := int64(chunkpos)*pool.blockschunk + i
		pool.setfree(id)
		pool.freelist = append(pool.freelist, uint32(id))
	}
	pool.sorted = append(pool.sorted, chunkpos)
	sort.Slice(pool.sorted, func(i, j int) bool {
		return pool.chunkbase(pool.sorted[i]) < pool.chunkbase(pool.sorted[j])
	})
	return true
}

// findchunk position of the chunk containing ptr, binary searching
// chunks ordered by base address.
func (pool *Blockpool) findchunk(ptr uintptr) (int, bool) {
	chunklen := uintptr(pool.blockschunk * pool.blocksize)
	n := sort.Search(len(pool.sorted), func(i int) bool {
		return pool.chunkbase(pool.sorted[i])+chunklen > ptr
	})
	if n == len(pool.sorted) {
		return 0, false
	}
	chunkpos := pool.sorted[n]
	if ptr < pool.chunkbase(chunkpos) {
		return 0, false
	}
	return chunkpos, true
}

// chunkbase is the single unsafe boundary in this pool, base address
// of a chunk's backing array for pointer to block-id resolution.
func (pool *Blockpool) chunkbase(chunkpos int) uintptr {
	return uintptr(unsafe.Pointer(&pool.chunks[chunkpos][0]))
}

func (pool *Blockpool) blockat(id int64) []byte {
	chunk := pool.chunks[id/pool.blockschunk]
	off := (id % pool.blockschunk) * pool.blocksize
	return chunk[off : off+pool.blocksize : off+pool.blocksize]
}

func (pool *Blockpool) wordschunk() int64 {
	return (pool.blockschunk + 63) / 64
}

func (pool *Blockpool) bitpos(id int64) (int64, uint64) {
	chunkpos, nth := id/pool.blockschunk, id%pool.blockschunk
	return chunkpos*pool.wordschunk() + nth/64, uint64(1) << uint64(nth%64)
}

func (pool *Blockpool) setfree(id int64) {
	word, mask := pool.bitpos(id)
	pool.freebits[word] |= mask
}

func (pool *Blockpool) clearfree(id int64) {
	word, mask := pool.bitpos(id)
	pool.freebits[word] &^= mask
}

func (pool *Blockpool) isfree(id int64) bool {
	word, mask := pool.bitpos(id)
	return (pool.freebits[word] & mask) != 0
}

var _ api.Mallocer = (*Blockpool)(nil)
