// Functions and methods are not thread safe.

package malloc

import "encoding/binary"
import "runtime"
import "unsafe"

import "github.com/bnclabs/memalloc/api"
import "github.com/dustin/go-humanize"

// trackermagic sentinel written into every tracked header at Alloc
// and cleared at Free, a mismatch at Free time means the header was
// overwritten or the block was freed twice.
const trackermagic = uint64(0xDEADBEEFCAFEBABE)

// headersize bytes prepended to every tracked allocation,
// {8:magic, 8:size, 4:siteid, 4:pad}, a multiple of Alignment.
const headersize = int64(24)

// Site records the call site of an allocation for leak attribution.
type Site struct {
	File string
	Line int
}

// Leak is one outstanding allocation reported by Tracker.Report.
type Leak struct {
	Size int64
	File string
	Line int
}

type record struct {
	size   int64
	siteid uint32
	buf    []byte
	prev   *record
	next   *record
}

// Tracker wraps raw allocation with leak detection and corruption
// checks. Outstanding allocations are kept on a doubly linked record
// list, each with an in-band header carrying a magic number and call
// site. One Tracker is one session, independent Trackers, one per
// test for instance, do not interfere.
type Tracker struct {
	// 64-bit aligned stats
	allocated int64 // bytes handed out and not yet freed
	peak      int64
	mallocs   int64
	frees     int64

	head     *record
	records  map[uintptr]*record
	sites    []Site
	siteids  map[Site]uint32
	logleaks bool
}

// NewTracker create a fresh tracking session with no outstanding
// records.
func NewTracker() *Tracker {
	return &Tracker{
		records:  make(map[uintptr]*record),
		sites:    make([]Site, 0, 64),
		siteids:  make(map[Site]uint32),
		logleaks: true,
	}
}

//---- operations

// Alloc request `size` bytes from the runtime and link a tracking
// record for it, attributing the allocation to the caller of this
// function. Returned block excludes the header.
func (tracker *Tracker) Alloc(size int64) []byte {
	if _, file, line, ok := runtime.Caller(1); ok {
		return tracker.Allocsite(size, file, line)
	}
	return tracker.Allocsite(size, "??", 0)
}

// Allocsite like Alloc with the call site supplied explicitly.
func (tracker *Tracker) Allocsite(size int64, file string, line int) []byte {
	if tracker.records == nil {
		panicerr("tracker released")
	} else if size <= 0 {
		panicerr("Alloc size %v", size)
	}
	buf := make([]byte, headersize+size)
	siteid := tracker.siteid(Site{File: file, Line: line})
	binary.BigEndian.PutUint64(buf[:8], trackermagic)
	binary.BigEndian.PutUint64(buf[8:16], uint64(size))
	binary.BigEndian.PutUint32(buf[16:20], siteid)
	block := buf[headersize:]

	rec := &record{size: size, siteid: siteid, buf: buf, next: tracker.head}
	if tracker.head != nil {
		tracker.head.prev = rec
	}
	tracker.head = rec
	tracker.records[blockptr(block)] = rec

	tracker.mallocs++
	tracker.allocated += size
	if tracker.allocated > tracker.peak {
		tracker.peak = tracker.allocated
	}
	return block
}

// Free unlink the record for `block`, clear its magic number and drop
// the memory. Returns api.ErrorCorruption, without touching the
// record list, when the header's magic number was overwritten or the
// block was already freed, logging the original allocation site.
// Freeing nil is a no-op. `block` must have come from this tracker's
// Alloc.
func (tracker *Tracker) Free(block []byte) error {
	if tracker.records == nil {
		panicerr("tracker released")
	} else if block == nil {
		return nil
	}
	tracker.frees++

	rec, ok := tracker.records[blockptr(block)]
	if ok == false {
		// record gone but caller still holds the block, the header
		// before it tells whether this is a double free.
		hdr := headerat(block)
		siteid := binary.BigEndian.Uint32(hdr[16:20])
		errorf("tracker.free(): corruption or double free, from %v\n",
			tracker.sitefor(siteid))
		return api.ErrorCorruption
	}
	if magic := binary.BigEndian.Uint64(rec.buf[:8]); magic != trackermagic {
		errorf("tracker.free(): header overwritten, allocated at %v\n",
			tracker.sitefor(rec.siteid))
		return api.ErrorCorruption
	}

	if rec.prev != nil {
		rec.prev.next = rec.next
	} else {
		tracker.head = rec.next
	}
	if rec.next != nil {
		rec.next.prev = rec.prev
	}
	delete(tracker.records, blockptr(block))
	binary.BigEndian.PutUint64(rec.buf[:8], 0)

	tracker.allocated -= rec.size
	return nil
}

// Report walk the outstanding record list, every entry is a leak.
func (tracker *Tracker) Report() []Leak {
	leaks := make([]Leak, 0, len(tracker.records))
	for rec := tracker.head; rec != nil; rec = rec.next {
		site := tracker.sites[rec.siteid]
		leaks = append(leaks, Leak{Size: rec.size, File: site.File, Line: site.Line})
	}
	return leaks
}

// Checkleaks O(1) predicate, true iff allocations are outstanding.
func (tracker *Tracker) Checkleaks() bool {
	return tracker.head != nil
}

// Outstanding number of allocations not yet freed.
func (tracker *Tracker) Outstanding() int64 {
	return int64(len(tracker.records))
}

// Release implement api.Mallocer{} interface, logging a leak report
// when outstanding allocations remain.
func (tracker *Tracker) Release() {
	if tracker.logleaks && tracker.Checkleaks() {
		tracker.Logreport()
	}
	tracker.head, tracker.records = nil, nil
	tracker.sites, tracker.siteids = nil, nil
}

//---- statistics and maintenance

// Info implement api.Mallocer{} interface. Tracker has no configured
// capacity, `capacity` mirrors `heap`.
func (tracker *Tracker) Info() (capacity, heap, alloc, overhead int64) {
	self := int64(unsafe.Sizeof(*tracker))
	nrecords := int64(len(tracker.records))
	heap = tracker.allocated + nrecords*headersize
	overhead = self + nrecords*(headersize+int64(unsafe.Sizeof(record{})))
	return heap, heap, tracker.allocated, overhead
}

// Stats for this session.
func (tracker *Tracker) Stats() map[string]interface{} {
	return map[string]interface{}{
		"allocated":   tracker.allocated,
		"peak":        tracker.peak,
		"mallocs":     tracker.mallocs,
		"frees":       tracker.frees,
		"outstanding": int64(len(tracker.records)),
	}
}

// Logreport log every outstanding allocation and the total leaked
// memory.
func (tracker *Tracker) Logreport() {
	leaks, total := tracker.Report(), int64(0)
	for n, leak := range leaks {
		infof("tracker: leak #%v %v from %v:%v\n",
			n+1, humanize.Bytes(uint64(leak.Size)), leak.File, leak.Line)
		total += leak.Size
	}
	infof("tracker: %v leaked in %v allocations, peak %v\n",
		humanize.Bytes(uint64(total)), len(leaks),
		humanize.Bytes(uint64(tracker.peak)))
}

//---- local functions

func (tracker *Tracker) siteid(site Site) uint32 {
	if id, ok := tracker.siteids[site]; ok {
		return id
	}
	id := uint32(len(tracker.sites))
	tracker.sites = append(tracker.sites, site)
	tracker.siteids[site] = id
	return id
}

func (tracker *Tracker) sitefor(siteid uint32) Site {
	if int(siteid) < len(tracker.sites) {
		return tracker.sites[siteid]
	}
	return Site{File: "??", Line: 0}
}

func blockptr(block []byte) uintptr {
	return uintptr(unsafe.Pointer(&block[0]))
}

// headerat is the single unsafe boundary in the tracker, reading the
// in-band header immediately preceding a block. Valid only for blocks
// returned by Allocsite, whose backing array includes the header.
func headerat(block []byte) []byte {
	ptr := unsafe.Add(unsafe.Pointer(&block[0]), -int(headersize))
	return unsafe.Slice((*byte)(ptr), headersize)
}

var _ api.Mallocer = (*Tracker)(nil)
