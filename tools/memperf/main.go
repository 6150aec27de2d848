// memperf times the allocator strategies from the malloc package
// against the runtime allocator. The harness is a collaborator of the
// library, it calls the public APIs and measures wall clock time, it
// is not part of the allocator contract.
package main

import "flag"
import "fmt"
import "os"
import "strings"
import "time"

import "github.com/bnclabs/golog"
import "github.com/bnclabs/memalloc/malloc"
import "github.com/cloudfoundry/gosigar"
import hm "github.com/dustin/go-humanize"

var options struct {
	n           int
	size        int
	blockschunk int
	allocators  []string
	loglevel    string
}

func argParse() {
	var allocators string

	flag.IntVar(&options.n, "n", 100000,
		"number of allocations per strategy")
	flag.IntVar(&options.size, "size", 32,
		"size of each allocation in bytes")
	flag.IntVar(&options.blockschunk, "blockschunk", 1024,
		"blocks per chunk for the block pool")
	flag.StringVar(&allocators, "allocators", "arena,stack,pool,tracker,runtime",
		"comma separated list of strategies to time")
	flag.StringVar(&options.loglevel, "log", "info",
		"log level for the run")
	flag.Parse()

	options.allocators = strings.Split(allocators, ",")
}

func main() {
	argParse()
	log.SetLogger(nil, map[string]interface{}{
		"log.level": options.loglevel, "log.file": "",
	})
	malloc.LogComponents("malloc")

	mem := sigar.Mem{}
	mem.Get()
	log.Infof("memperf: system memory total %v, free %v\n",
		hm.Bytes(mem.Total), hm.Bytes(mem.Free))
	log.Infof("memperf: %v allocations of %v bytes per strategy\n",
		options.n, options.size)

	for _, allocator := range options.allocators {
		var took time.Duration
		switch allocator {
		case "arena":
			took = perfarena(options.n, int64(options.size))
		case "stack":
			took = perfstack(options.n, int64(options.size))
		case "pool":
			took = perfpool(options.n, int64(options.size))
		case "tracker":
			took = perftracker(options.n, int64(options.size))
		case "runtime":
			took = perfruntime(options.n, options.size)
		default:
			fmt.Printf("unknown allocator %q\n", allocator)
			os.Exit(1)
		}
		rate := float64(options.n) / took.Seconds()
		fmt.Printf("%-8v %10v %12v allocs/sec\n",
			allocator, took.Round(time.Microsecond),
			hm.Comma(int64(rate)))
	}
}

// bump the watermark n times, then one O(1) reset.
func perfarena(n int, size int64) time.Duration {
	capacity := int64(n)*((size+7)&^7) + malloc.Alignment
	marena := malloc.NewArena(capacity)
	defer marena.Release()

	start := time.Now()
	for i := 0; i < n; i++ {
		if _, ok := marena.Alloc(size); ok == false {
			log.Fatalf("memperf: arena exhausted at %v\n", i)
		}
	}
	marena.Reset()
	return time.Since(start)
}

// bump the watermark n times, reclaim with a single marker rollback.
func perfstack(n int, size int64) time.Duration {
	capacity := int64(n)*((size+7)&^7) + malloc.Alignment
	mstack, err := malloc.NewStack(capacity)
	if err != nil {
		log.Fatalf("memperf: %v\n", err)
	}
	defer mstack.Release()

	start := time.Now()
	marker := mstack.Marker()
	for i := 0; i < n; i++ {
		if _, ok := mstack.Alloc(size); ok == false {
			log.Fatalf("memperf: stack exhausted at %v\n", i)
		}
	}
	if err := mstack.Freetomarker(marker); err != nil {
		log.Fatalf("memperf: %v\n", err)
	}
	return time.Since(start)
}

// allocate n blocks, then free every one of them.
func perfpool(n int, size int64) time.Duration {
	blockschunk := int64(options.blockschunk)
	maxchunks := (int64(n) + blockschunk - 1) / blockschunk
	pool, err := malloc.NewBlockpool(size, blockschunk, maxchunks)
	if err != nil {
		log.Fatalf("memperf: %v\n", err)
	}
	defer pool.Release()

	blocks := make([][]byte, 0, n)
	start := time.Now()
	for i := 0; i < n; i++ {
		block, ok := pool.Alloc()
		if ok == false {
			log.Fatalf("memperf: pool exhausted at %v\n", i)
		}
		blocks = append(blocks, block)
	}
	for _, block := range blocks {
		pool.Free(block)
	}
	return time.Since(start)
}

// allocate and free n tracked blocks, verify nothing leaked.
func perftracker(n int, size int64) time.Duration {
	tracker := malloc.NewTracker()
	defer tracker.Release()

	blocks := make([][]byte, 0, n)
	start := time.Now()
	for i := 0; i < n; i++ {
		blocks = append(blocks, tracker.Alloc(size))
	}
	for _, block := range blocks {
		if err := tracker.Free(block); err != nil {
			log.Fatalf("memperf: %v\n", err)
		}
	}
	took := time.Since(start)
	if tracker.Checkleaks() {
		log.Errorf("memperf: tracker reports leaks\n")
	}
	return took
}

var sink []byte

// baseline, n allocations straight from the runtime.
func perfruntime(n, size int) time.Duration {
	start := time.Now()
	for i := 0; i < n; i++ {
		sink = make([]byte, size)
	}
	return time.Since(start)
}
