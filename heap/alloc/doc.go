// Package alloc implements a segregated free-list allocator over a heap.Region.
//
// # Overview
//
// Every block carries a one-word header holding its size, its own allocation
// bit and the allocation bit of its predecessor. Free blocks additionally
// carry a footer and two links that thread them into one of 16 size-class
// buckets. The bucket table itself lives at the start of the region, so the
// whole allocator state is the region's bytes plus a few counters.
//
// # Allocation
//
// A request for n bytes becomes a block of max(16, align8(n+4)) bytes. The
// allocator scans buckets upward from the request's size class and takes the
// first block that fits (first fit within segregated lists). When nothing
// fits, the region grows by max(block, ChunkSize) bytes. If the chosen block
// leaves at least 16 bytes spare, the remainder is split off and returned to
// its bucket.
//
// # Freeing
//
// Freed blocks are merged with free neighbours immediately, so no two free
// blocks are ever adjacent. The predecessor bit in each header is what makes
// backward merging possible without footers on allocated blocks.
//
// # Usage Example
//
//	a, err := alloc.New(heap.NewMem(0), nil)
//	if err != nil {
//	    return err
//	}
//
//	h, err := a.Alloc(100)
//	if err != nil {
//	    return err
//	}
//	p, _ := a.Payload(h) // at least 100 writable bytes
//	copy(p, data)
//
//	h, err = a.Realloc(h, 400)
//	// ...
//	err = a.Free(h)
//
// # Handles
//
// Handles are region-relative payload offsets, not pointers. They remain valid
// across region growth, including remaps of file-backed regions. Slices
// returned by Payload do not: re-fetch them after any call that may grow the
// heap.
//
// # Consistency
//
// Check walks the whole region and every bucket and reports the first
// violation as a *verify.ValidationError. It is O(heap size) and meant for
// tests and debugging.
//
// # Thread Safety
//
// Allocator is not safe for concurrent use.
//
// # Related Packages
//
//   - github.com/joshuapare/heapkit/heap/block: tag word codec
//   - github.com/joshuapare/heapkit/heap/verify: consistency checker
//   - github.com/joshuapare/heapkit/heap/dirty: flushing file-backed regions
package alloc
