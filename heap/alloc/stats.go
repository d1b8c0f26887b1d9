package alloc

import (
	"fmt"
	"io"

	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/internal/format"
)

// Stats holds allocator counters and a snapshot of the heap's shape.
type Stats struct {
	GrowCalls        int   // Number of region growths
	GrowBytes        int64 // Total bytes added by growth
	AllocCalls       int   // Total Alloc calls, including those from Realloc and Calloc
	AllocFastPath    int   // Allocations served from a bucket
	AllocSlowPath    int   // Allocations that had to extend the heap
	FreeCalls        int   // Frees of non-nil handles
	ReallocCalls     int   // Reallocs that moved a block
	BytesAllocated   int64 // Sum of allocated block sizes
	BytesFreed       int64 // Sum of freed block sizes
	SplitCount       int   // Blocks split on placement
	CoalesceForward  int   // Merges with the following block
	CoalesceBackward int   // Merges with the preceding block

	// The fields below are computed by walking the heap.
	HeapSize        int
	AllocatedBlocks int
	AllocatedBytes  int64
	FreeBlocks      int
	FreeBytes       int64
	LargestFree     int
	BucketCounts    [format.NumBuckets]int
}

// Stats returns the counters plus a fresh walk of the heap. It is O(heap
// size).
func (a *Allocator) Stats() Stats {
	s := a.stats
	if a.closed {
		return s
	}
	s.HeapSize = len(a.data)
	a.walk(func(h Handle, t block.Tag) {
		if t.Allocated() {
			s.AllocatedBlocks++
			s.AllocatedBytes += int64(t.Size())
			return
		}
		s.FreeBlocks++
		s.FreeBytes += int64(t.Size())
		s.LargestFree = max(s.LargestFree, int(t.Size()))
		s.BucketCounts[block.Bucket(t.Size())]++
	})
	return s
}

// walk calls fn for every block between the prologue and the epilogue, in
// address order. It stops early at a zero or out-of-range size so a corrupt
// heap cannot loop forever.
func (a *Allocator) walk(fn func(h Handle, t block.Tag)) {
	end := len(a.data) - format.WordSize
	for h := Handle(format.FirstBlockHandle); block.HeaderOffset(h) < end; {
		t := block.Header(a.data, h)
		if t.Size() == 0 || block.HeaderOffset(h)+int(t.Size()) > end {
			return
		}
		fn(h, t)
		h += Handle(t.Size())
	}
}

// Utilization returns live bytes divided by heap size, or 0 for an empty heap.
func (s Stats) Utilization() float64 {
	if s.HeapSize == 0 {
		return 0
	}
	return float64(s.AllocatedBytes) / float64(s.HeapSize)
}

// PrintStats writes a human-readable summary of s to w.
func (s Stats) PrintStats(w io.Writer) {
	fmt.Fprintf(w, "\n=== ALLOCATOR STATISTICS ===\n")
	fmt.Fprintf(w, "Heap size:          %d bytes\n", s.HeapSize)
	fmt.Fprintf(w, "Grow calls:         %d (%d bytes added)\n", s.GrowCalls, s.GrowBytes)
	fmt.Fprintf(
		w,
		"Alloc calls:        %d (fast: %d, slow: %d)\n",
		s.AllocCalls,
		s.AllocFastPath,
		s.AllocSlowPath,
	)
	fmt.Fprintf(w, "Free calls:         %d\n", s.FreeCalls)
	fmt.Fprintf(w, "Realloc calls:      %d\n", s.ReallocCalls)
	fmt.Fprintf(w, "Bytes allocated:    %d\n", s.BytesAllocated)
	fmt.Fprintf(w, "Bytes freed:        %d\n", s.BytesFreed)
	fmt.Fprintf(w, "Block splits:       %d\n", s.SplitCount)
	fmt.Fprintf(w, "Coalesce fwd:       %d\n", s.CoalesceForward)
	fmt.Fprintf(w, "Coalesce back:      %d\n", s.CoalesceBackward)

	fmt.Fprintf(w, "\nBlocks:\n")
	fmt.Fprintf(w, "  Allocated:        %d (%d bytes)\n", s.AllocatedBlocks, s.AllocatedBytes)
	fmt.Fprintf(w, "  Free:             %d (%d bytes)\n", s.FreeBlocks, s.FreeBytes)
	fmt.Fprintf(w, "  Largest free:     %d bytes\n", s.LargestFree)
	fmt.Fprintf(w, "  Utilization:      %.1f%%\n", 100*s.Utilization())

	fmt.Fprintf(w, "\nBuckets:\n")
	for i, n := range s.BucketCounts {
		if n == 0 {
			continue
		}
		lo, hi := block.BucketRange(i)
		if hi == 0 {
			fmt.Fprintf(w, "  [%2d] > %d: %d\n", i, lo, n)
			continue
		}
		fmt.Fprintf(w, "  [%2d] %d-%d: %d\n", i, lo+1, hi, n)
	}
	fmt.Fprintf(w, "============================\n\n")
}
