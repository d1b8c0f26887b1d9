package alloc

import (
	"fmt"
	"io"
	"os"

	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/internal/format"
)

// Dump writes every block in address order followed by every non-empty
// bucket to w. It trusts the heap layout; run Check first on a heap that
// may be corrupt.
func (a *Allocator) Dump(w io.Writer) {
	if a.closed {
		fmt.Fprintf(w, "heap closed\n")
		return
	}

	fmt.Fprintf(w, "heap: %d bytes [0x%X, 0x%X]\n", len(a.data), a.r.Low(), a.r.High())
	fmt.Fprintf(w, "0x%06X: prologue size %d\n", format.PrologueHandle, format.PrologueSize)
	a.walk(func(h Handle, t block.Tag) {
		state := "free"
		if t.Allocated() {
			state = "alloc"
		}
		prev := "free"
		if t.PrevAllocated() {
			prev = "alloc"
		}
		fmt.Fprintf(w, "0x%06X: %-5s size %-8d prev %s", h, state, t.Size(), prev)
		if !t.Allocated() {
			fmt.Fprintf(w, " links [%s, %s]",
				linkString(block.PrevFree(a.data, h)), linkString(block.NextFree(a.data, h)))
		}
		fmt.Fprintln(w)
	})
	fmt.Fprintf(w, "0x%06X: epilogue\n", len(a.data))

	for i := range format.NumBuckets {
		h := block.BucketHead(a.data, i)
		if h == Nil {
			continue
		}
		fmt.Fprintf(w, "bucket %2d:", i)
		// Bounded by the heap's block count so a corrupt cycle still terminates.
		for n := 0; h != Nil && n <= len(a.data)/format.MinBlockSize; n++ {
			fmt.Fprintf(w, " %#x(%d)", h, block.Size(a.data, h))
			h = block.NextFree(a.data, h)
		}
		fmt.Fprintln(w)
	}
}

func linkString(h Handle) string {
	if h == Nil {
		return "-"
	}
	return fmt.Sprintf("%#x", h)
}

// dumpAllocatorState dumps the bucket occupancy after a failed allocation.
func (a *Allocator) dumpAllocatorState(need uint32) {
	if !debugAlloc {
		return
	}

	fmt.Fprintf(os.Stderr, "\n=== ALLOCATOR STATE DUMP (need=%d) ===\n", need)
	fmt.Fprintf(os.Stderr, "heap size: %d\n", len(a.data))
	s := a.Stats()
	for i, n := range s.BucketCounts {
		if n > 0 {
			fmt.Fprintf(os.Stderr, "  bucket[%d]: %d blocks\n", i, n)
		}
	}
	fmt.Fprintf(os.Stderr, "Total: %d free blocks, %d bytes free\n", s.FreeBlocks, s.FreeBytes)
	fmt.Fprintf(os.Stderr, "===================================\n\n")
}
