package alloc

import (
	"fmt"
	"os"

	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/internal/format"
)

// Debug flag - set to true to enable verbose logging (compile-time toggle).
const debugAlloc = false

// Runtime debug flag for growth logging - controlled by HEAP_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAP_LOG_ALLOC") != ""

// grow moves the region break up by n bytes and refreshes the cached view.
// It returns the old break.
func (a *Allocator) grow(n int) (int, error) {
	if a.onGrow != nil {
		a.onGrow(n)
	}
	old, err := a.r.Grow(n)
	if err != nil {
		// A failed grow may still have moved the mapping.
		a.data = a.r.Bytes()
		if logAlloc {
			fmt.Fprintf(os.Stderr, "[ALLOC] grow by %d failed at %d bytes: %v\n", n, len(a.data), err)
		}
		return 0, err
	}
	a.data = a.r.Bytes()
	a.stats.GrowCalls++
	a.stats.GrowBytes += int64(n)

	if logAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] grow: +%d bytes at 0x%X, heap now %d bytes\n", n, old, len(a.data))
	}
	return old, nil
}

// extend appends a free block of at least n bytes at the top of the heap.
// The old epilogue header becomes the new block's header and a fresh epilogue
// is written in the last word. The new block is merged with a free
// predecessor and registered in its bucket; the resulting handle is returned.
func (a *Allocator) extend(n int) (Handle, error) {
	size := format.Align8(n)
	old, err := a.grow(size)
	if err != nil {
		return Nil, fmt.Errorf("%w: extend by %d bytes: %w", ErrNoSpace, size, err)
	}

	h := Handle(old)
	prevAllocated := block.Header(a.data, h).PrevAllocated()
	a.setHeader(h, block.Pack(uint32(size), false, prevAllocated))
	a.setFooter(h, block.Pack(uint32(size), false, prevAllocated))
	a.setHeader(block.Next(a.data, h), block.Pack(0, true, false))

	debugLogf("extend: new block 0x%X size %d (prev allocated %v)", h, size, prevAllocated)
	return a.coalesce(h), nil
}

// findFit returns the first free block of at least size bytes, scanning
// buckets upward from size's class and each bucket head to tail. It returns
// Nil when nothing fits.
func (a *Allocator) findFit(size uint32) Handle {
	for i := block.Bucket(size); i < format.NumBuckets; i++ {
		for h := block.BucketHead(a.data, i); h != Nil; h = block.NextFree(a.data, h) {
			if block.Size(a.data, h) >= size {
				return h
			}
		}
	}
	return Nil
}

// place marks size bytes of free block h allocated. If at least MinBlockSize
// bytes would be left over, they are split off into a new free block.
func (a *Allocator) place(h Handle, size uint32) error {
	t := block.Header(a.data, h)
	if t.Allocated() || t.Size() < size {
		return fmt.Errorf("%w: %d bytes into block 0x%X (size %d, allocated %v)",
			ErrContract, size, h, t.Size(), t.Allocated())
	}

	a.remove(h)
	extra := t.Size() - size
	if extra < format.MinBlockSize {
		a.setHeader(h, t.WithAllocated(true))
		return nil
	}

	a.setHeader(h, block.Pack(size, true, t.PrevAllocated()))
	rest := block.Next(a.data, h)
	a.setHeader(rest, block.Pack(extra, false, true))
	a.insert(rest)
	a.stats.SplitCount++

	debugLogf("place: split 0x%X into %d + %d at 0x%X", h, size, extra, rest)
	return nil
}

// coalesce merges free block h with its free neighbours and inserts the
// result into its bucket. h must not be in any bucket yet. The surviving
// block keeps its own prev-allocated bit.
func (a *Allocator) coalesce(h Handle) Handle {
	t := block.Header(a.data, h)
	size := t.Size()
	prevFree := !t.PrevAllocated()
	next := block.Next(a.data, h)
	nextFree := !block.IsAllocated(a.data, next)

	switch {
	case !prevFree && !nextFree:
		// Nothing to merge.

	case !prevFree && nextFree:
		size += block.Size(a.data, next)
		a.remove(next)
		a.setHeader(h, block.Pack(size, false, t.PrevAllocated()))
		a.stats.CoalesceForward++

	case prevFree && !nextFree:
		prev := block.Prev(a.data, h)
		pt := block.Header(a.data, prev)
		size += pt.Size()
		a.remove(prev)
		h = prev
		a.setHeader(h, block.Pack(size, false, pt.PrevAllocated()))
		a.stats.CoalesceBackward++

	default:
		prev := block.Prev(a.data, h)
		pt := block.Header(a.data, prev)
		size += pt.Size() + block.Size(a.data, next)
		a.remove(prev)
		a.remove(next)
		h = prev
		a.setHeader(h, block.Pack(size, false, pt.PrevAllocated()))
		a.stats.CoalesceForward++
		a.stats.CoalesceBackward++
	}

	a.insert(h)
	return h
}

// debugLogf prints debug messages if debugAlloc is enabled.
func debugLogf(format string, args ...any) {
	if debugAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] "+format+"\n", args...)
	}
}
