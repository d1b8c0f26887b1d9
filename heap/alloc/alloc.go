package alloc

import (
	"fmt"
	"io"

	"github.com/JohnCGriffin/overflow"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// maxBlockSize is the largest block a single request may ask for. Larger
// blocks could not be addressed by a link word.
const maxBlockSize = format.MaxRegionSize - format.InitialLayoutSize

// Options configures an Allocator. A nil *Options selects the defaults.
type Options struct {
	// ChunkSize is the minimum number of bytes the heap grows by when no free
	// block fits, and the size of the first block. Rounded up to a multiple
	// of 8; values below MinBlockSize select format.DefaultChunkSize.
	ChunkSize int

	// Tracker, if set, is told about every metadata word the allocator writes
	// and every payload view it hands out.
	Tracker DirtyTracker
}

// Allocator manages blocks inside a heap.Region.
//
// All state except a few counters lives in the region bytes. The cached view
// in data is refreshed after every growth.
type Allocator struct {
	r     heap.Region
	data  []byte
	dt    DirtyTracker
	chunk int

	// Statistics for testing and instrumentation
	stats Stats

	closed bool

	// Test hook: called before every region growth (nil in production)
	onGrow func(int)
}

// New lays out an empty heap at the start of r and extends it by one chunk.
// r must be empty.
//
// Layout: the bucket table (every head set to "none"), a padding word, the
// prologue block and the epilogue header, followed by the first free block.
func New(r heap.Region, opts *Options) (*Allocator, error) {
	a := &Allocator{r: r, chunk: format.DefaultChunkSize}
	if opts != nil {
		if opts.ChunkSize >= format.MinBlockSize {
			a.chunk = format.Align8(opts.ChunkSize)
		}
		a.dt = opts.Tracker
	}

	base, err := a.grow(format.InitialLayoutSize)
	if err != nil {
		return nil, fmt.Errorf("%w: reserve layout: %w", ErrGrowFail, err)
	}
	if base != 0 {
		return nil, fmt.Errorf("%w: region already holds %d bytes", ErrGrowFail, base)
	}

	for i := range format.NumBuckets {
		a.setBucketHead(i, Nil)
	}
	format.PutU32(a.data, format.PaddingOffset, 0)
	a.markDirty(format.PaddingOffset, format.WordSize)

	prologue := block.Pack(format.PrologueSize, true, true)
	a.setHeader(format.PrologueHandle, prologue)
	a.setFooter(format.PrologueHandle, prologue)
	a.setHeader(format.FirstBlockHandle, block.Pack(0, true, true))

	if _, err := a.extend(a.chunk); err != nil {
		return nil, fmt.Errorf("%w: initial chunk: %w", ErrGrowFail, err)
	}
	return a, nil
}

// Alloc returns a block with at least size usable payload bytes, 8-byte
// aligned. Alloc(0) returns a minimum-size block.
func (a *Allocator) Alloc(size int) (Handle, error) {
	if a.closed {
		return Nil, heap.ErrClosed
	}
	if size < 0 {
		return Nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	need, ok := overflow.Add(size, format.WordSize)
	if !ok || need > maxBlockSize {
		return Nil, fmt.Errorf("%w: request of %d bytes exceeds region limit", ErrNoSpace, size)
	}
	asize := uint32(max(format.MinBlockSize, format.Align8(need)))

	a.stats.AllocCalls++
	h := a.findFit(asize)
	if h == Nil {
		a.stats.AllocSlowPath++
		var err error
		if h, err = a.extend(max(int(asize), a.chunk)); err != nil {
			a.dumpAllocatorState(asize)
			return Nil, err
		}
	} else {
		a.stats.AllocFastPath++
	}

	if err := a.place(h, asize); err != nil {
		return Nil, err
	}
	a.stats.BytesAllocated += int64(block.Size(a.data, h))
	return h, nil
}

// Free releases h. Freeing Nil is a no-op. The block is merged with free
// neighbours immediately.
func (a *Allocator) Free(h Handle) error {
	if h == Nil {
		return nil
	}
	if err := a.checkHandle(h); err != nil {
		return err
	}

	t := block.Header(a.data, h)
	a.setHeader(h, t.WithAllocated(false))
	a.coalesce(h)

	a.stats.FreeCalls++
	a.stats.BytesFreed += int64(t.Size())
	return nil
}

// Realloc resizes h to hold size bytes and returns the new handle.
//
//   - Realloc(Nil, n) is Alloc(n).
//   - Realloc(h, 0) frees h and returns Nil.
//
// Otherwise a new block is allocated, the smaller of size and h's payload
// capacity is copied, and h is freed. If the new allocation fails h is left
// untouched.
func (a *Allocator) Realloc(h Handle, size int) (Handle, error) {
	if h == Nil {
		return a.Alloc(size)
	}
	if size == 0 {
		return Nil, a.Free(h)
	}
	if size < 0 {
		return Nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if err := a.checkHandle(h); err != nil {
		return Nil, err
	}

	nh, err := a.Alloc(size)
	if err != nil {
		return Nil, err
	}
	n := min(size, block.PayloadSize(block.Size(a.data, h)))
	copy(a.data[nh:int(nh)+n], a.data[h:int(h)+n])
	a.markDirty(int(nh), n)

	if err := a.Free(h); err != nil {
		return Nil, err
	}
	a.stats.ReallocCalls++
	return nh, nil
}

// Calloc allocates count*size bytes and zeroes them.
func (a *Allocator) Calloc(count, size int) (Handle, error) {
	if count < 0 || size < 0 {
		return Nil, fmt.Errorf("%w: calloc(%d, %d)", ErrInvalidSize, count, size)
	}
	total, ok := overflow.Mul(count, size)
	if !ok {
		return Nil, fmt.Errorf("%w: calloc(%d, %d) overflows", ErrInvalidSize, count, size)
	}

	h, err := a.Alloc(total)
	if err != nil {
		return Nil, err
	}
	clear(a.data[h : int(h)+total])
	a.markDirty(int(h), total)
	return h, nil
}

// Payload returns the writable payload of allocated block h. The slice is
// limited to the block's capacity (block size minus the header word) and is
// invalidated by any call that may grow the heap.
func (a *Allocator) Payload(h Handle) ([]byte, error) {
	if err := a.checkHandle(h); err != nil {
		return nil, err
	}
	n := block.PayloadSize(block.Size(a.data, h))
	view, ok := buf.Slice(a.data, int(h), n)
	if !ok {
		return nil, fmt.Errorf("%w: payload 0x%X+%d outside heap", ErrBadHandle, h, n)
	}
	a.markDirty(int(h), n)
	return view, nil
}

// Check verifies every structural property of the heap and returns the first
// violation found, as a *verify.ValidationError.
func (a *Allocator) Check() error {
	if a.closed {
		return heap.ErrClosed
	}
	return verify.Heap(a.data)
}

// HeapSize returns the number of region bytes the heap occupies.
func (a *Allocator) HeapSize() int { return len(a.data) }

// Close releases the region if it implements io.Closer. The allocator must
// not be used afterwards.
func (a *Allocator) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	a.data = nil
	if c, ok := a.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// checkHandle rejects handles that cannot name an allocated block: outside
// the heap, misaligned, pointing at the sentinels, or not allocated.
func (a *Allocator) checkHandle(h Handle) error {
	if a.closed {
		return heap.ErrClosed
	}
	off := int(h)
	if off < format.FirstBlockHandle || !format.IsAligned8(off) {
		return fmt.Errorf("%w: 0x%X", ErrBadHandle, h)
	}
	// The block must end at or before the epilogue header.
	epilogue := len(a.data) - format.WordSize
	if block.HeaderOffset(h) >= epilogue {
		return fmt.Errorf("%w: 0x%X beyond heap end 0x%X", ErrBadHandle, h, len(a.data))
	}
	t := block.Header(a.data, h)
	if !t.Allocated() {
		return fmt.Errorf("%w: 0x%X is not allocated", ErrBadHandle, h)
	}
	if _, err := buf.CheckRange(epilogue, block.HeaderOffset(h), int(t.Size())); err != nil ||
		t.Size() < format.MinBlockSize {
		return fmt.Errorf("%w: 0x%X has corrupt size %d", ErrBadHandle, h, t.Size())
	}
	return nil
}
