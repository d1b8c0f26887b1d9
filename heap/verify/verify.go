package verify

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/internal/format"
)

// Error categories reported in ValidationError.Type.
const (
	TypeLayout     = "Layout"
	TypePrologue   = "Prologue"
	TypeBlock      = "Block"
	TypeEpilogue   = "Epilogue"
	TypeCycle      = "Cycle"
	TypeFreeList   = "FreeList"
	TypeBucket     = "Bucket"
	TypeAccounting = "Accounting"
)

// ValidationError describes the first violation found.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func fail(typ string, off int, msg string, args ...any) *ValidationError {
	return &ValidationError{Type: typ, Message: fmt.Sprintf(msg, args...), Offset: off}
}

// Heap validates all heap invariants in one call.
// Returns the first error encountered, or nil if all checks pass.
func Heap(data []byte) error {
	if err := Layout(data); err != nil {
		return err
	}
	if err := Prologue(data); err != nil {
		return err
	}
	if err := Epilogue(data); err != nil {
		return err
	}
	free, err := walkBlocks(data)
	if err != nil {
		return err
	}
	listed, err := walkLists(data, free)
	if err != nil {
		return err
	}
	if listed != len(free) {
		return &ValidationError{
			Type:    TypeAccounting,
			Message: fmt.Sprintf("free lists hold %d blocks, heap walk found %d free", listed, len(free)),
			Offset:  -1,
			Details: map[string]interface{}{"listed": listed, "free": len(free)},
		}
	}
	return nil
}

// Layout checks that data can hold the fixed layout and that its length keeps
// block payloads 8-byte aligned.
func Layout(data []byte) error {
	if err := format.CheckLayout(len(data)); err != nil {
		return fail(TypeLayout, -1, "region too small: %d bytes (need %d)", len(data), format.InitialLayoutSize)
	}
	if !format.IsAligned8(len(data)) {
		return fail(TypeLayout, -1, "region size %d is not a multiple of %d", len(data), format.DWordSize)
	}
	if len(data) > format.MaxRegionSize {
		return fail(TypeLayout, -1, "region size %d exceeds link range", len(data))
	}
	return nil
}

// Prologue checks the prologue block. Layout must have passed.
func Prologue(data []byte) error {
	h := block.Handle(format.PrologueHandle)
	hdr := block.Header(data, h)
	if hdr.Size() != format.PrologueSize || !hdr.Allocated() {
		return fail(TypePrologue, block.HeaderOffset(h),
			"header 0x%08X: want size %d, allocated", uint32(hdr), format.PrologueSize)
	}
	if ftr := block.ReadTag(data, block.FooterOffset(h, format.PrologueSize)); ftr != hdr {
		return fail(TypePrologue, block.FooterOffset(h, format.PrologueSize),
			"footer 0x%08X does not match header 0x%08X", uint32(ftr), uint32(hdr))
	}
	return nil
}

// Epilogue checks that the last word of the region is an allocated,
// zero-size header. Layout must have passed.
func Epilogue(data []byte) error {
	off := len(data) - format.WordSize
	t := block.ReadTag(data, off)
	if t.Size() != 0 || !t.Allocated() {
		return fail(TypeEpilogue, off, "tag 0x%08X: want size 0, allocated", uint32(t))
	}
	return nil
}

// Blocks walks every block from the first one to the epilogue. Layout,
// Prologue and Epilogue must have passed.
func Blocks(data []byte) error {
	_, err := walkBlocks(data)
	return err
}

// FreeLists checks every bucket on its own, without comparing against the
// block walk. Layout must have passed.
func FreeLists(data []byte) error {
	_, err := walkLists(data, nil)
	return err
}

// walkBlocks returns the set of free block handles met during the walk.
func walkBlocks(data []byte) (map[block.Handle]struct{}, error) {
	free := make(map[block.Handle]struct{})
	epilogue := len(data) - format.WordSize
	prevAllocated := true // prologue
	h := block.Handle(format.FirstBlockHandle)

	for {
		hdrOff := block.HeaderOffset(h)
		t := block.ReadTag(data, hdrOff)

		if hdrOff == epilogue {
			if t.PrevAllocated() != prevAllocated {
				return nil, fail(TypeEpilogue, hdrOff,
					"prev-allocated bit %v, predecessor allocated %v", t.PrevAllocated(), prevAllocated)
			}
			return free, nil
		}

		size := t.Size()
		switch {
		case uint32(t)&format.TagFlagMask&^(format.AllocatedBit|format.PrevAllocatedBit) != 0:
			return nil, fail(TypeBlock, hdrOff, "reserved tag bit set in 0x%08X", uint32(t))
		case size < format.MinBlockSize:
			return nil, fail(TypeBlock, hdrOff, "size %d below minimum %d", size, format.MinBlockSize)
		case hdrOff+int(size) > epilogue:
			return nil, fail(TypeBlock, hdrOff, "size %d runs past the epilogue at 0x%X", size, epilogue)
		case t.PrevAllocated() != prevAllocated:
			return nil, fail(TypeBlock, hdrOff,
				"prev-allocated bit %v, predecessor allocated %v", t.PrevAllocated(), prevAllocated)
		}

		if !t.Allocated() {
			if !prevAllocated {
				return nil, fail(TypeBlock, hdrOff, "free block follows a free block")
			}
			if ftr := block.Footer(data, h); ftr != t {
				return nil, fail(TypeBlock, block.FooterOffset(h, size),
					"footer 0x%08X does not match header 0x%08X", uint32(ftr), uint32(t))
			}
			for _, off := range []int{int(h) + format.PrevFreeOffset, int(h) + format.NextFreeOffset} {
				if raw := block.RawLink(data, off); !linkInRegion(data, raw) {
					return nil, fail(TypeBlock, off, "link 0x%08X outside the heap", raw)
				}
			}
			free[h] = struct{}{}
		}

		prevAllocated = t.Allocated()
		h += block.Handle(size)
	}
}

// walkLists validates every bucket and returns the number of listed blocks.
// When free is non-nil, each listed block must be one of its members.
func walkLists(data []byte, free map[block.Handle]struct{}) (int, error) {
	total := 0
	for i := range format.NumBuckets {
		headOff := block.BucketHeadOffset(i)
		raw := block.RawLink(data, headOff)
		if !linkInRegion(data, raw) {
			return 0, fail(TypeBucket, headOff, "bucket %d head 0x%08X outside the heap", i, raw)
		}
		head := block.ReadLink(data, headOff)

		if err := detectCycle(data, i, head); err != nil {
			return 0, err
		}

		n, err := walkBucket(data, i, head, free)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// detectCycle runs Floyd's tortoise-and-hare over bucket i's forward links.
func detectCycle(data []byte, bucket int, head block.Handle) error {
	next := func(h block.Handle) (block.Handle, error) {
		off := int(h) + format.NextFreeOffset
		if raw := block.RawLink(data, off); !linkInRegion(data, raw) {
			return block.Nil, fail(TypeFreeList, off, "bucket %d: link 0x%08X outside the heap", bucket, raw)
		}
		return block.ReadLink(data, off), nil
	}

	slow, fast := head, head
	for fast != block.Nil {
		var err error
		if fast, err = next(fast); err != nil || fast == block.Nil {
			return err
		}
		if fast, err = next(fast); err != nil {
			return err
		}
		slow, _ = next(slow)
		if fast != block.Nil && slow == fast {
			return &ValidationError{
				Type:    TypeCycle,
				Message: fmt.Sprintf("bucket %d: free list revisits block 0x%X", bucket, slow),
				Offset:  int(slow),
				Details: map[string]interface{}{"bucket": bucket},
			}
		}
	}
	return nil
}

// walkBucket checks each block of an acyclic bucket list.
func walkBucket(data []byte, bucket int, head block.Handle, free map[block.Handle]struct{}) (int, error) {
	epilogue := len(data) - format.WordSize
	n := 0
	prev := block.Nil
	for h := head; h != block.Nil; h = block.NextFree(data, h) {
		hdrOff := block.HeaderOffset(h)
		t := block.ReadTag(data, hdrOff)
		size := t.Size()

		switch {
		case t.Allocated():
			return 0, fail(TypeFreeList, hdrOff, "bucket %d: listed block is allocated", bucket)
		case size < format.MinBlockSize || hdrOff+int(size) > epilogue:
			return 0, fail(TypeFreeList, hdrOff, "bucket %d: listed block has bad size %d", bucket, size)
		case block.Footer(data, h) != t:
			return 0, fail(TypeFreeList, block.FooterOffset(h, size),
				"bucket %d: footer does not match header", bucket)
		}

		prevOff := int(h) + format.PrevFreeOffset
		if raw := block.RawLink(data, prevOff); !linkInRegion(data, raw) {
			return 0, fail(TypeFreeList, prevOff, "bucket %d: back link 0x%08X outside the heap", bucket, raw)
		}
		if got := block.PrevFree(data, h); got != prev {
			return 0, fail(TypeFreeList, prevOff,
				"bucket %d: back link 0x%X, expected 0x%X", bucket, got, prev)
		}

		if !block.InBucket(size, bucket) {
			lo, hi := block.BucketRange(bucket)
			return 0, &ValidationError{
				Type:    TypeBucket,
				Message: fmt.Sprintf("block of size %d listed in bucket %d (belongs in %d)", size, bucket, block.Bucket(size)),
				Offset:  int(h),
				Details: map[string]interface{}{"bucket": bucket, "size": size, "lo": lo, "hi": hi},
			}
		}

		if free != nil {
			if _, ok := free[h]; !ok {
				return 0, fail(TypeAccounting, int(h), "bucket %d: 0x%X is not a block in the heap walk", bucket, h)
			}
		}

		n++
		prev = h
	}
	return n, nil
}

// linkInRegion reports whether a raw link word is "none" or could name a
// block payload inside the heap.
func linkInRegion(data []byte, raw uint32) bool {
	if raw == format.LinkNone {
		return true
	}
	off := int(raw)
	return off >= format.FirstBlockHandle &&
		format.IsAligned8(off) &&
		off+format.MinBlockSize-format.WordSize <= len(data)-format.WordSize
}

// Extent finds the end of the heap inside a larger image, such as a flushed
// file whose length is rounded up to whole pages. It follows block sizes from
// the first block to the epilogue and returns the heap length, including the
// epilogue word. It does not validate anything the walk does not need.
func Extent(image []byte) (int, error) {
	if err := format.CheckLayout(len(image)); err != nil {
		return 0, fail(TypeLayout, -1, "image too small: %d bytes (need %d)", len(image), format.InitialLayoutSize)
	}
	for hdrOff := block.HeaderOffset(format.FirstBlockHandle); ; {
		if hdrOff+format.WordSize > len(image) {
			return 0, fail(TypeEpilogue, -1, "no epilogue before end of image at 0x%X", len(image))
		}
		t := block.ReadTag(image, hdrOff)
		if t.Size() == 0 {
			if !t.Allocated() {
				return 0, fail(TypeEpilogue, hdrOff, "tag 0x%08X: want size 0, allocated", uint32(t))
			}
			return hdrOff + format.WordSize, nil
		}
		if t.Size() < format.MinBlockSize {
			return 0, fail(TypeBlock, hdrOff, "size %d below minimum %d", t.Size(), format.MinBlockSize)
		}
		hdrOff += int(t.Size())
	}
}
