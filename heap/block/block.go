// Package block encodes and decodes the boundary tags that describe every
// block inside a heap region.
//
// A block is addressed by its Handle: the region-relative offset of its
// payload. The header word sits immediately before the payload. Free blocks
// also carry a footer (a copy of the header) in their last word and two
// free-list links in the first two payload words. Allocated blocks have no
// footer; their successor's PrevAllocated bit records their status instead.
//
// Nothing in this package validates its inputs. Callers pass handles that lie
// inside the region; heap/verify is the place that distrusts the layout.
package block

import "github.com/joshuapare/heapkit/internal/format"

// Handle is the region-relative offset of a block payload. Offset 0 holds the
// bucket table, so Nil never names a block.
type Handle uint32

// Nil is the null handle.
const Nil Handle = 0

// Tag is a packed header or footer word: size | allocated | prevAllocated<<1.
type Tag uint32

// Pack builds a tag word. size must be a multiple of 8.
func Pack(size uint32, allocated, prevAllocated bool) Tag {
	t := Tag(size &^ format.TagFlagMask)
	if allocated {
		t |= format.AllocatedBit
	}
	if prevAllocated {
		t |= format.PrevAllocatedBit
	}
	return t
}

// Size returns the block size in bytes.
func (t Tag) Size() uint32 { return uint32(t) &^ format.TagFlagMask }

// Allocated reports the block's own allocation bit.
func (t Tag) Allocated() bool { return t&format.AllocatedBit != 0 }

// PrevAllocated reports whether the preceding block is allocated.
func (t Tag) PrevAllocated() bool { return t&format.PrevAllocatedBit != 0 }

// WithSize returns t with its size replaced, flags untouched.
func (t Tag) WithSize(size uint32) Tag {
	return Tag(size&^format.TagFlagMask) | t&format.TagFlagMask
}

// WithAllocated returns t with the allocation bit set to v.
func (t Tag) WithAllocated(v bool) Tag {
	if v {
		return t | format.AllocatedBit
	}
	return t &^ format.AllocatedBit
}

// WithPrevAllocated returns t with the prev-allocated bit set to v.
func (t Tag) WithPrevAllocated(v bool) Tag {
	if v {
		return t | format.PrevAllocatedBit
	}
	return t &^ format.PrevAllocatedBit
}

// HeaderOffset returns the offset of h's header word.
func HeaderOffset(h Handle) int { return int(h) - format.WordSize }

// FooterOffset returns the offset of the footer word of a block of the given size.
func FooterOffset(h Handle, size uint32) int { return int(h) + int(size) - format.DWordSize }

// ReadTag reads the tag word at off.
func ReadTag(data []byte, off int) Tag { return Tag(format.ReadU32(data, off)) }

// WriteTag writes the tag word at off.
func WriteTag(data []byte, off int, t Tag) { format.PutU32(data, off, uint32(t)) }

// Header returns h's header tag.
func Header(data []byte, h Handle) Tag { return ReadTag(data, HeaderOffset(h)) }

// SetHeader overwrites h's header tag.
func SetHeader(data []byte, h Handle, t Tag) { WriteTag(data, HeaderOffset(h), t) }

// Footer returns the footer word of h, located using the size in h's header.
// Only meaningful while h is free.
func Footer(data []byte, h Handle) Tag {
	return ReadTag(data, FooterOffset(h, Header(data, h).Size()))
}

// SetFooter writes t into h's footer position, located using t's size.
func SetFooter(data []byte, h Handle, t Tag) {
	WriteTag(data, FooterOffset(h, t.Size()), t)
}

// Size returns h's block size.
func Size(data []byte, h Handle) uint32 { return Header(data, h).Size() }

// IsAllocated reports h's allocation bit.
func IsAllocated(data []byte, h Handle) bool { return Header(data, h).Allocated() }

// IsPrevAllocated reports h's prev-allocated bit.
func IsPrevAllocated(data []byte, h Handle) bool { return Header(data, h).PrevAllocated() }

// SetAllocated rewrites h's allocation bit, keeping size and prev-allocated.
func SetAllocated(data []byte, h Handle, v bool) {
	SetHeader(data, h, Header(data, h).WithAllocated(v))
}

// SetPrevAllocated rewrites h's prev-allocated bit, keeping size and allocation.
func SetPrevAllocated(data []byte, h Handle, v bool) {
	SetHeader(data, h, Header(data, h).WithPrevAllocated(v))
}

// Next returns the handle of the block that follows h in address order.
func Next(data []byte, h Handle) Handle { return h + Handle(Size(data, h)) }

// Prev returns the handle of the block that precedes h, using the footer word
// just before h's header. Valid only when that predecessor is free.
func Prev(data []byte, h Handle) Handle {
	prevSize := ReadTag(data, HeaderOffset(h)-format.WordSize).Size()
	return h - Handle(prevSize)
}

// PayloadSize returns the number of usable bytes in an allocated block.
func PayloadSize(size uint32) int { return int(size) - format.WordSize }
