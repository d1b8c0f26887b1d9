package block

import "github.com/joshuapare/heapkit/internal/format"

// Free-list links are stored as region-relative offsets in a single word.
// format.LinkNone stands for "no link"; it is odd, so it never collides with
// an 8-byte aligned handle.

// ReadLink decodes the link word at off, returning Nil for LinkNone.
func ReadLink(data []byte, off int) Handle {
	v := format.ReadU32(data, off)
	if v == format.LinkNone {
		return Nil
	}
	return Handle(v)
}

// WriteLink encodes h at off, storing LinkNone for Nil.
func WriteLink(data []byte, off int, h Handle) {
	v := uint32(h)
	if h == Nil {
		v = format.LinkNone
	}
	format.PutU32(data, off, v)
}

// RawLink returns the undecoded link word at off.
func RawLink(data []byte, off int) uint32 { return format.ReadU32(data, off) }

// PrevFree returns the free block before h in its bucket.
func PrevFree(data []byte, h Handle) Handle {
	return ReadLink(data, int(h)+format.PrevFreeOffset)
}

// NextFree returns the free block after h in its bucket.
func NextFree(data []byte, h Handle) Handle {
	return ReadLink(data, int(h)+format.NextFreeOffset)
}

// SetPrevFree stores h's backward link.
func SetPrevFree(data []byte, h, prev Handle) {
	WriteLink(data, int(h)+format.PrevFreeOffset, prev)
}

// SetNextFree stores h's forward link.
func SetNextFree(data []byte, h, next Handle) {
	WriteLink(data, int(h)+format.NextFreeOffset, next)
}

// BucketHeadOffset returns the offset of bucket i's head word.
func BucketHeadOffset(i int) int { return format.BucketTableOffset + i*format.WordSize }

// BucketHead returns the first block in bucket i.
func BucketHead(data []byte, i int) Handle { return ReadLink(data, BucketHeadOffset(i)) }

// SetBucketHead replaces the first block in bucket i.
func SetBucketHead(data []byte, i int, h Handle) { WriteLink(data, BucketHeadOffset(i), h) }
