// Package format houses the byte-level layout of a managed heap region: word
// sizes, the fixed offsets of the bucket table and sentinel blocks, and the
// little-endian helpers every other package uses to read and write tag words.
// Keeping the layout here lets the allocator and the checker agree on it
// without importing each other.
package format

const (
	// WordSize is the size of a tag word (header, footer, free-list link).
	WordSize = 4

	// DWordSize is the double-word size. Block sizes and payload offsets are
	// multiples of it.
	DWordSize = 8

	// Alignment is the payload alignment guaranteed to callers.
	Alignment = DWordSize

	// AlignmentMask is used to round sizes up to Alignment.
	AlignmentMask = Alignment - 1

	// TagFlagMask covers the low bits of a tag word that hold status flags
	// rather than size.
	TagFlagMask = 0x7

	// AllocatedBit marks a block as allocated.
	AllocatedBit = 0x1

	// PrevAllocatedBit records that the block immediately before this one in
	// address order is allocated.
	PrevAllocatedBit = 0x2

	// MinBlockSize is the smallest block that can hold its header, both
	// free-list links, and a footer.
	MinBlockSize = 16

	// DefaultChunkSize is how much the heap grows when no free block fits a
	// request, and the size of the initial growth.
	DefaultChunkSize = 528

	// NumBuckets is the number of segregated free lists.
	NumBuckets = 16

	// LastBucket is the catch-all bucket for blocks larger than 2^(LastBucket-1).
	LastBucket = NumBuckets - 1
)

// Region layout. All offsets are relative to the region base.
//
//	0x00  bucket table, NumBuckets link words
//	0x40  padding word
//	0x44  prologue header   (size 8, allocated)
//	0x48  prologue footer
//	0x4C  epilogue header   (size 0, allocated)
//	0x50  first block payload after the initial extension
const (
	// BucketTableOffset is where the bucket head array starts.
	BucketTableOffset = 0

	// BucketTableSize is the byte size of the bucket head array.
	BucketTableSize = NumBuckets * WordSize

	// PaddingOffset is the unused word that keeps payloads 8-byte aligned.
	PaddingOffset = BucketTableOffset + BucketTableSize

	// PrologueHeaderOffset is the header word of the prologue block.
	PrologueHeaderOffset = PaddingOffset + WordSize

	// PrologueHandle is the payload offset of the prologue block.
	PrologueHandle = PrologueHeaderOffset + WordSize

	// PrologueSize is the block size of the prologue (header + footer).
	PrologueSize = DWordSize

	// FirstBlockHandle is the payload offset of the first real block.
	FirstBlockHandle = PrologueHandle + PrologueSize

	// InitialLayoutSize is the number of bytes the fixed layout occupies before
	// the first extension: bucket table, padding, prologue, epilogue.
	InitialLayoutSize = BucketTableSize + 4*WordSize

	// PrevFreeOffset is the payload offset of a free block's backward link.
	PrevFreeOffset = 0

	// NextFreeOffset is the payload offset of a free block's forward link.
	NextFreeOffset = WordSize
)

const (
	// LinkNone is the stored value of an absent free-list link. It can never be
	// a real payload offset because those are 8-byte aligned.
	LinkNone uint32 = 0xFFFFFFFF

	// MaxRegionSize bounds the region so every offset fits a link word.
	MaxRegionSize = 0xFFFFFFF8
)
