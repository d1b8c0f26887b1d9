package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/internal/format"
)

// TestTag_RoundTrip checks that every (size, allocated, prevAllocated) triple
// survives Pack and the accessors for sizes across all buckets.
func TestTag_RoundTrip(t *testing.T) {
	for size := uint32(format.MinBlockSize); size <= 1<<17; size += 8 {
		for _, alloc := range []bool{false, true} {
			for _, prev := range []bool{false, true} {
				tag := Pack(size, alloc, prev)
				if tag.Size() != size || tag.Allocated() != alloc || tag.PrevAllocated() != prev {
					t.Fatalf("Pack(%d,%v,%v) decoded as (%d,%v,%v)",
						size, alloc, prev, tag.Size(), tag.Allocated(), tag.PrevAllocated())
				}
			}
		}
	}
}

func TestTag_FlagEditsKeepOtherFields(t *testing.T) {
	tag := Pack(64, true, false)

	tag = tag.WithPrevAllocated(true)
	assert.Equal(t, uint32(64), tag.Size())
	assert.True(t, tag.Allocated())
	assert.True(t, tag.PrevAllocated())

	tag = tag.WithAllocated(false)
	assert.Equal(t, uint32(64), tag.Size())
	assert.False(t, tag.Allocated())
	assert.True(t, tag.PrevAllocated())

	tag = tag.WithSize(128)
	assert.Equal(t, uint32(128), tag.Size())
	assert.False(t, tag.Allocated())
	assert.True(t, tag.PrevAllocated())
}

func TestTag_BitLayout(t *testing.T) {
	// Allocation is bit 0 and prev-allocated is bit 1.
	assert.Equal(t, Tag(0x41), Pack(0x40, true, false))
	assert.Equal(t, Tag(0x42), Pack(0x40, false, true))
	assert.Equal(t, Tag(0x43), Pack(0x40, true, true))
}

// TestAddressing lays out two blocks by hand and walks them with the codec.
func TestAddressing(t *testing.T) {
	data := make([]byte, 256)
	a := Handle(80)
	SetHeader(data, a, Pack(32, false, true))
	SetFooter(data, a, Pack(32, false, true))
	b := Next(data, a)
	require.Equal(t, Handle(112), b)
	SetHeader(data, b, Pack(48, true, false))

	assert.Equal(t, 76, HeaderOffset(a))
	assert.Equal(t, 104, FooterOffset(a, 32))
	assert.Equal(t, Header(data, a), Footer(data, a))
	assert.Equal(t, a, Prev(data, b), "Prev should use the free predecessor's footer")
	assert.Equal(t, 28, PayloadSize(32))

	SetAllocated(data, a, true)
	assert.True(t, IsAllocated(data, a))
	assert.True(t, IsPrevAllocated(data, a))
	SetPrevAllocated(data, b, true)
	assert.True(t, IsPrevAllocated(data, b))
	assert.Equal(t, uint32(48), Size(data, b))
}

func TestLinks(t *testing.T) {
	data := make([]byte, 256)
	h := Handle(96)

	SetPrevFree(data, h, Nil)
	SetNextFree(data, h, Handle(160))
	assert.Equal(t, Nil, PrevFree(data, h))
	assert.Equal(t, Handle(160), NextFree(data, h))
	assert.Equal(t, format.LinkNone, RawLink(data, int(h)))

	for i := range format.NumBuckets {
		SetBucketHead(data, i, Nil)
	}
	SetBucketHead(data, 4, h)
	assert.Equal(t, h, BucketHead(data, 4))
	assert.Equal(t, Nil, BucketHead(data, 5))
	assert.Equal(t, format.LinkNone, format.ReadU32(data, BucketHeadOffset(5)))
}

func TestBucket(t *testing.T) {
	cases := []struct {
		size uint32
		want int
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 2}, {16, 4}, {17, 5}, {24, 5}, {32, 5},
		{528, 10}, {1 << 14, 14}, {1<<14 + 8, 15}, {1 << 15, 15}, {1 << 24, 15},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Bucket(tc.size), "Bucket(%d)", tc.size)
		assert.True(t, InBucket(tc.size, tc.want), "InBucket(%d, %d)", tc.size, tc.want)
	}
}

// TestBucketRange_Partition checks that the ranges of consecutive buckets
// tile the size axis with no gaps and no overlaps.
func TestBucketRange_Partition(t *testing.T) {
	lo, hi := BucketRange(0)
	assert.Equal(t, uint32(0), lo)
	assert.Equal(t, uint32(1), hi)

	for i := 1; i < format.NumBuckets; i++ {
		lo, _ := BucketRange(i)
		_, prevHi := BucketRange(i - 1)
		assert.Equal(t, prevHi, lo, "bucket %d must start where bucket %d ends", i, i-1)
	}

	_, hi = BucketRange(format.LastBucket)
	assert.Equal(t, uint32(0), hi, "catch-all bucket is unbounded")
	assert.False(t, InBucket(1<<14, format.LastBucket))
	assert.True(t, InBucket(1<<30, format.LastBucket))
	assert.False(t, InBucket(16, 5))
}
