package block

import (
	"math/bits"

	"github.com/joshuapare/heapkit/internal/format"
)

// Bucket returns the smallest index i such that size <= 2^i, clamped to the
// catch-all bucket.
//
//	Bucket(16)    = 4
//	Bucket(17)    = 5
//	Bucket(528)   = 10
//	Bucket(1<<20) = 15
func Bucket(size uint32) int {
	if size <= 1 {
		return 0
	}
	i := bits.Len32(size - 1)
	if i > format.LastBucket {
		return format.LastBucket
	}
	return i
}

// BucketRange returns the inclusive-exclusive size bounds (lo, hi] of bucket
// i. hi is 0 for the catch-all bucket, meaning unbounded. Bucket 0 holds sizes
// up to 1, so lo is 0 there.
func BucketRange(i int) (lo, hi uint32) {
	if i > 0 {
		lo = 1 << (i - 1)
	}
	if i < format.LastBucket {
		hi = 1 << i
	}
	return lo, hi
}

// InBucket reports whether a block of the given size belongs in bucket i.
func InBucket(size uint32, i int) bool {
	lo, hi := BucketRange(i)
	if i > 0 && size <= lo {
		return false
	}
	return hi == 0 || size <= hi
}
