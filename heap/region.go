package heap

import "errors"

// DefaultMaxHeap is the capacity used when a region is created with a
// non-positive limit.
const DefaultMaxHeap = 20 << 20

var (
	// ErrExhausted indicates a Grow request would move the break past the
	// region's capacity. The region is unchanged.
	ErrExhausted = errors.New("heap: region exhausted")

	// ErrBadIncrement indicates a negative Grow request.
	ErrBadIncrement = errors.New("heap: negative increment")

	// ErrClosed indicates use of a region after Close.
	ErrClosed = errors.New("heap: region closed")
)

// Region is a contiguous byte area whose break only moves upward.
type Region interface {
	// Grow extends the region by n bytes and returns the offset of the first
	// new byte (the old break). On failure the region is unchanged.
	Grow(n int) (int, error)

	// Bytes returns the in-use bytes [Low, High]. The slice may be
	// invalidated by the next Grow.
	Bytes() []byte

	// Low returns the offset of the first in-use byte. Always 0.
	Low() int

	// High returns the offset of the last in-use byte, or -1 when empty.
	High() int
}

// capacityOf clamps a requested capacity into the valid range.
func capacityOf(n int) int {
	if n <= 0 {
		return DefaultMaxHeap
	}
	if n > maxCapacity {
		return maxCapacity
	}
	return n
}
