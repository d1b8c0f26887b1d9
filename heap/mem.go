package heap

import (
	"fmt"

	"github.com/JohnCGriffin/overflow"

	"github.com/joshuapare/heapkit/internal/format"
)

// maxCapacity keeps every in-region offset representable in a link word.
const maxCapacity = int(format.MaxRegionSize)

// Mem is an in-process Region backed by a single preallocated buffer.
// The buffer never moves, so slices from Bytes survive Grow.
type Mem struct {
	buf []byte
	brk int
}

// NewMem returns an empty Mem with room for capacity bytes.
// A non-positive capacity selects DefaultMaxHeap.
func NewMem(capacity int) *Mem {
	return &Mem{buf: make([]byte, capacityOf(capacity))}
}

// Grow implements Region.
func (m *Mem) Grow(n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: %d", ErrBadIncrement, n)
	}
	end, ok := overflow.Add(m.brk, n)
	if !ok || end > len(m.buf) {
		return 0, fmt.Errorf("%w: need %d bytes, %d of %d in use",
			ErrExhausted, n, m.brk, len(m.buf))
	}
	old := m.brk
	m.brk = end
	return old, nil
}

// Bytes implements Region.
func (m *Mem) Bytes() []byte { return m.buf[:m.brk:m.brk] }

// Low implements Region.
func (m *Mem) Low() int { return 0 }

// High implements Region.
func (m *Mem) High() int { return m.brk - 1 }

// Size returns the number of in-use bytes.
func (m *Mem) Size() int { return m.brk }

// Cap returns the region's capacity.
func (m *Mem) Cap() int { return len(m.buf) }

// Reset moves the break back to zero. Contents are not cleared.
func (m *Mem) Reset() { m.brk = 0 }
