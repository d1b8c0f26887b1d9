package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/block"
)

// ============================================================================
// Heap Creation Utilities
// ============================================================================

// newTestAllocator creates an allocator over a fresh in-memory region of the
// given capacity (0 selects the default).
func newTestAllocator(t testing.TB, capacity int, opts *Options) (*Allocator, *heap.Mem) {
	t.Helper()
	m := heap.NewMem(capacity)
	a, err := New(m, opts)
	require.NoError(t, err)
	assertInvariants(t, a)
	return a, m
}

// assertInvariants fails the test if the heap checker reports anything.
func assertInvariants(t testing.TB, a *Allocator) {
	t.Helper()
	require.NoError(t, a.Check())
}

// mustAlloc allocates or fails the test.
func mustAlloc(t testing.TB, a *Allocator, size int) Handle {
	t.Helper()
	h, err := a.Alloc(size)
	require.NoError(t, err)
	require.NotEqual(t, Nil, h)
	return h
}

// ============================================================================
// Statistics and Inspection
// ============================================================================

type blockInfo struct {
	h         Handle
	size      uint32
	allocated bool
}

// blocks returns every block between prologue and epilogue in address order.
func blocks(a *Allocator) []blockInfo {
	var out []blockInfo
	a.walk(func(h Handle, t block.Tag) {
		out = append(out, blockInfo{h: h, size: t.Size(), allocated: t.Allocated()})
	})
	return out
}

// freeBlocks returns only the free entries of blocks(a).
func freeBlocks(a *Allocator) []blockInfo {
	var out []blockInfo
	for _, b := range blocks(a) {
		if !b.allocated {
			out = append(out, b)
		}
	}
	return out
}

// bucketList returns the handles in bucket i, head first.
func bucketList(a *Allocator, i int) []Handle {
	var out []Handle
	for h := block.BucketHead(a.data, i); h != Nil; h = block.NextFree(a.data, h) {
		out = append(out, h)
	}
	return out
}

// ============================================================================
// Mock Dirty Tracker
// ============================================================================

// MockDirtyTracker is a spy that records all Add() calls for testing.
type MockDirtyTracker struct {
	Calls []DirtyCall
}

// DirtyCall represents a single call to Add().
type DirtyCall struct {
	Off int
	Len int
}

func newMockDirtyTracker() *MockDirtyTracker {
	return &MockDirtyTracker{Calls: make([]DirtyCall, 0, 32)}
}

// Add records a dirty region.
func (m *MockDirtyTracker) Add(off, length int) {
	m.Calls = append(m.Calls, DirtyCall{Off: off, Len: length})
}

// WasCalledAt returns true if Add() covered off.
func (m *MockDirtyTracker) WasCalledAt(off int) bool {
	for _, call := range m.Calls {
		if call.Off <= off && off < call.Off+call.Len {
			return true
		}
	}
	return false
}

// CallCount returns the total number of Add() calls.
func (m *MockDirtyTracker) CallCount() int {
	return len(m.Calls)
}

// Reset clears all recorded calls.
func (m *MockDirtyTracker) Reset() {
	m.Calls = m.Calls[:0]
}
