// Package verify checks the structural integrity of a heap region.
//
// # Overview
//
// The checker works on raw region bytes and trusts nothing in them: every
// size and link is bounds-checked before it is followed, and free lists are
// scanned for cycles before they are walked. It is used by Allocator.Check,
// by the trace replayer between operations, and by `heapctl check`.
//
// Validation categories:
//   - Layout: the region holds at least the bucket table and sentinels
//   - Prologue: size 8, allocated, header equals footer
//   - Blocks: in bounds, aligned, sized, prev-allocated bits consistent,
//     free blocks have matching footers and in-region links, no two
//     adjacent free blocks
//   - Epilogue: size 0, allocated, exactly the last word
//   - Free lists: no cycles, every listed block free and well formed, back
//     links consistent, each block in the bucket matching its size
//   - Accounting: the free lists hold exactly the free blocks of the walk
//
// # Quick Start
//
//	if err := verify.Heap(region.Bytes()); err != nil {
//	    var verr *verify.ValidationError
//	    if errors.As(err, &verr) {
//	        fmt.Printf("%s at 0x%X: %s\n", verr.Type, verr.Offset, verr.Message)
//	    }
//	}
//
// Each category also has its own entry point (Layout, Prologue, Epilogue,
// Blocks, FreeLists) for tests that corrupt one thing at a time.
//
// A heap image saved to disk may be longer than the heap it holds. Extent
// finds the epilogue so the image can be cut to size before checking:
//
//	n, err := verify.Extent(img)
//	if err == nil {
//	    err = verify.Heap(img[:n])
//	}
//
// # Performance
//
// Heap is O(n) in region size and allocates one set of free-block handles.
// It is meant for tests and debugging, not the allocation path.
package verify
