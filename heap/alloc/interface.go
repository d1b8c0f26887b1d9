package alloc

import (
	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/heap/dirty"
)

// DirtyTracker is a type alias for the canonical interface defined in heap/dirty.
type DirtyTracker = dirty.DirtyTracker

// Handle is the region-relative offset of a block payload.
type Handle = block.Handle

// Nil is the null handle. Free(Nil) is a no-op and Realloc(Nil, n) allocates.
const Nil = block.Nil
