package dirty

import "context"

// DirtyTracker is the minimal interface for reporting modified byte ranges.
//
// The allocator only needs to notify about writes; it never decides when they
// reach disk.
type DirtyTracker interface {
	// Add marks a byte range as dirty.
	// off is the offset from the start of the region, length is the number of bytes.
	Add(off, length int)
}

// FlushableTracker extends DirtyTracker with methods for flushing dirty ranges.
// It is used by callers that own durability (the CLI, trace replay).
type FlushableTracker interface {
	DirtyTracker

	// FlushDataOnly flushes block ranges, not the table page.
	FlushDataOnly(ctx context.Context) error

	// FlushTableAndMeta flushes the table page and syncs according to mode.
	FlushTableAndMeta(ctx context.Context, mode FlushMode) error
}

// Mapping is the view of a file-backed region the tracker flushes.
type Mapping interface {
	// Mapped returns the whole mapping, starting at the mmap base address.
	Mapped() []byte

	// FD returns the backing file descriptor.
	FD() int
}

var _ FlushableTracker = (*Tracker)(nil)
