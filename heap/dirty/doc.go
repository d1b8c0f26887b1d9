// Package dirty tracks which byte ranges of a memory-mapped heap region the
// allocator has written, and flushes them to the backing file.
//
// # Overview
//
// The allocator reports every metadata write (tags, links, bucket heads) via
// DirtyTracker.Add. The Tracker records these ranges cheaply and, at flush
// time, page-aligns, sorts and merges them before calling msync.
//
// Page 0 of a region holds the bucket table and the prologue. It is treated
// like a file header: FlushDataOnly skips it, FlushTableAndMeta writes it last
// and then syncs the file descriptor, so the on-disk table never points at
// blocks that have not been written yet.
//
// # Usage
//
//	r, _ := heap.OpenFile("heap.bin", 64<<20)
//	tr := dirty.NewTracker(r)
//	a, _ := alloc.New(r, &alloc.Options{Tracker: tr})
//	// ... allocate and free ...
//	err := tr.Flush(ctx, dirty.FlushAuto)
//
// # Thread Safety
//
// Tracker is not thread-safe. Only one goroutine should use it at a time.
package dirty
