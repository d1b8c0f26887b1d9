// Package heap provides the growable byte regions that the allocator in
// heap/alloc carves blocks out of.
//
// # Overview
//
// A Region is a contiguous run of bytes with a break pointer. Grow moves the
// break up and returns the old break; nothing ever moves it down except an
// explicit Reset. All allocator metadata lives inside the region, so the
// allocator addresses blocks by region-relative offsets rather than Go
// pointers.
//
// Two implementations are provided:
//
//   - Mem: a fixed-capacity in-process buffer (20 MiB by default).
//   - File: a shared, memory-mapped file that is extended with ftruncate and
//     remapped on growth (Linux and macOS only).
//
// # Slice Lifetime
//
// Bytes returns a view of [Low, High]. Mem never reallocates its buffer, so
// views stay valid until Reset. File may remap on Grow; any slice obtained
// before a Grow must be re-fetched afterwards.
//
// # Thread Safety
//
// Regions are not safe for concurrent use. The allocator serializes access.
package heap
