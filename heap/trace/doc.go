// Package trace reads allocation traces and replays them against an
// allocator, validating every result.
//
// # Format
//
// A trace is a text file with four header lines followed by one operation
// per line:
//
//	20000        suggested heap size (informational)
//	3            number of distinct ids
//	5            number of operations
//	1            weight (informational)
//	a 0 512      allocate 512 bytes as id 0
//	a 1 128
//	r 0 640      resize id 0 to 640 bytes
//	f 1          free id 1
//	f 0
//
// Ids name allocations, not handles; an id may be reused after it is freed.
// Headers declaring more than MaxIDs ids or MaxOps operations are rejected.
//
// # Replay
//
// Replay runs the operations in order. Unless disabled it checks that every
// returned block is 8-byte aligned, lies inside the heap, and overlaps no
// other live block, and that each payload still holds the pattern written
// into it when the block is freed or resized. It reports peak utilization
// (the high-water mark of live payload bytes over the final heap size) and
// throughput.
package trace
