package format

// Align8 returns n aligned up to the next 8-byte boundary.
// Used for block sizes and growth requests.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
//	Align8(16) = 16
func Align8(n int) int {
	return (n + AlignmentMask) & ^AlignmentMask
}

// Align8U32 returns n aligned up to the next 8-byte boundary.
// uint32 version for tag-word arithmetic.
func Align8U32(n uint32) uint32 {
	return (n + AlignmentMask) & ^uint32(AlignmentMask)
}

// AlignPage returns n aligned up to the next multiple of pageSize, which must
// be a power of two.
//
// Example:
//
//	AlignPage(1, 4096)    = 4096
//	AlignPage(4096, 4096) = 4096
//	AlignPage(4097, 4096) = 8192
func AlignPage(n, pageSize int) int {
	mask := pageSize - 1
	return (n + mask) & ^mask
}

// IsAligned8 reports whether off sits on an 8-byte boundary.
func IsAligned8(off int) bool {
	return off&AlignmentMask == 0
}
