// Package buf contains bounds helpers for carving views out of a region.
package buf

import (
	"fmt"

	"github.com/JohnCGriffin/overflow"
)

// CheckRange validates that n bytes starting at offset fit in a buffer of
// bufLen bytes. Returns the end offset if valid, or an error describing the
// specific failure (overflow or out of bounds).
//
//	end, err := buf.CheckRange(len(data), off, n)
//	if err != nil {
//	    return fmt.Errorf("payload: %w", err)
//	}
func CheckRange(bufLen, offset, n int) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative offset: %d", offset)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative length: %d", n)
	}
	end, ok := overflow.Add(offset, n)
	if !ok {
		return 0, fmt.Errorf("overflow: offset=%d + size=%d", offset, n)
	}
	if end > bufLen {
		return 0, fmt.Errorf("bounds: end=%d > len=%d", end, bufLen)
	}
	return end, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b). The
// result's capacity is clipped to n so appends cannot spill into whatever
// follows it.
func Slice(b []byte, off, n int) ([]byte, bool) {
	end, err := CheckRange(len(b), off, n)
	if err != nil {
		return nil, false
	}
	return b[off:end:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, err := CheckRange(len(b), off, n)
	return err == nil
}
