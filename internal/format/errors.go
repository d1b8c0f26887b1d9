package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for the fixed layout.
	ErrTruncated = errors.New("format: truncated region")
)

// CheckLayout reports whether a region of n bytes can hold the fixed layout
// (bucket table, prologue, epilogue).
func CheckLayout(n int) error {
	if n < InitialLayoutSize {
		return ErrTruncated
	}
	return nil
}
