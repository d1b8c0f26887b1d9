package alloc

import "errors"

var (
	// ErrNoSpace indicates that no free block fit and growing the region failed.
	ErrNoSpace = errors.New("alloc: no free block large enough")

	// ErrGrowFail indicates that laying out a fresh heap failed.
	ErrGrowFail = errors.New("alloc: grow failed")

	// ErrBadHandle indicates a handle that does not name an allocated block.
	ErrBadHandle = errors.New("alloc: bad handle")

	// ErrInvalidSize indicates a negative size or a count*size product that overflows.
	ErrInvalidSize = errors.New("alloc: invalid size")

	// ErrContract indicates an internal placement request the target block cannot satisfy.
	ErrContract = errors.New("alloc: placement contract violated")
)
