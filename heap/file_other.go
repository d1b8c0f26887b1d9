//go:build !linux && !darwin

package heap

import "errors"

// ErrUnsupported is returned by OpenFile on platforms without mmap support.
var ErrUnsupported = errors.New("heap: file-backed regions require linux or darwin")

// File is unavailable on this platform.
type File struct{}

// OpenFile always fails on this platform.
func OpenFile(string, int) (*File, error) { return nil, ErrUnsupported }

func (*File) Grow(int) (int, error) { return 0, ErrUnsupported }
func (*File) Bytes() []byte         { return nil }
func (*File) Low() int              { return 0 }
func (*File) High() int             { return -1 }
func (*File) Size() int             { return 0 }
func (*File) Mapped() []byte        { return nil }
func (*File) FD() int               { return -1 }
func (*File) Name() string          { return "" }
func (*File) Close() error          { return nil }
