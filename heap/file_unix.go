//go:build linux || darwin

package heap

import (
	"fmt"
	"os"

	"github.com/JohnCGriffin/overflow"
	"golang.org/x/sys/unix"

	"github.com/joshuapare/heapkit/internal/format"
)

// File is a Region backed by a shared memory mapping of a regular file.
//
// The mapping is sized in whole pages and kept ahead of the break. When a
// Grow crosses the mapped size the file is extended with ftruncate and
// remapped at the new length; the new bytes read as zero.
type File struct {
	f        *os.File
	data     []byte // entire mapping
	brk      int
	max      int
	pageSize int
}

// OpenFile creates (or truncates) path and returns an empty File region that
// may grow up to limit bytes. A non-positive limit selects DefaultMaxHeap.
func OpenFile(path string, limit int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	return &File{
		f:        f,
		max:      capacityOf(limit),
		pageSize: unix.Getpagesize(),
	}, nil
}

// Grow implements Region. It may remap, invalidating earlier Bytes slices.
func (r *File) Grow(n int) (int, error) {
	if r == nil || r.f == nil {
		return 0, ErrClosed
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %d", ErrBadIncrement, n)
	}
	end, ok := overflow.Add(r.brk, n)
	if !ok || end > r.max {
		return 0, fmt.Errorf("%w: need %d bytes, %d of %d in use",
			ErrExhausted, n, r.brk, r.max)
	}
	if end > len(r.data) {
		if err := r.remap(r.nextMapSize(end)); err != nil {
			return 0, err
		}
	}
	old := r.brk
	r.brk = end
	return old, nil
}

// nextMapSize doubles the mapping until it covers need, capped at the
// page-rounded limit.
func (r *File) nextMapSize(need int) int {
	size := max(len(r.data), r.pageSize)
	for size < need {
		size *= 2
	}
	limit := format.AlignPage(r.max, r.pageSize)
	return min(size, limit)
}

// remap extends the file to size bytes and maps it again. The old mapping
// stays in place until the new one exists, so on failure r.data is untouched.
func (r *File) remap(size int) error {
	if err := r.f.Truncate(int64(size)); err != nil {
		return fmt.Errorf("heap: failed to extend file: %w", err)
	}

	data, err := unix.Mmap(r.FD(), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("heap: failed to remap after grow: %w", err)
	}
	if r.data != nil {
		if err := unix.Munmap(r.data); err != nil {
			_ = unix.Munmap(data)
			return fmt.Errorf("heap: failed to unmap after grow: %w", err)
		}
	}
	r.data = data
	return nil
}

// Bytes implements Region.
func (r *File) Bytes() []byte {
	if r == nil || r.data == nil {
		return nil
	}
	return r.data[:r.brk:r.brk]
}

// Low implements Region.
func (r *File) Low() int { return 0 }

// High implements Region.
func (r *File) High() int { return r.brk - 1 }

// Size returns the number of in-use bytes.
func (r *File) Size() int { return r.brk }

// Mapped returns the whole current mapping, including bytes past the break.
func (r *File) Mapped() []byte { return r.data }

// FD returns the underlying file descriptor, or -1 once closed.
func (r *File) FD() int {
	if r == nil || r.f == nil {
		return -1
	}
	return int(r.f.Fd())
}

// Name returns the backing file's path.
func (r *File) Name() string {
	if r == nil || r.f == nil {
		return ""
	}
	return r.f.Name()
}

// Close unmaps the region and closes the file. The file keeps its contents.
func (r *File) Close() error {
	if r == nil {
		return nil
	}
	var err error
	if r.data != nil {
		err = unix.Munmap(r.data)
		r.data = nil
	}
	if r.f != nil {
		if cerr := r.f.Close(); err == nil {
			err = cerr
		}
		r.f = nil
	}
	return err
}
