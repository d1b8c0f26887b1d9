//go:build darwin

package dirty

import (
	"context"

	"golang.org/x/sys/unix"
)

// flushRanges syncs the whole mapping. macOS msync wants the original mmap
// address; the kernel only writes pages that are actually dirty.
func (t *Tracker) flushRanges(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return unix.Msync(data, unix.MS_SYNC)
}

func msync(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

// fdatasync uses F_FULLFSYNC when asked, otherwise fsync. macOS has no
// fdatasync.
func fdatasync(fd int, fullfsync bool) error {
	if fullfsync {
		_, err := unix.FcntlInt(uintptr(fd), unix.F_FULLFSYNC, 0)
		return err
	}
	return unix.Fsync(fd)
}
