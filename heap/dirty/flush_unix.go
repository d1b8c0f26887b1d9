//go:build linux || freebsd

package dirty

import (
	"context"

	"golang.org/x/sys/unix"
)

// flushRanges msyncs each coalesced range except the table page.
// Linux accepts page-aligned sub-slices of a mapping.
func (t *Tracker) flushRanges(ctx context.Context, data []byte) error {
	for _, r := range t.coalesce() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.Off == 0 {
			// The table page is written by FlushTableAndMeta. Anything
			// else merged into this range still needs flushing.
			if r.Len <= t.pageSize {
				continue
			}
			r.Off, r.Len = t.pageSize, r.Len-t.pageSize
		}
		start := int(r.Off)
		end := min(int(r.Off+r.Len), len(data))
		if start >= end {
			continue
		}
		if err := unix.Msync(data[start:end], unix.MS_SYNC); err != nil {
			return err
		}
	}
	return nil
}

func msync(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

// fdatasync ignores fullfsync; fdatasync is sufficient here.
func fdatasync(fd int, _ bool) error {
	return unix.Fdatasync(fd)
}
