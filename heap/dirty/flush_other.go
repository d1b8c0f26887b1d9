//go:build !linux && !freebsd && !darwin

package dirty

import (
	"context"
	"errors"
)

var errNoMsync = errors.New("dirty: flushing mapped regions is not supported on this platform")

func (t *Tracker) flushRanges(context.Context, []byte) error { return errNoMsync }

func msync([]byte) error { return errNoMsync }

func fdatasync(int, bool) error { return errNoMsync }
