package dirty

import (
	"context"
	"os"
	"sort"
)

// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
const defaultRangeCapacity = 64

// FlushMode controls durability guarantees for Flush.
type FlushMode int

const (
	// FlushAuto msyncs dirty pages, then the table page, then fdatasync.
	// On macOS fsync is used since fdatasync is unavailable.
	FlushAuto FlushMode = iota

	// FlushDataOnly only msyncs. The caller is responsible for syncing the
	// descriptor later. Use this when batching many flushes.
	FlushDataOnly

	// FlushFull is FlushAuto plus F_FULLFSYNC on macOS.
	FlushFull
)

// String returns the flag spelling of m.
func (m FlushMode) String() string {
	switch m {
	case FlushAuto:
		return "auto"
	case FlushDataOnly:
		return "data"
	case FlushFull:
		return "full"
	default:
		return "unknown"
	}
}

// ParseFlushMode is the inverse of FlushMode.String.
func ParseFlushMode(s string) (FlushMode, bool) {
	for _, m := range []FlushMode{FlushAuto, FlushDataOnly, FlushFull} {
		if m.String() == s {
			return m, true
		}
	}
	return FlushAuto, false
}

// Range is a dirty byte range (region offsets).
type Range struct {
	Off int64
	Len int64
}

// Tracker accumulates dirty ranges and flushes them efficiently.
//
// NOT thread-safe.
type Tracker struct {
	m        Mapping
	ranges   []Range // raw; coalesced at flush time
	pageSize int64
}

// NewTracker creates a tracker flushing to m.
func NewTracker(m Mapping) *Tracker {
	return &Tracker{
		m:        m,
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: int64(os.Getpagesize()),
	}
}

// Add records a dirty range. It only appends; alignment and merging happen
// at flush time.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{
		Off: int64(off),
		Len: int64(length),
	})
}

// Len returns the number of raw ranges recorded since the last flush.
func (t *Tracker) Len() int { return len(t.ranges) }

// FlushDataOnly flushes all dirty ranges outside the table page.
//
// If ctx is cancelled mid-flush, some ranges may have been written while
// others have not; the ranges are kept so a later flush retries them.
func (t *Tracker) FlushDataOnly(ctx context.Context) error {
	if len(t.ranges) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := t.m.Mapped()
	if len(data) == 0 {
		return nil
	}
	if err := t.flushRanges(ctx, data); err != nil {
		return err
	}

	t.ranges = t.ranges[:0]
	return nil
}

// FlushTableAndMeta flushes the first page (bucket table and prologue) and,
// unless mode is FlushDataOnly, syncs the file descriptor.
func (t *Tracker) FlushTableAndMeta(ctx context.Context, mode FlushMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data := t.m.Mapped()
	if len(data) == 0 {
		return nil
	}
	tableLen := min(int(t.pageSize), len(data))
	if err := msync(data[:tableLen]); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if mode == FlushDataOnly {
		return nil
	}
	return fdatasync(t.m.FD(), mode == FlushFull)
}

// Flush runs FlushDataOnly followed by FlushTableAndMeta.
func (t *Tracker) Flush(ctx context.Context, mode FlushMode) error {
	if err := t.FlushDataOnly(ctx); err != nil {
		return err
	}
	return t.FlushTableAndMeta(ctx, mode)
}

// Reset clears all tracked ranges.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// DebugRanges returns a copy of the raw, uncoalesced ranges.
func (t *Tracker) DebugRanges() []Range {
	result := make([]Range, len(t.ranges))
	copy(result, t.ranges)
	return result
}

// DebugCoalescedRanges returns the page-aligned, merged ranges a flush would
// write.
func (t *Tracker) DebugCoalescedRanges() []Range {
	return t.coalesce()
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping or
// adjacent ones.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize
		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}
		aligned[i] = Range{Off: start, Len: end - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.Off+current.Len {
			end := max(current.Off+current.Len, next.Off+next.Len)
			current.Len = end - current.Off
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
