package trace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/internal/format"
)

var (
	// ErrMisaligned indicates a returned payload not on an 8-byte boundary.
	ErrMisaligned = errors.New("trace: payload not 8-byte aligned")

	// ErrOutOfHeap indicates a returned payload extending past the heap.
	ErrOutOfHeap = errors.New("trace: payload outside the heap")

	// ErrOverlap indicates two live payloads sharing bytes.
	ErrOverlap = errors.New("trace: payloads overlap")

	// ErrCorrupt indicates a payload lost the bytes written into it.
	ErrCorrupt = errors.New("trace: payload contents changed")

	// ErrUnknownID indicates a free or resize of an id that is not live.
	ErrUnknownID = errors.New("trace: id not allocated")
)

// Heap is the allocator surface Replay drives.
type Heap interface {
	Alloc(size int) (block.Handle, error)
	Free(h block.Handle) error
	Realloc(h block.Handle, size int) (block.Handle, error)
	Payload(h block.Handle) ([]byte, error)
	Check() error
	HeapSize() int
}

// Options tunes Replay. A nil *Options validates payloads without running
// the heap checker.
type Options struct {
	// CheckEvery runs Heap.Check after every operation.
	CheckEvery bool

	// SkipValidation disables the alignment, bounds, overlap and content
	// checks. Use it when timing the allocator alone.
	SkipValidation bool

	// Logger receives per-run debug output. Nil discards it.
	Logger *slog.Logger
}

// Result summarizes one replay.
type Result struct {
	Ops         int
	PeakPayload int           // high-water mark of live requested bytes
	HeapSize    int           // heap size after the last operation
	Elapsed     time.Duration
}

// Utilization returns PeakPayload / HeapSize.
func (r Result) Utilization() float64 {
	if r.HeapSize == 0 {
		return 0
	}
	return float64(r.PeakPayload) / float64(r.HeapSize)
}

// Throughput returns operations per second.
func (r Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// liveBlock is one outstanding id.
type liveBlock struct {
	h    block.Handle
	size int
}

// replayer holds per-run state.
type replayer struct {
	heap     Heap
	opts     Options
	ids      []liveBlock // indexed by id; h == Nil when not live
	ranges   []liveBlock // live payloads sorted by handle
	live     int
	peakLive int
}

// Replay runs every operation of tr against h. It stops at the first
// allocator error, validation failure or context cancellation and reports
// which operation failed.
func Replay(ctx context.Context, h Heap, tr *Trace, opts *Options) (Result, error) {
	if tr.NumIDs < 0 || tr.NumIDs > MaxIDs {
		return Result{}, fmt.Errorf("trace declares %d ids, want 0..%d", tr.NumIDs, MaxIDs)
	}
	rp := &replayer{heap: h, ids: make([]liveBlock, tr.NumIDs)}
	if opts != nil {
		rp.opts = *opts
	}
	log := rp.opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	start := time.Now()
	for i, op := range tr.Ops {
		if err := ctx.Err(); err != nil {
			return rp.result(i, start), err
		}
		if err := rp.step(op); err != nil {
			log.Debug("replay failed", "op", i, "line", op.String(), "err", err)
			return rp.result(i, start), fmt.Errorf("op %d (%s): %w", i, op, err)
		}
		if rp.opts.CheckEvery {
			if err := h.Check(); err != nil {
				return rp.result(i+1, start), fmt.Errorf("op %d (%s): heap check: %w", i, op, err)
			}
		}
	}

	res := rp.result(len(tr.Ops), start)
	log.Debug("replay done",
		"ops", res.Ops,
		"heap", res.HeapSize,
		"peak", res.PeakPayload,
		"util", res.Utilization(),
		"elapsed", res.Elapsed)
	return res, nil
}

func (rp *replayer) result(ops int, start time.Time) Result {
	return Result{
		Ops:         ops,
		PeakPayload: rp.peakLive,
		HeapSize:    rp.heap.HeapSize(),
		Elapsed:     time.Since(start),
	}
}

func (rp *replayer) step(op Op) error {
	if op.ID < 0 || op.ID >= len(rp.ids) {
		return fmt.Errorf("id %d out of range (have %d ids)", op.ID, len(rp.ids))
	}
	cur := rp.ids[op.ID]
	switch op.Kind {
	case Alloc:
		if cur.h != block.Nil {
			return fmt.Errorf("id %d already live", op.ID)
		}
		h, err := rp.heap.Alloc(op.Size)
		if err != nil {
			return err
		}
		return rp.track(op.ID, liveBlock{h: h, size: op.Size})

	case Free:
		if cur.h == block.Nil {
			return fmt.Errorf("%w: %d", ErrUnknownID, op.ID)
		}
		if err := rp.verify(op.ID, cur, cur.size); err != nil {
			return err
		}
		rp.untrack(op.ID)
		return rp.heap.Free(cur.h)

	case Realloc:
		if cur.h != block.Nil {
			if err := rp.verify(op.ID, cur, cur.size); err != nil {
				return err
			}
		}
		h, err := rp.heap.Realloc(cur.h, op.Size)
		if err != nil {
			return err
		}
		if cur.h != block.Nil {
			rp.untrack(op.ID)
		}
		if h == block.Nil {
			return nil
		}
		nb := liveBlock{h: h, size: op.Size}
		if cur.h != block.Nil {
			if err := rp.verify(op.ID, nb, min(cur.size, op.Size)); err != nil {
				return err
			}
		}
		return rp.track(op.ID, nb)

	default:
		return fmt.Errorf("unknown op kind %s", op.Kind)
	}
}

// track validates a fresh block, fills it with the id's pattern and records it.
func (rp *replayer) track(id int, b liveBlock) error {
	if !rp.opts.SkipValidation {
		if !format.IsAligned8(int(b.h)) {
			return fmt.Errorf("%w: 0x%X", ErrMisaligned, b.h)
		}
		if int(b.h)+b.size > rp.heap.HeapSize() {
			return fmt.Errorf("%w: 0x%X+%d, heap is %d bytes", ErrOutOfHeap, b.h, b.size, rp.heap.HeapSize())
		}
		i, _ := slices.BinarySearchFunc(rp.ranges, b.h, func(e liveBlock, h block.Handle) int {
			return int(e.h) - int(h)
		})
		if i > 0 {
			if prev := rp.ranges[i-1]; int(prev.h)+prev.size > int(b.h) {
				return fmt.Errorf("%w: 0x%X+%d and 0x%X+%d", ErrOverlap, prev.h, prev.size, b.h, b.size)
			}
		}
		if i < len(rp.ranges) {
			if next := rp.ranges[i]; int(b.h)+b.size > int(next.h) || next.h == b.h {
				return fmt.Errorf("%w: 0x%X+%d and 0x%X+%d", ErrOverlap, b.h, b.size, next.h, next.size)
			}
		}
		rp.ranges = slices.Insert(rp.ranges, i, b)

		p, err := rp.heap.Payload(b.h)
		if err != nil {
			return err
		}
		if len(p) < b.size {
			return fmt.Errorf("%w: 0x%X holds %d bytes, asked for %d", ErrOutOfHeap, b.h, len(p), b.size)
		}
		fill := pattern(id)
		for j := range b.size {
			p[j] = fill
		}
	}

	rp.ids[id] = b
	rp.live += b.size
	rp.peakLive = max(rp.peakLive, rp.live)
	return nil
}

// untrack forgets id's block.
func (rp *replayer) untrack(id int) {
	b := rp.ids[id]
	rp.ids[id] = liveBlock{}
	rp.live -= b.size
	if rp.opts.SkipValidation {
		return
	}
	if i, ok := slices.BinarySearchFunc(rp.ranges, b.h, func(e liveBlock, h block.Handle) int {
		return int(e.h) - int(h)
	}); ok {
		rp.ranges = slices.Delete(rp.ranges, i, i+1)
	}
}

// verify checks that the first n bytes of b still hold id's pattern.
func (rp *replayer) verify(id int, b liveBlock, n int) error {
	if rp.opts.SkipValidation {
		return nil
	}
	p, err := rp.heap.Payload(b.h)
	if err != nil {
		return err
	}
	fill := pattern(id)
	for j := range n {
		if p[j] != fill {
			return fmt.Errorf("%w: id %d at 0x%X byte %d is %#x, want %#x", ErrCorrupt, id, b.h, j, p[j], fill)
		}
	}
	return nil
}

// pattern is the fill byte for id. Neighbouring ids differ.
func pattern(id int) byte { return byte(id*31 + 7) }
