package trace

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/block"
)

const shortTrace = `20000
3
8

1
a 0 512
a 1 128
r 0 640
a 2 128
f 1
r 0 768
f 0
f 2
`

func newHeap(t *testing.T) *alloc.Allocator {
	t.Helper()
	a, err := alloc.New(heap.NewMem(8<<20), nil)
	require.NoError(t, err)
	return a
}

func TestParse(t *testing.T) {
	tr, err := Parse(strings.NewReader(shortTrace))
	require.NoError(t, err)

	assert.Equal(t, 20000, tr.SuggestedHeap)
	assert.Equal(t, 3, tr.NumIDs)
	assert.Equal(t, 1, tr.Weight)
	require.Len(t, tr.Ops, 8)
	assert.Equal(t, Op{Kind: Alloc, ID: 0, Size: 512}, tr.Ops[0])
	assert.Equal(t, Op{Kind: Realloc, ID: 0, Size: 640}, tr.Ops[2])
	assert.Equal(t, Op{Kind: Free, ID: 1}, tr.Ops[4])
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"short header":  "100\n2\n",
		"bad header":    "100\nx\n1\n1\na 0 1\n",
		"count":         "100\n2\n3\n1\na 0 1\nf 0\n",
		"unknown op":    "100\n2\n1\n1\nx 0 1\n",
		"long op name":  "100\n2\n1\n1\nalloc 0 1\n",
		"id range":      "100\n2\n1\n1\na 2 1\n",
		"negative size": "100\n2\n1\n1\na 0 -8\n",
		"free arity":    "100\n2\n1\n1\nf 0 8\n",
		"alloc arity":   "100\n2\n1\n1\na 0\n",
		"extra op":      "100\n2\n1\n1\na 0 1\nf 0\n",
		"huge op count": "100\n1\n999999999999999\n1\na 0 8\n",
		"huge id count": "100\n999999999999999\n1\n1\na 0 8\n",
		"ops over max":  "100\n1\n67108865\n1\na 0 8\n",
		"ids over max":  "100\n1048577\n1\n1\na 0 8\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(in))
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

// TestParse_LargeHeaderWithinBounds checks that a header promising many
// more ops than the file holds is reported, not preallocated.
func TestParse_LargeHeaderWithinBounds(t *testing.T) {
	in := fmt.Sprintf("100\n%d\n%d\n1\na 0 8\nf 0\n", MaxIDs, MaxOps)
	var err error
	require.NotPanics(t, func() { _, err = Parse(strings.NewReader(in)) })
	require.ErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), "found 2")
}

func TestWriteTo_ParseRoundTrip(t *testing.T) {
	tr, err := Parse(strings.NewReader(shortTrace))
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := tr.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(out.Len()), n)

	again, err := Parse(&out)
	require.NoError(t, err)
	assert.Equal(t, tr, again)
}

func TestRandom_WellFormed(t *testing.T) {
	tr := Random(rand.New(rand.NewSource(1)), 200, 4096)

	allocs, frees := 0, 0
	live := make(map[int]bool)
	for _, op := range tr.Ops {
		switch op.Kind {
		case Alloc:
			require.False(t, live[op.ID], "id %d allocated twice", op.ID)
			live[op.ID] = true
			allocs++
		case Realloc:
			require.True(t, live[op.ID], "realloc of dead id %d", op.ID)
		case Free:
			require.True(t, live[op.ID], "free of dead id %d", op.ID)
			delete(live, op.ID)
			frees++
		}
		if op.Kind != Free {
			assert.GreaterOrEqual(t, op.Size, 1)
			assert.LessOrEqual(t, op.Size, 4096)
		}
	}
	assert.Equal(t, 200, allocs)
	assert.Equal(t, 200, frees)
	assert.Empty(t, live)
}

func TestReplay_ShortTrace(t *testing.T) {
	tr, err := Parse(strings.NewReader(shortTrace))
	require.NoError(t, err)

	a := newHeap(t)
	res, err := Replay(context.Background(), a, tr, &Options{CheckEvery: true})
	require.NoError(t, err)

	assert.Equal(t, 8, res.Ops)
	// Peak live payload is 768+128 after the second resize of id 0.
	assert.Equal(t, 768+128, res.PeakPayload)
	assert.Equal(t, a.HeapSize(), res.HeapSize)
	assert.Greater(t, res.Utilization(), 0.0)
	assert.LessOrEqual(t, res.Utilization(), 1.0)
	require.NoError(t, a.Check())
}

func TestReplay_RandomTraces(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		tr := Random(rand.New(rand.NewSource(seed)), 300, 2048)
		a := newHeap(t)
		res, err := Replay(context.Background(), a, tr, &Options{CheckEvery: seed == 1})
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, len(tr.Ops), res.Ops)
		require.NoError(t, a.Check())
		assert.Zero(t, a.Stats().AllocatedBlocks, "seed %d leaked blocks", seed)
	}
}

func TestReplay_Cancelled(t *testing.T) {
	tr, err := Parse(strings.NewReader(shortTrace))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Replay(ctx, newHeap(t), tr, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Ops)
}

func TestReplay_UnknownID(t *testing.T) {
	tr := &Trace{NumIDs: 1, Ops: []Op{{Kind: Free, ID: 0}}}
	_, err := Replay(context.Background(), newHeap(t), tr, nil)
	require.ErrorIs(t, err, ErrUnknownID)
}

func TestReplay_RejectsMalformedTrace(t *testing.T) {
	_, err := Replay(context.Background(), newHeap(t), &Trace{NumIDs: MaxIDs + 1}, nil)
	require.Error(t, err)
	_, err = Replay(context.Background(), newHeap(t), &Trace{NumIDs: -1}, nil)
	require.Error(t, err)

	tr := &Trace{NumIDs: 1, Ops: []Op{{Kind: Alloc, ID: 3, Size: 8}}}
	require.NotPanics(t, func() { _, err = Replay(context.Background(), newHeap(t), tr, nil) })
	require.ErrorContains(t, err, "out of range")
}

func TestReplay_ExhaustedHeapReportsOp(t *testing.T) {
	a, err := alloc.New(heap.NewMem(4096), nil)
	require.NoError(t, err)
	tr := &Trace{NumIDs: 2, Ops: []Op{
		{Kind: Alloc, ID: 0, Size: 1024},
		{Kind: Alloc, ID: 1, Size: 1 << 16},
	}}

	res, err := Replay(context.Background(), a, tr, nil)
	require.ErrorIs(t, err, alloc.ErrNoSpace)
	assert.Contains(t, err.Error(), "op 1")
	assert.Equal(t, 1, res.Ops)
}

// overlapping hands out the same payload for every Alloc.
type overlapping struct {
	*alloc.Allocator
	first block.Handle
}

func (o *overlapping) Alloc(size int) (block.Handle, error) {
	if o.first == block.Nil {
		h, err := o.Allocator.Alloc(size)
		o.first = h
		return h, err
	}
	return o.first, nil
}

func TestReplay_DetectsOverlap(t *testing.T) {
	h := &overlapping{Allocator: newHeap(t)}
	tr := &Trace{NumIDs: 2, Ops: []Op{
		{Kind: Alloc, ID: 0, Size: 64},
		{Kind: Alloc, ID: 1, Size: 64},
	}}
	_, err := Replay(context.Background(), h, tr, nil)
	require.ErrorIs(t, err, ErrOverlap)

	h = &overlapping{Allocator: newHeap(t)}
	_, err = Replay(context.Background(), h, tr, &Options{SkipValidation: true})
	require.NoError(t, err)
}

// scribbling corrupts every payload it hands out after the first write.
type scribbling struct {
	*alloc.Allocator
	calls int
}

func (s *scribbling) Payload(h block.Handle) ([]byte, error) {
	p, err := s.Allocator.Payload(h)
	s.calls++
	if err == nil && s.calls > 1 {
		p[0] ^= 0xFF
	}
	return p, err
}

func TestReplay_DetectsCorruption(t *testing.T) {
	h := &scribbling{Allocator: newHeap(t)}
	tr := &Trace{NumIDs: 1, Ops: []Op{
		{Kind: Alloc, ID: 0, Size: 32},
		{Kind: Free, ID: 0},
	}}
	_, err := Replay(context.Background(), h, tr, nil)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestResult_Rates(t *testing.T) {
	var r Result
	assert.Zero(t, r.Utilization())
	assert.Zero(t, r.Throughput())

	r = Result{Ops: 10, PeakPayload: 50, HeapSize: 100, Elapsed: 1e9}
	assert.InDelta(t, 0.5, r.Utilization(), 1e-9)
	assert.InDelta(t, 10.0, r.Throughput(), 1e-9)
}
