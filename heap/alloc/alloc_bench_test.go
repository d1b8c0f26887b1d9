package alloc

import (
	"math/rand"
	"testing"

	"github.com/joshuapare/heapkit/heap"
)

// Benchmark_AllocFree_SmallBlocks measures the fast path: each free leaves a
// block the next allocation reuses.
func Benchmark_AllocFree_SmallBlocks(b *testing.B) {
	a, err := New(heap.NewMem(0), nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		h, allocErr := a.Alloc(16 + (i%64)*2)
		if allocErr != nil {
			b.Fatal(allocErr)
		}
		if freeErr := a.Free(h); freeErr != nil {
			b.Fatal(freeErr)
		}
	}
}

// Benchmark_Alloc_Fragmented allocates into a heap riddled with small free
// holes, so first fit has to skip past them.
func Benchmark_Alloc_Fragmented(b *testing.B) {
	a, err := New(heap.NewMem(64<<20), nil)
	if err != nil {
		b.Fatal(err)
	}
	var hs []Handle
	for range 4096 {
		h, allocErr := a.Alloc(40)
		if allocErr != nil {
			b.Fatal(allocErr)
		}
		hs = append(hs, h)
	}
	for i := 0; i < len(hs); i += 2 {
		if freeErr := a.Free(hs[i]); freeErr != nil {
			b.Fatal(freeErr)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		h, allocErr := a.Alloc(200)
		if allocErr != nil {
			b.Fatal(allocErr)
		}
		if freeErr := a.Free(h); freeErr != nil {
			b.Fatal(freeErr)
		}
	}
}

// Benchmark_RandomWorkload mixes allocations, resizes and frees over a
// bounded live set.
func Benchmark_RandomWorkload(b *testing.B) {
	a, err := New(heap.NewMem(64<<20), nil)
	if err != nil {
		b.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))
	live := make([]Handle, 0, 1024)

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		switch {
		case len(live) < 1024 && (len(live) == 0 || rng.Intn(3) > 0):
			h, allocErr := a.Alloc(1 + rng.Intn(2048))
			if allocErr != nil {
				b.Fatal(allocErr)
			}
			live = append(live, h)
		case rng.Intn(2) == 0:
			i := rng.Intn(len(live))
			h, reErr := a.Realloc(live[i], 1+rng.Intn(2048))
			if reErr != nil {
				b.Fatal(reErr)
			}
			live[i] = h
		default:
			i := rng.Intn(len(live))
			if freeErr := a.Free(live[i]); freeErr != nil {
				b.Fatal(freeErr)
			}
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}
}
