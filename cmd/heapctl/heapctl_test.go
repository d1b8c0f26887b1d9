package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/trace"
)

func TestRun_Table(t *testing.T) {
	resetFlags(t)
	path := writeTrace(t, "short.rep", shortTrace)

	out, err := captureOutput(t, func() error {
		return runRun(context.Background(), []string{path})
	})
	require.NoError(t, err)
	assert.Contains(t, out, "short.rep")
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "mean")
}

func TestRun_JSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	runCheck = true
	path := writeTrace(t, "short.rep", shortTrace)

	out, err := captureOutput(t, func() error {
		return runRun(context.Background(), []string{path})
	})
	require.NoError(t, err)

	var reports []RunReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	r := reports[0]
	assert.Empty(t, r.Error)
	assert.Equal(t, 8, r.Ops)
	assert.Equal(t, 768+128, r.PeakPayload)
	assert.Greater(t, r.Utilization, 0.0)
	assert.LessOrEqual(t, r.Utilization, 1.0)
}

func TestRun_ReportsFailuresAndContinues(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	good := writeTrace(t, "good.rep", shortTrace)
	bad := writeTrace(t, "bad.rep", "100\n1\n1\n1\nx 0 8\n")

	out, err := captureOutput(t, func() error {
		return runRun(context.Background(), []string{bad, good, filepath.Join(t.TempDir(), "missing.rep")})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 traces failed")

	var reports []RunReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 3)
	assert.Contains(t, reports[0].Error, "syntax")
	assert.Empty(t, reports[1].Error)
	assert.Contains(t, reports[2].Error, "failed to open trace")
}

func TestRun_HeapLimit(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	runHeap.maxHeap = "4KiB"
	path := writeTrace(t, "big.rep", "0\n1\n1\n1\na 0 100000\n")

	out, err := captureOutput(t, func() error {
		return runRun(context.Background(), []string{path})
	})
	require.Error(t, err)
	var reports []RunReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	assert.Contains(t, reports[0].Error, "no free block")
}

func TestGen_ThenRun(t *testing.T) {
	resetFlags(t)
	genOut = filepath.Join(t.TempDir(), "random.rep")
	genIDs = 200
	genMaxSize = 8192
	genSeed = 42
	require.NoError(t, runGen())

	f, err := os.Open(genOut)
	require.NoError(t, err)
	tr, err := trace.Parse(f)
	f.Close()
	require.NoError(t, err)
	assert.Equal(t, 200, tr.NumIDs)

	_, err = captureOutput(t, func() error {
		return runRun(context.Background(), []string{genOut})
	})
	require.NoError(t, err)
}

func TestGen_RejectsBadFlags(t *testing.T) {
	resetFlags(t)
	genIDs = 0
	assert.Error(t, runGen())
	genIDs, genMaxSize = 10, -1
	assert.Error(t, runGen())
}

func TestRunFileRegion_ThenCheckImage(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("file-backed regions need mmap")
	}
	resetFlags(t)
	image := filepath.Join(t.TempDir(), "heap.bin")
	runHeap.region = "file"
	runHeap.path = image
	runHeap.flush = "auto"
	// Leave blocks live so the image is more than an empty heap.
	path := writeTrace(t, "leaky.rep", "0\n3\n3\n1\na 0 100\na 1 5000\na 2 24\n")

	_, err := captureOutput(t, func() error {
		return runRun(context.Background(), []string{path})
	})
	require.NoError(t, err)

	out, err := captureOutput(t, func() error { return runCheckImage(image) })
	require.NoError(t, err)
	assert.Contains(t, out, "ok, heap of")
}

func TestCheckImage_Corrupt(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	image := filepath.Join(t.TempDir(), "zero.bin")
	require.NoError(t, os.WriteFile(image, make([]byte, 4096), 0o644))

	out, err := captureOutput(t, func() error { return runCheckImage(image) })
	require.Error(t, err)

	var rep CheckReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.False(t, rep.Valid)
	assert.Equal(t, "Epilogue", rep.Type)
	assert.Equal(t, 4096, rep.FileSize)
}

func TestDump_PartialTrace(t *testing.T) {
	resetFlags(t)
	path := writeTrace(t, "short.rep", shortTrace)

	out, err := captureOutput(t, func() error {
		return withReplayedHeap(context.Background(), path, &dumpHeap, 2, func(a *alloc.Allocator) error {
			a.Dump(os.Stdout)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Contains(t, out, "prologue")
	assert.Contains(t, out, "epilogue")
	assert.Equal(t, 2, strings.Count(out, "alloc size"), "two live blocks after two ops:\n%s", out)
}

func TestStats_JSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	path := writeTrace(t, "short.rep", shortTrace)

	out, err := captureOutput(t, func() error {
		return withReplayedHeap(context.Background(), path, &statsHeap, 4, func(a *alloc.Allocator) error {
			return printJSON(a.Stats())
		})
	})
	require.NoError(t, err)

	var s alloc.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 3, s.AllocatedBlocks)
	assert.GreaterOrEqual(t, s.AllocCalls, 4)
	assert.Equal(t, 1, s.ReallocCalls)
}

func TestSession_InvalidFlags(t *testing.T) {
	cases := map[string]heapFlags{
		"region":   {region: "disk", maxHeap: "1MiB"},
		"max-heap": {region: "mem", maxHeap: "lots"},
		"too big":  {region: "mem", maxHeap: "1TiB"},
		"flush":    {region: "file", maxHeap: "1MiB", flush: "sometimes"},
		"mem+sync": {region: "mem", maxHeap: "1MiB", flush: "auto"},
	}
	for name, hf := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := hf.open()
			assert.Error(t, err)
		})
	}
	_, err := (&heapFlags{region: "mem", maxHeap: "1MiB"}).open()
	assert.NoError(t, err)
	assert.Error(t, withReplayedHeap(context.Background(), "x", &heapFlags{}, -1, nil))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "1,234,567", formatNumber(1234567))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "20 MiB", formatBytes(20<<20))
}

func TestRunSave_ThenCheckImage(t *testing.T) {
	resetFlags(t)
	image := filepath.Join(t.TempDir(), "snap.img")
	runHeap.save = image
	path := writeTrace(t, "leaky.rep", "0\n2\n2\n1\na 0 300\na 1 40\n")

	_, err := captureOutput(t, func() error {
		return runRun(context.Background(), []string{path})
	})
	require.NoError(t, err)

	img, err := os.ReadFile(image)
	require.NoError(t, err)
	assert.Zero(t, len(img)%8)

	out, err := captureOutput(t, func() error { return runCheckImage(image) })
	require.NoError(t, err)
	assert.Contains(t, out, "ok, heap of")
}

func TestRun_OversizedHeaderIsReported(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	path := writeTrace(t, "huge.rep", "100\n1\n999999999999999\n1\na 0 8\n")

	var out string
	var err error
	require.NotPanics(t, func() {
		out, err = captureOutput(t, func() error {
			return runRun(context.Background(), []string{path})
		})
	})
	require.Error(t, err)

	var reports []RunReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Contains(t, reports[0].Error, "op count")
}

func TestVersion(t *testing.T) {
	resetFlags(t)
	out, err := captureOutput(t, runVersion)
	require.NoError(t, err)
	assert.Contains(t, out, "heapctl dev")
	assert.Contains(t, out, "buckets: 16, alignment: 8, min block: 16 B")
	assert.Contains(t, out, "default chunk: 528 B, default max heap: 20 MiB")

	jsonOut = true
	out, err = captureOutput(t, runVersion)
	require.NoError(t, err)
	var v VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, 16, v.Buckets)
	assert.Equal(t, 528, v.DefaultChunk)
	assert.Equal(t, uint32(0xFFFFFFFF), v.LinkNone)
	assert.Equal(t, runtime.Version(), v.GoVersion)
}
