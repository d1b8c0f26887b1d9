package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
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

// writeTrace writes body to a trace file in a fresh temp dir and returns its path.
func writeTrace(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write trace: %v", err)
	}
	return path
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	// Drain concurrently so large outputs cannot fill the pipe.
	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	out := <-done
	r.Close()

	return string(out), fnErr
}

// resetFlags restores every global flag to its default after the test.
func resetFlags(t *testing.T) {
	t.Helper()
	saved := struct {
		verbose, quiet, jsonOut bool
		run, dump, stats        heapFlags
		runCheck, runFast       bool
		dumpOps, statsOps       int
		genIDs, genMaxSize      int
		genSeed                 int64
		genOut                  string
	}{
		verbose, quiet, jsonOut,
		runHeap, dumpHeap, statsHeap,
		runCheck, runFast,
		dumpOps, statsOps,
		genIDs, genMaxSize,
		genSeed,
		genOut,
	}
	t.Cleanup(func() {
		verbose, quiet, jsonOut = saved.verbose, saved.quiet, saved.jsonOut
		runHeap, dumpHeap, statsHeap = saved.run, saved.dump, saved.stats
		runCheck, runFast = saved.runCheck, saved.runFast
		dumpOps, statsOps = saved.dumpOps, saved.statsOps
		genIDs, genMaxSize = saved.genIDs, saved.genMaxSize
		genSeed = saved.genSeed
		genOut = saved.genOut
	})
}
