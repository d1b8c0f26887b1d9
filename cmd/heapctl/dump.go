package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/trace"
	"github.com/joshuapare/heapkit/internal/logger"
)

var (
	dumpHeap heapFlags
	dumpOps  int
)

func init() {
	cmd := newDumpCmd()
	dumpHeap.register(cmd.Flags())
	cmd.Flags().IntVar(&dumpOps, "ops", 0, "Stop after this many operations (0 = whole trace)")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <trace>",
		Short: "Replay a trace and print every block and free list",
		Long: `The dump command replays a trace (or its first --ops operations) and
prints the heap in address order followed by the contents of every non-empty
bucket.

Example:
  heapctl dump short1.rep
  heapctl dump --ops 10 --chunk 64 short1.rep`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReplayedHeap(cmd.Context(), args[0], &dumpHeap, dumpOps, func(a *alloc.Allocator) error {
				a.Dump(os.Stdout)
				return nil
			})
		},
	}
}

// withReplayedHeap replays the first ops operations of the trace at path
// (all of them when ops is 0) on a fresh heap, hands the heap to fn, then
// closes it.
func withReplayedHeap(ctx context.Context, path string, hf *heapFlags, ops int, fn func(*alloc.Allocator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	tr, err := loadTrace(path)
	if err != nil {
		return err
	}
	if ops < 0 {
		return fmt.Errorf("--ops must not be negative, got %d", ops)
	}
	if ops > 0 && ops < len(tr.Ops) {
		tr.Ops = tr.Ops[:ops]
	}

	s, err := hf.open()
	if err != nil {
		return err
	}
	_, err = trace.Replay(ctx, s.a, tr, &trace.Options{Logger: logger.L})
	if err == nil {
		err = fn(s.a)
	}
	if cerr := s.close(ctx); err == nil {
		err = cerr
	}
	return err
}
