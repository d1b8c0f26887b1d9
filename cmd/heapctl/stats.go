package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
)

var (
	statsHeap heapFlags
	statsOps  int
)

func init() {
	cmd := newStatsCmd()
	statsHeap.register(cmd.Flags())
	cmd.Flags().IntVar(&statsOps, "ops", 0, "Stop after this many operations (0 = whole trace)")
	rootCmd.AddCommand(cmd)
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <trace>",
		Short: "Replay a trace and show allocator statistics",
		Long: `The stats command replays a trace and prints the allocator's counters
(calls, splits, merges, growth) together with a walk of the final heap: block
counts, free bytes, the largest free block and bucket occupancy. Use --ops to
stop midway, before the trace frees everything.

Example:
  heapctl stats --ops 500 random.rep
  heapctl stats random.rep --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReplayedHeap(cmd.Context(), args[0], &statsHeap, statsOps, func(a *alloc.Allocator) error {
				s := a.Stats()
				if jsonOut {
					return printJSON(s)
				}
				printInfo("Heap: %s (%s bytes), %s free in %s blocks\n",
					formatBytes(s.HeapSize), formatNumber(int64(s.HeapSize)),
					formatBytes(int(s.FreeBytes)), formatNumber(int64(s.FreeBlocks)))
				if !quiet {
					s.PrintStats(os.Stdout)
				}
				return nil
			})
		},
	}
}
