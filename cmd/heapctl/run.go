package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/trace"
	"github.com/joshuapare/heapkit/internal/logger"
)

var (
	runHeap  heapFlags
	runCheck bool
	runFast  bool
)

func init() {
	cmd := newRunCmd()
	runHeap.register(cmd.Flags())
	cmd.Flags().BoolVar(&runCheck, "check", false, "Run the heap checker after every operation")
	cmd.Flags().BoolVar(&runFast, "fast", false, "Skip payload validation (time the allocator alone)")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <trace>...",
		Short: "Replay allocation traces",
		Long: `The run command replays each trace against a fresh heap. Every payload
handed out is checked for alignment, bounds, overlap with other live payloads
and, before it is freed or resized, for intact contents.

Utilization is the peak number of live requested bytes divided by the final
heap size. Throughput is operations per second.

Example:
  heapctl run traces/*.rep
  heapctl run --check --chunk 4096 short1.rep
  heapctl run --region file --file heap.bin --flush auto binary.rep
  heapctl run --json random.rep`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), args)
		},
	}
	return cmd
}

// RunReport is one trace's outcome.
type RunReport struct {
	Trace       string        `json:"trace"`
	Ops         int           `json:"ops"`
	HeapSize    int           `json:"heap_size"`
	PeakPayload int           `json:"peak_payload"`
	Utilization float64       `json:"utilization"`
	Throughput  float64       `json:"ops_per_sec"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Error       string        `json:"error,omitempty"`
}

func runRun(ctx context.Context, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reports := make([]RunReport, 0, len(paths))
	failed := 0
	for _, path := range paths {
		rep := replayFile(ctx, path)
		if rep.Error != "" {
			failed++
			logger.Warn("trace failed", "trace", path, "err", rep.Error)
		}
		reports = append(reports, rep)
	}

	if jsonOut {
		if err := printJSON(reports); err != nil {
			return err
		}
	} else {
		printRunTable(reports)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d traces failed", failed, len(paths))
	}
	return nil
}

// replayFile runs one trace on its own heap. Failures are reported in the
// result rather than returned so the remaining traces still run.
func replayFile(ctx context.Context, path string) RunReport {
	rep := RunReport{Trace: filepath.Base(path)}
	fail := func(err error) RunReport {
		rep.Error = err.Error()
		return rep
	}

	tr, err := loadTrace(path)
	if err != nil {
		return fail(err)
	}
	printVerbose("Replaying %s: %s ops over %s ids\n",
		path, formatNumber(int64(len(tr.Ops))), formatNumber(int64(tr.NumIDs)))

	s, err := runHeap.open()
	if err != nil {
		return fail(err)
	}
	res, err := trace.Replay(ctx, s.a, tr, &trace.Options{
		CheckEvery:     runCheck,
		SkipValidation: runFast,
		Logger:         logger.L.With("trace", rep.Trace),
	})
	if err == nil {
		err = s.a.Check()
	}
	if cerr := s.close(ctx); err == nil {
		err = cerr
	}

	rep.Ops = res.Ops
	rep.HeapSize = res.HeapSize
	rep.PeakPayload = res.PeakPayload
	rep.Utilization = res.Utilization()
	rep.Throughput = res.Throughput()
	rep.Elapsed = res.Elapsed
	if err != nil {
		return fail(err)
	}
	return rep
}

func loadTrace(path string) (*trace.Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	tr, err := trace.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tr, nil
}

func printRunTable(reports []RunReport) {
	printInfo("%-24s %10s %10s %6s %12s  %s\n", "TRACE", "OPS", "HEAP", "UTIL", "OPS/SEC", "STATUS")
	printInfo("%s\n", strings.Repeat("-", 76))

	var ops int
	var util float64
	var elapsed time.Duration
	ok := 0
	for _, r := range reports {
		status := "ok"
		if r.Error != "" {
			status = "FAIL: " + r.Error
		} else {
			ok++
			ops += r.Ops
			util += r.Utilization
			elapsed += r.Elapsed
		}
		printInfo("%-24s %10s %10s %5.1f%% %12s  %s\n",
			r.Trace, formatNumber(int64(r.Ops)), formatBytes(r.HeapSize),
			100*r.Utilization, formatNumber(int64(r.Throughput)), status)
	}

	if ok == 0 {
		return
	}
	printInfo("%s\n", strings.Repeat("-", 76))
	tput := 0.0
	if elapsed > 0 {
		tput = float64(ops) / elapsed.Seconds()
	}
	printInfo("%-24s %10s %10s %5.1f%% %12s\n",
		"mean", formatNumber(int64(ops)), "", 100*util/float64(ok), formatNumber(int64(tput)))
}
