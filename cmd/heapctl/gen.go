package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/trace"
)

var (
	genIDs     int
	genMaxSize int
	genSeed    int64
	genOut     string
)

func init() {
	cmd := newGenCmd()
	cmd.Flags().IntVar(&genIDs, "ids", 100, "Number of distinct blocks in the trace")
	cmd.Flags().IntVar(&genMaxSize, "max-size", 4096, "Largest request size in bytes")
	cmd.Flags().Int64Var(&genSeed, "seed", 1, "Random seed")
	cmd.Flags().StringVarP(&genOut, "output", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(cmd)
}

func newGenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen",
		Short: "Generate a random trace",
		Long: `The gen command writes a random, well-formed trace: every id is
allocated once, resized any number of times and freed once.

Example:
  heapctl gen --ids 1000 --max-size 16384 -o random.rep
  heapctl gen --seed 7 | heapctl run /dev/stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen()
		},
	}
}

func runGen() error {
	if genIDs <= 0 {
		return fmt.Errorf("--ids must be positive, got %d", genIDs)
	}
	if genMaxSize <= 0 {
		return fmt.Errorf("--max-size must be positive, got %d", genMaxSize)
	}

	tr := trace.Random(rand.New(rand.NewSource(genSeed)), genIDs, genMaxSize)

	var w io.Writer = os.Stdout
	if genOut != "" {
		f, err := os.Create(genOut)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := tr.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	if genOut != "" {
		printVerbose("Wrote %s ops to %s\n", formatNumber(int64(len(tr.Ops))), genOut)
	}
	return nil
}
