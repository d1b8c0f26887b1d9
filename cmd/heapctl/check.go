package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/verify"
)

func init() {
	rootCmd.AddCommand(newCheckCmd())
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <image>",
		Short: "Check a heap image on disk",
		Long: `The check command validates a heap image: a snapshot written with
--save, or the backing file of a file-backed run (heapctl run --region file
--file <image> --flush auto). Trailing bytes past the epilogue, such as page
padding, are ignored.

Example:
  heapctl check heap.bin
  heapctl check heap.bin --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckImage(args[0])
		},
	}
}

// CheckReport is the outcome of checking one image.
type CheckReport struct {
	Image    string         `json:"image"`
	FileSize int            `json:"file_size"`
	HeapSize int            `json:"heap_size"`
	Valid    bool           `json:"valid"`
	Error    string         `json:"error,omitempty"`
	Type     string         `json:"type,omitempty"`
	Offset   int            `json:"offset,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

func runCheckImage(path string) error {
	img, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	rep := CheckReport{Image: path, FileSize: len(img)}

	n, err := verify.Extent(img)
	if err == nil {
		rep.HeapSize = n
		err = verify.Heap(img[:n])
	}
	if err != nil {
		rep.Error = err.Error()
		var verr *verify.ValidationError
		if errors.As(err, &verr) {
			rep.Type, rep.Offset, rep.Details = verr.Type, verr.Offset, verr.Details
		}
	} else {
		rep.Valid = true
	}

	if jsonOut {
		if perr := printJSON(rep); perr != nil {
			return perr
		}
	} else if rep.Valid {
		printInfo("%s: ok, heap of %s (%s bytes) in a %s file\n",
			path, formatBytes(rep.HeapSize), formatNumber(int64(rep.HeapSize)), formatBytes(rep.FileSize))
	}

	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
