package main

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/internal/format"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// VersionInfo is what `heapctl version` reports: the build, and the heap
// layout this binary reads and writes. Images are only portable between
// builds whose layout fields agree.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Built     string `json:"built"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`

	Buckets        int    `json:"buckets"`
	Alignment      int    `json:"alignment"`
	MinBlock       int    `json:"min_block"`
	DefaultChunk   int    `json:"default_chunk"`
	DefaultMaxHeap int    `json:"default_max_heap"`
	FileRegion     bool   `json:"file_region"`
	LinkNone       uint32 `json:"link_none"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and heap layout information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func buildInfo() VersionInfo {
	v := VersionInfo{
		Version:        version,
		Commit:         commit,
		Built:          date,
		GoVersion:      runtime.Version(),
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
		Buckets:        format.NumBuckets,
		Alignment:      format.Alignment,
		MinBlock:       format.MinBlockSize,
		DefaultChunk:   format.DefaultChunkSize,
		DefaultMaxHeap: heap.DefaultMaxHeap,
		FileRegion:     runtime.GOOS == "linux" || runtime.GOOS == "darwin",
		LinkNone:       format.LinkNone,
	}
	// Binaries built with plain `go build` carry VCS stamps instead of ldflags.
	if bi, ok := debug.ReadBuildInfo(); ok && v.Commit == "none" {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				v.Commit = s.Value
			}
		}
	}
	return v
}

func runVersion() error {
	v := buildInfo()
	if jsonOut {
		return printJSON(v)
	}

	printInfo("heapctl %s\n", v.Version)
	printInfo("  commit: %s\n", v.Commit)
	printInfo("  built: %s\n", v.Built)
	printInfo("  go: %s (%s)\n", v.GoVersion, v.Platform)
	printInfo("heap layout:\n")
	printInfo("  buckets: %d, alignment: %d, min block: %s\n",
		v.Buckets, v.Alignment, formatBytes(v.MinBlock))
	printInfo("  default chunk: %s, default max heap: %s\n",
		formatBytes(v.DefaultChunk), formatBytes(v.DefaultMaxHeap))
	printInfo("  link sentinel: %#x, file regions: %v\n", v.LinkNone, v.FileRegion)
	return nil
}
