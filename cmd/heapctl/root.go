package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/heapkit/internal/logger"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Replay, check and inspect segregated free-list heaps",
	Long: `heapctl drives the heapkit allocator. It replays allocation traces
against an in-memory or file-backed heap, validating every payload it hands
out, and reports space utilization and throughput. It can also generate
random traces and check heap images left on disk.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.Init(logger.Options{
			Enabled: verbose || cmd.Flags().Changed("log-level"),
			JSON:    jsonOut,
			Level:   level,
		})
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "info", "Log level on stderr: debug, info, warn, error")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

var numbers = message.NewPrinter(language.English)

// formatNumber renders n with thousands separators.
func formatNumber(n int64) string {
	return numbers.Sprintf("%d", n)
}

// formatBytes renders n in binary units, e.g. "1.5 MiB".
func formatBytes(n int) string {
	if n < 0 {
		return fmt.Sprintf("%d B", n)
	}
	return humanize.IBytes(uint64(n))
}
