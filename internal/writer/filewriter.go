// Package writer exposes sinks for heap image snapshots.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
)

// ImageWriter receives a copy of a heap region.
type ImageWriter interface {
	WriteImage(buf []byte) error
}

// FileWriter writes heap images to a filesystem path atomically.
type FileWriter struct {
	Path string
}

var _ ImageWriter = (*FileWriter)(nil)

// WriteImage writes buf to the configured path atomically via temp file + rename.
func (w *FileWriter) WriteImage(buf []byte) error {
	// Create temp file in same directory to ensure atomic rename
	dir := filepath.Dir(w.Path)
	tmpFile, err := os.CreateTemp(dir, ".heapctl-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, writeErr := tmpFile.Write(buf); writeErr != nil {
		return fmt.Errorf("write temp file: %w", writeErr)
	}
	if syncErr := tmpFile.Sync(); syncErr != nil {
		return fmt.Errorf("sync temp file: %w", syncErr)
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		return fmt.Errorf("close temp file: %w", closeErr)
	}
	tmpFile = nil

	if renameErr := os.Rename(tmpPath, w.Path); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", renameErr)
	}
	return nil
}
