package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/dirty"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/internal/writer"
)

// heapFlags selects and sizes the region a command runs against.
type heapFlags struct {
	region  string
	path    string
	maxHeap string
	chunk   int
	flush   string
	save    string
}

func (f *heapFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.region, "region", "mem", "Region backing the heap: mem or file")
	fs.StringVar(&f.path, "file", "", "Heap file for --region file (default: a temporary file, removed afterwards)")
	fs.StringVar(&f.maxHeap, "max-heap", "20MiB", "Largest size the heap may grow to, e.g. 64MiB")
	fs.IntVar(&f.chunk, "chunk", 0, "Minimum growth step in bytes (0 selects the allocator default)")
	fs.StringVar(&f.flush, "flush", "", "Flush a file-backed heap when done: auto, data or full")
	fs.StringVar(&f.save, "save", "", "Write a snapshot of the final heap to this path")
}

// session is one allocator over one region.
type session struct {
	a       *alloc.Allocator
	region  heap.Region
	sink    writer.ImageWriter
	file    *heap.File
	tracker *dirty.Tracker
	flush   dirty.FlushMode
	doFlush bool
	scratch string // temporary heap file to remove on close
}

// open creates the region described by f and lays out an empty heap in it.
func (f *heapFlags) open() (*session, error) {
	limit, err := humanize.ParseBytes(f.maxHeap)
	if err != nil {
		return nil, fmt.Errorf("invalid --max-heap %q: %w", f.maxHeap, err)
	}
	if limit > format.MaxRegionSize {
		return nil, fmt.Errorf("--max-heap %s exceeds the %s region limit",
			humanize.IBytes(limit), humanize.IBytes(format.MaxRegionSize))
	}

	s := &session{}
	if f.flush != "" {
		mode, ok := dirty.ParseFlushMode(f.flush)
		if !ok {
			return nil, fmt.Errorf("invalid --flush %q (want auto, data or full)", f.flush)
		}
		s.flush, s.doFlush = mode, true
	}

	opts := &alloc.Options{ChunkSize: f.chunk}
	var r heap.Region
	switch f.region {
	case "mem":
		if s.doFlush {
			return nil, errors.New("--flush requires --region file")
		}
		r = heap.NewMem(int(limit))
	case "file":
		path := f.path
		if path == "" {
			dir, err := os.MkdirTemp("", "heapctl-")
			if err != nil {
				return nil, err
			}
			s.scratch = dir
			path = filepath.Join(dir, "heap.bin")
		}
		fr, err := heap.OpenFile(path, int(limit))
		if err != nil {
			s.cleanup()
			return nil, fmt.Errorf("failed to open heap file: %w", err)
		}
		s.file = fr
		s.tracker = dirty.NewTracker(fr)
		opts.Tracker = s.tracker
		r = fr
	default:
		return nil, fmt.Errorf("invalid --region %q (want mem or file)", f.region)
	}

	a, err := alloc.New(r, opts)
	if err != nil {
		if s.file != nil {
			s.file.Close()
		}
		s.cleanup()
		return nil, err
	}
	s.a = a
	s.region = r
	if f.save != "" {
		s.sink = &writer.FileWriter{Path: f.save}
	}
	logger.Debug("heap opened", "region", f.region, "limit", limit, "chunk", f.chunk)
	return s, nil
}

// close saves a snapshot and flushes a file-backed heap if asked to, then
// releases the region.
func (s *session) close(ctx context.Context) error {
	var err error
	if s.sink != nil {
		err = s.sink.WriteImage(s.region.Bytes())
	}
	if err == nil && s.doFlush && s.tracker != nil {
		pending := s.tracker.Len()
		if err = s.tracker.Flush(ctx, s.flush); err == nil {
			logger.Debug("heap flushed", "mode", s.flush.String(), "ranges", pending)
		}
	}
	if cerr := s.a.Close(); err == nil {
		err = cerr
	}
	s.cleanup()
	return err
}

func (s *session) cleanup() {
	if s.scratch != "" {
		os.RemoveAll(s.scratch)
		s.scratch = ""
	}
}
