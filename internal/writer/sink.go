// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cordex Contributors

package writer

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
)

// Sink receives a header once and then one row per matched collocation.
// A structure's rows are always written together, so a split-by-structure
// Sink can open and close its underlying file around that block.
type Sink interface {
	Open(structureID string, header []string) error
	WriteRow(row []string) error
	Close() error
}

// FieldJoiningSink writes rows through a bufio.Writer, joining cells with
// Separator (Formatter.separator in the original).
type FieldJoiningSink struct {
	Separator string
	w         *bufio.Writer
	closer    io.Closer
}

func (s *FieldJoiningSink) writeLine(cells []string) error {
	if _, err := s.w.WriteString(strings.Join(cells, s.Separator)); err != nil {
		return oops.Wrapf(err, "write row")
	}
	if _, err := s.w.WriteString("\n"); err != nil {
		return oops.Wrapf(err, "write newline")
	}
	return nil
}

func (s *FieldJoiningSink) WriteRow(row []string) error { return s.writeLine(row) }

func (s *FieldJoiningSink) Close() error {
	if err := s.w.Flush(); err != nil {
		return oops.Wrapf(err, "flush sink")
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// singleFileSink writes every structure's rows into one already-open
// file, with the header emitted exactly once.
type singleFileSink struct {
	FieldJoiningSink
	headerWritten bool
}

// NewSingleFileSink opens path and returns a Sink that concatenates every
// structure's output into it, one shared header up front.
func NewSingleFileSink(path, separator string) (Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, oops.Wrapf(err, "create output file %s", path)
	}
	return &singleFileSink{FieldJoiningSink: FieldJoiningSink{Separator: separator, w: bufio.NewWriter(f), closer: f}}, nil
}

func (s *singleFileSink) Open(structureID string, header []string) error {
	if s.headerWritten {
		return nil
	}
	s.headerWritten = true
	return s.writeLine(header)
}

func (s *singleFileSink) Close() error { return s.FieldJoiningSink.Close() }

// splitSink writes one file per structure, named <dir>/<structureID><ext>,
// mirroring Writer.write_out's per-structure split mode.
type splitSink struct {
	dir, ext, separator string
	current             *FieldJoiningSink
}

// NewSplitSink returns a Sink that opens a fresh file under dir each time
// Open is called with a new structure id.
func NewSplitSink(dir, ext, separator string) Sink {
	return &splitSink{dir: dir, ext: ext, separator: separator}
}

func (s *splitSink) Open(structureID string, header []string) error {
	if s.current != nil {
		if err := s.current.Close(); err != nil {
			return err
		}
	}
	path := filepath.Join(s.dir, structureID+s.ext)
	f, err := os.Create(path)
	if err != nil {
		return oops.Wrapf(err, "create structure output file %s", path)
	}
	s.current = &FieldJoiningSink{Separator: s.separator, w: bufio.NewWriter(f), closer: f}
	return s.current.writeLine(header)
}

func (s *splitSink) WriteRow(row []string) error {
	if s.current == nil {
		return oops.Errorf("WriteRow called before Open")
	}
	return s.current.WriteRow(row)
}

func (s *splitSink) Close() error {
	if s.current == nil {
		return nil
	}
	return s.current.Close()
}

// MemorySink collects rows in memory, for tests and for callers that want
// to post-process before persisting.
type MemorySink struct {
	Header []string
	Rows   [][]string
}

func (s *MemorySink) Open(structureID string, header []string) error {
	s.Header = header
	return nil
}

func (s *MemorySink) WriteRow(row []string) error {
	s.Rows = append(s.Rows, row)
	return nil
}

func (s *MemorySink) Close() error { return nil }
