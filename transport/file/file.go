// Package file provides the descriptor-backed Source and Sink (spec.md
// §4.4): a thin wrapper over an *os.File that delegates read/write/seek
// straight through and adds nothing of its own beyond error wrapping.
package file

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// Source is a read-only file-descriptor-backed stream stage.
type Source struct {
	f      *os.File
	closed bool
}

// Open opens name read-only as a Source. The special name "-" opens
// standard input (spec.md §4.2: "A filename of '-' means the standard
// input stream").
func Open(name string) (*Source, error) {
	if name == "-" {
		return &Source{f: os.Stdin}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "file: open %q", name)
	}
	return &Source{f: f}, nil
}

// Read delegates to the underlying descriptor.
func (s *Source) Read(p []byte) (int, error) {
	n, err := s.f.Read(p)
	if err != nil && err != io.EOF {
		return n, errors.Wrap(err, "file: read")
	}
	return n, err
}

// Tell returns the descriptor's current offset.
func (s *Source) Tell() (int64, error) {
	pos, err := s.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errors.Wrap(err, "file: tell")
	}
	return pos, nil
}

// Seek delegates to the descriptor's seek (whence uses the io.Seek*
// numbering, which spec.md's SEEK_SET/SEEK_CUR/SEEK_END map onto
// directly).
func (s *Source) Seek(offset int64, whence int) (int64, error) {
	pos, err := s.f.Seek(offset, whence)
	if err != nil {
		return 0, errors.Wrap(err, "file: seek")
	}
	return pos, nil
}

// Close closes the descriptor. Closing stdin is a no-op so a caller that
// wraps os.Stdin can Close its whole pipeline without taking down the
// process's standard input for anyone else. A second Close is also a
// no-op (spec.md §3: "Close may be called more than once").
func (s *Source) Close() error {
	if s.closed || s.f == os.Stdin {
		s.closed = true
		return nil
	}
	s.closed = true
	if err := s.f.Close(); err != nil {
		return errors.Wrap(err, "file: close")
	}
	return nil
}

// Sink is a write-only file-descriptor-backed stream stage.
type Sink struct {
	f      *os.File
	closed bool
}

// OpenFlags mirror the subset of os.OpenFile flags a writer needs (append
// vs. truncate, create).
type OpenFlags int

// Flags recognized by Create.
const (
	FlagTruncate OpenFlags = 1 << iota
	FlagAppend
)

// Create opens name for writing as a Sink. "-" opens standard output.
func Create(name string, flags OpenFlags) (*Sink, error) {
	if name == "-" {
		return &Sink{f: os.Stdout}, nil
	}
	osFlags := os.O_WRONLY | os.O_CREATE
	if flags&FlagAppend != 0 {
		osFlags |= os.O_APPEND
	} else {
		osFlags |= os.O_TRUNC
	}
	f, err := os.OpenFile(name, osFlags, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "file: create %q", name)
	}
	return &Sink{f: f}, nil
}

// Write is all-or-error: os.File.Write already has that contract for
// regular files, so this just wraps the error (spec.md Open Question #4).
func (s *Sink) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	if err != nil {
		return n, errors.Wrap(err, "file: write")
	}
	if n != len(p) {
		return n, errors.New("file: short write")
	}
	return n, nil
}

// Flush is a no-op for a plain descriptor (spec.md §4.4: "flush is a
// no-op unless the descriptor requires it").
func (s *Sink) Flush() error { return nil }

// Close closes the descriptor. Closing stdout is a no-op for the same
// reason as Source.Close on stdin, and a second Close is a no-op too.
func (s *Sink) Close() error {
	if s.closed || s.f == os.Stdout {
		s.closed = true
		return nil
	}
	s.closed = true
	if err := s.f.Close(); err != nil {
		return errors.Wrap(err, "file: close")
	}
	return nil
}
