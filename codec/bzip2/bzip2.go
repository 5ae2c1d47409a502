// Package bzip2 implements the bzip2 codec reader and writer (spec.md
// §4.6, §4.7). bzip2 is single-member and strictly sequential (spec.md
// §4.6: "Single-member assumption; stream-end latches EOF"); it never
// implements Peek or Seek (spec.md's Non-goals: "Random-access reads
// through arbitrary compressed streams").
package bzip2

import (
	stdbzip2 "compress/bzip2"
	"io"

	dsbzip2 "github.com/dsnet/compress/bzip2"
	"github.com/pkg/errors"

	"github.com/wandio-go/wandio/internal/status"
)

type source interface {
	io.Reader
	io.Closer
}

// Reader decodes a bzip2 stream. Decoding uses the standard library
// (compress/bzip2 has no encoder, hence the separate writer below).
type Reader struct {
	child  source
	dec    io.Reader
	status status.Status
}

// NewReader wraps child; no magic sniffing is needed beyond what the
// dispatcher already did (spec.md §4.2's "BZh" entry), since bzip2 is
// only ever reached once its magic already matched.
func NewReader(child source) *Reader {
	return &Reader{child: child, dec: stdbzip2.NewReader(child)}
}

// Read follows the shared codec control pattern (spec.md §4.6).
func (r *Reader) Read(buf []byte) (int, error) {
	switch r.status.State() {
	case status.EOF:
		return 0, io.EOF
	case status.ERR:
		return 0, r.status.Err()
	}
	n, err := r.dec.Read(buf)
	switch err {
	case nil:
		return n, nil
	case io.EOF:
		r.status.LatchEOF()
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	default:
		werr := errors.Wrap(err, "bzip2: decode failed")
		r.status.LatchErr(werr)
		if n > 0 {
			return n, nil
		}
		return 0, werr
	}
}

// Close releases the child; compress/bzip2's reader holds no resources
// of its own to release.
func (r *Reader) Close() error {
	return r.child.Close()
}

type sink interface {
	io.Writer
	Flush() error
	io.Closer
}

// Writer encodes a bzip2 stream via github.com/dsnet/compress/bzip2,
// since the standard library provides decode only.
type Writer struct {
	child sink
	enc   *dsbzip2.Writer
}

// NewWriter constructs a bzip2 encoder at the given level (1..9; bzip2
// has no level 0 "store" mode distinct from level 1, so the dispatcher's
// level-0-means-no-codec rule, not this constructor, handles that case).
func NewWriter(child sink, level int) (*Writer, error) {
	if level < 1 {
		level = 1
	}
	enc, err := dsbzip2.NewWriter(child, &dsbzip2.WriterConfig{Level: level})
	if err != nil {
		return nil, errors.Wrap(err, "bzip2: writer init")
	}
	return &Writer{child: child, enc: enc}, nil
}

// Write encodes buf; dsnet's bzip2 writer buffers up to a block and is
// all-or-error on Write, matching spec.md's sink contract.
func (w *Writer) Write(buf []byte) (int, error) {
	n, err := w.enc.Write(buf)
	if err != nil {
		return n, errors.Wrap(err, "bzip2: encode failed")
	}
	return n, nil
}

// Flush has no meaningful effect mid-block for a block-based codec like
// bzip2 beyond what the library already buffers; it flushes the child so
// any already-emitted bytes reach the sink.
func (w *Writer) Flush() error {
	return w.child.Flush()
}

// Close finalizes the bzip2 stream and closes the child.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		return errors.Wrap(err, "bzip2: close failed")
	}
	return w.child.Close()
}
