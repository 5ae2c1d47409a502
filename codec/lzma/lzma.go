// Package lzma implements the lzma/xz codec reader and writer (spec.md
// §4.6, §4.7) via github.com/ulikunitz/xz, the same library
// rclone's xz writer helper in _examples/rclone-rclone/backend/compress uses for its xz block writer.
package lzma

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
	rawlzma "github.com/ulikunitz/xz/lzma"

	"github.com/wandio-go/wandio/internal/status"
)

type source interface {
	io.Reader
	io.Closer
}

// Reader decodes an xz or raw-lzma stream (spec.md §4.6: "Auto-decoder
// (accepts xz or raw lzma)"). xz is tried first since it is what the
// dispatcher's magic table (spec.md §4.2) actually routes here; raw lzma
// has no stable magic of its own, so it is only attempted as a fallback
// when the xz header does not match.
type Reader struct {
	child  source
	dec    io.Reader
	status status.Status
}

// NewReader wraps child, which has already matched the xz magic bytes
// per spec.md §4.2's dispatch table (or is being opened directly by a
// caller that knows it holds raw lzma).
func NewReader(child source) (*Reader, error) {
	// Stage the header bytes so the raw-lzma fallback can replay what the
	// failed xz attempt consumed.
	head := make([]byte, xz.HeaderLen)
	n, _ := io.ReadFull(child, head)
	xr, err := xz.NewReader(io.MultiReader(bytes.NewReader(head[:n]), child))
	if err == nil {
		return &Reader{child: child, dec: xr}, nil
	}
	lr, lerr := rawlzma.NewReader(io.MultiReader(bytes.NewReader(head[:n]), child))
	if lerr != nil {
		return nil, errors.Wrap(err, "lzma: neither xz nor raw lzma header recognized")
	}
	return &Reader{child: child, dec: lr}, nil
}

// Read follows the shared codec control pattern (spec.md §4.6): a child
// EOF with no output bytes produced latches EOF.
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
		werr := errors.Wrap(err, "lzma: decode failed")
		r.status.LatchErr(werr)
		if n > 0 {
			return n, nil
		}
		return 0, werr
	}
}

// Close releases the child.
func (r *Reader) Close() error {
	return r.child.Close()
}

type sink interface {
	io.Writer
	Flush() error
	io.Closer
}

// Writer encodes an xz stream (spec.md §6: ".xz → lzma").
type Writer struct {
	child sink
	enc   *xz.Writer
}

// NewWriter constructs an xz encoder writing to child. xz's public
// WriterConfig (as used by rclone's xz writer helper in _examples/rclone-rclone/backend/compress) does not
// expose a numeric preset knob; level is accepted for interface symmetry
// with the other codec writers and otherwise ignored, same as the
// teacher's AlgXZ which takes only a block size.
func NewWriter(child sink, level int) (*Writer, error) {
	cfg := xz.WriterConfig{}
	enc, err := cfg.NewWriter(child)
	if err != nil {
		return nil, errors.Wrap(err, "lzma: writer init")
	}
	return &Writer{child: child, enc: enc}, nil
}

// Write encodes buf (spec.md §4.7: all-or-error against the child).
func (w *Writer) Write(buf []byte) (int, error) {
	n, err := w.enc.Write(buf)
	if err != nil {
		return n, errors.Wrap(err, "lzma: encode failed")
	}
	return n, nil
}

// Flush is unsupported by xz's block format mid-stream in the library's
// current API, so this flushes only the child; buffered codec state is
// still finalized correctly on Close.
func (w *Writer) Flush() error {
	return w.child.Flush()
}

// Close finalizes the xz stream and closes the child.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		return errors.Wrap(err, "lzma: close failed")
	}
	return w.child.Close()
}
