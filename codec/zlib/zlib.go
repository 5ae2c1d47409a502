// Package zlib implements the zlib/gzip/legacy-compress(1) codec reader
// and writer (spec.md §4.6, §4.7). Decoding auto-selects gzip, zlib, or
// legacy LZW-compressed framing from the magic bytes already peeked by
// the dispatcher (spec.md §4.2's magic table); encoding always produces
// gzip, the only writable member of this family per spec.md §6's
// extension table (".gz → zlib").
package zlib

import (
	"compress/gzip"
	"compress/lzw"
	gozlib "compress/zlib"
	"io"

	"github.com/pkg/errors"

	"github.com/wandio-go/wandio/internal/status"
	"github.com/wandio-go/wandio/internal/wlog"
)

// peeker is the capability the dispatcher's peek stage gives this reader
// to classify the stream before consuming it (spec.md §4.2 step 4).
type peeker interface {
	Peek(buf []byte) (int, error)
}

type source interface {
	io.Reader
	io.Closer
}

// kind identifies which underlying framing the magic bytes selected.
type kind int

const (
	kindGzip kind = iota
	kindZlib
	kindLegacyCompress
)

func classify(magic []byte) kind {
	if len(magic) >= 2 && magic[0] == 0x1F && magic[1] == 0x8B {
		return kindGzip
	}
	if len(magic) >= 2 && magic[0] == 0x1F && magic[1] == 0x9D {
		return kindLegacyCompress
	}
	return kindZlib
}

// Reader decodes a zlib/gzip/legacy-compress stream from child.
//
// Multi-member gzip streams (spec.md §4.6: "some producers concatenate
// multiple gzip members") are handled by Go's compress/gzip directly:
// gzip.Reader defaults to Multistream(true), so concatenated members are
// transparently decoded as one logical stream with no manual re-init
// needed here, unlike a hand-rolled zlib binding. A stream truncated
// mid-member surfaces as io.ErrUnexpectedEOF from the stdlib reader,
// which Read below logs and returns wrapped as "zlib: truncated stream".
// That error carries no wandio Kind, so wandio.ErrKind reports
// KindUnknown for it, not KindTruncated.
type Reader struct {
	child  source
	dec    io.Reader
	status status.Status
}

// NewReader peeks enough of child to classify the framing, then
// constructs the matching decoder. child must support Peek (it is always
// the inner peek stage per the pipeline in spec.md §2).
func NewReader(child interface {
	source
	peeker
}) (*Reader, error) {
	magic := make([]byte, 3)
	n, err := child.Peek(magic)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "zlib: peek magic")
	}
	k := classify(magic[:n])

	var dec io.Reader
	switch k {
	case kindGzip:
		gz, err := gzip.NewReader(child)
		if err != nil {
			return nil, errors.Wrap(err, "zlib: gzip init")
		}
		dec = gz
	case kindLegacyCompress:
		dec = lzw.NewReader(child, lzw.LSB, 8)
	default:
		zr, err := gozlib.NewReader(child)
		if err != nil {
			return nil, errors.Wrap(err, "zlib: zlib init")
		}
		dec = zr
	}
	return &Reader{child: child, dec: dec}, nil
}

// Read implements the control pattern of spec.md §4.6: return any
// already-decoded bytes before raising an error, latch EOF/ERR sticky.
func (r *Reader) Read(buf []byte) (int, error) {
	switch r.status.State() {
	case status.EOF:
		return 0, io.EOF
	case status.ERR:
		return 0, r.status.Err()
	}
	n, err := r.dec.Read(buf)
	if err == nil {
		return n, nil
	}
	if err == io.EOF {
		r.status.LatchEOF()
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		wlog.Log.Error("zlib: compressed stream truncated before end of member")
		werr := errors.Wrap(err, "zlib: truncated stream")
		r.status.LatchErr(werr)
		if n > 0 {
			return n, nil
		}
		return 0, werr
	}
	werr := errors.Wrap(err, "zlib: decode failed")
	r.status.LatchErr(werr)
	if n > 0 {
		return n, nil
	}
	return 0, werr
}

// Close releases the decoder and its child.
func (r *Reader) Close() error {
	if c, ok := r.dec.(io.Closer); ok {
		_ = c.Close()
	}
	return r.child.Close()
}

type sink interface {
	io.Writer
	Flush() error
	io.Closer
}

// Writer encodes a gzip stream, the only member of this family spec.md §6
// writes (".gz → zlib"). Level maps directly onto gzip.NewWriterLevel.
type Writer struct {
	child sink
	enc   *gzip.Writer
}

// NewWriter constructs a gzip encoder writing to child at the given
// level (0..9; spec.md's dispatcher treats level 0 specially and never
// installs an encoder, so this constructor is only reached for 1..9).
func NewWriter(child sink, level int) (*Writer, error) {
	enc, err := gzip.NewWriterLevel(child, level)
	if err != nil {
		return nil, errors.Wrap(err, "zlib: writer init")
	}
	return &Writer{child: child, enc: enc}, nil
}

// Write encodes buf. gzip.Writer buffers internally and only emits to the
// child sink on Flush/Close or once its internal buffer fills, at which
// point a short write from the child is fatal (spec.md §4.7).
func (w *Writer) Write(buf []byte) (int, error) {
	n, err := w.enc.Write(buf)
	if err != nil {
		return n, errors.Wrap(err, "zlib: encode failed")
	}
	return n, nil
}

// Flush forces buffered codec state to the child, then flushes the
// child (spec.md §4.7).
func (w *Writer) Flush() error {
	if err := w.enc.Flush(); err != nil {
		return errors.Wrap(err, "zlib: flush failed")
	}
	return w.child.Flush()
}

// Close emits the gzip terminator, flushes, and closes the child.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		return errors.Wrap(err, "zlib: close failed")
	}
	return w.child.Close()
}
