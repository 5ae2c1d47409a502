// Package zstdlz4 implements the combined zstd+lz4 codec reader and
// writer spec.md §4.6 describes: a four-byte frame-header classifier
// selects per-frame between zstd, lz4, and skippable frames, handing a
// skippable frame to whichever backend was last active.
package zstdlz4

import (
	"io"

	"github.com/klauspost/compress/zstd"
	lz4 "github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"github.com/wandio-go/wandio/internal/status"
	"github.com/wandio-go/wandio/internal/wlog"
)

// Frame magic prefixes, spec.md §4.2's table.
var (
	magicZstd = [4]byte{0x28, 0xB5, 0x2F, 0xFD}
	magicLZ4  = [4]byte{0x04, 0x22, 0x4D, 0x18}
)

// skippableTail is the second half of a skippable-frame magic: high
// nibble of byte 0 is 5 (0x50..0x5F), followed by 2A 4D 18.
var skippableTail = [3]byte{0x2A, 0x4D, 0x18}

// frameKind is which backend a frame header selected.
type frameKind int

const (
	frameUnknown frameKind = iota
	frameZstd
	frameLZ4
	frameSkippable
)

// classify inspects up to 4 already-available input bytes. spec.md's
// Open Question (carried into DESIGN.md) requires this check gate on
// available *input* bytes, not the caller's requested output length —
// callers here must only pass bytes actually staged in the input buffer.
func classify(b []byte) frameKind {
	if len(b) < 4 {
		return frameUnknown
	}
	var h [4]byte
	copy(h[:], b[:4])
	if h == magicZstd {
		return frameZstd
	}
	if h == magicLZ4 {
		return frameLZ4
	}
	if h[0]&0xF0 == 0x50 && [3]byte{h[1], h[2], h[3]} == skippableTail {
		return frameSkippable
	}
	return frameUnknown
}

type source interface {
	io.Reader
	io.Closer
}

// inputBufSize is the 1 MiB staging buffer spec.md §4.6 specifies
// ("Reads into a 1 MiB input buffer").
const inputBufSize = 1 << 20

// Reader decodes a stream of zstd and/or lz4 frames, dispatching each
// frame to the matching backend decoder and re-classifying at each frame
// boundary.
type Reader struct {
	child     source
	status    status.Status
	staging   []byte // unconsumed input staged from child
	lastFrame frameKind

	zstdDec *zstd.Decoder
	lz4Dec  *lz4.Reader
	active  io.Reader // currently selected per-frame decoder, or nil between frames
}

// NewReader wraps child, whose first frame header has already matched
// one of the zstd/lz4/skippable prefixes per spec.md §4.2 (so Read can
// assume at least a first successful classification is possible once
// bytes are staged).
func NewReader(child source) (*Reader, error) {
	zd, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstdlz4: zstd decoder init")
	}
	return &Reader{child: child, zstdDec: zd}, nil
}

// fill tops up the staging buffer from the child, up to inputBufSize.
// Returns io.EOF only once the child is drained and staging is empty.
func (r *Reader) fill() error {
	if len(r.staging) >= inputBufSize {
		return nil
	}
	buf := make([]byte, inputBufSize-len(r.staging))
	n, err := r.child.Read(buf)
	if n > 0 {
		r.staging = append(r.staging, buf[:n]...)
	}
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "zstdlz4: child read failed")
	}
	if err == io.EOF && len(r.staging) == 0 {
		return io.EOF
	}
	return nil
}

// selectFrame classifies the next frame from staging and binds r.active
// to the matching backend. Requires at least 4 staged bytes to decide;
// callers must fill() first.
func (r *Reader) selectFrame() error {
	k := classify(r.staging)
	switch k {
	case frameZstd:
		r.lastFrame = frameZstd
		return r.bindZstd()
	case frameLZ4:
		r.lastFrame = frameLZ4
		return r.bindLZ4()
	case frameSkippable:
		// Hand the skippable frame to whichever backend was last
		// active; default to zstd if none yet (spec.md §4.6:
		// "configurable" — zstd is this implementation's default).
		if r.lastFrame == frameLZ4 {
			return r.bindLZ4()
		}
		return r.bindZstd()
	default:
		wlog.Log.Error("zstdlz4: unrecognized frame header")
		return errors.New("zstdlz4: unrecognized frame header")
	}
}

type stagingReader struct{ r *Reader }

func (s stagingReader) Read(p []byte) (int, error) {
	r := s.r
	if len(r.staging) == 0 {
		if err := r.fill(); err != nil {
			return 0, err
		}
		if len(r.staging) == 0 {
			return 0, io.EOF
		}
	}
	n := copy(p, r.staging)
	r.staging = r.staging[n:]
	return n, nil
}

func (r *Reader) bindZstd() error {
	if err := r.zstdDec.Reset(stagingReader{r}); err != nil {
		return errors.Wrap(err, "zstdlz4: zstd frame reset")
	}
	r.active = r.zstdDec
	return nil
}

func (r *Reader) bindLZ4() error {
	if r.lz4Dec == nil {
		r.lz4Dec = lz4.NewReader(stagingReader{r})
	} else {
		r.lz4Dec.Reset(stagingReader{r})
	}
	r.active = r.lz4Dec
	return nil
}

// Read implements spec.md §4.6's combined control loop plus the
// forward-progress guard: "if a decode pass consumes no input and
// produces no output, fail with ERR".
func (r *Reader) Read(buf []byte) (int, error) {
	switch r.status.State() {
	case status.EOF:
		return 0, io.EOF
	case status.ERR:
		return 0, r.status.Err()
	}

	if r.active == nil {
		if err := r.fill(); err != nil {
			if err == io.EOF {
				r.status.LatchEOF()
				return 0, io.EOF
			}
			r.status.LatchErr(err)
			return 0, err
		}
		if len(r.staging) < 4 {
			if err := r.fill(); err != nil && len(r.staging) < 4 {
				werr := errors.New("zstdlz4: short frame header")
				r.status.LatchErr(werr)
				return 0, werr
			}
		}
		if err := r.selectFrame(); err != nil {
			r.status.LatchErr(err)
			return 0, err
		}
	}

	stagedBefore := len(r.staging)
	n, err := r.active.Read(buf)
	if err == nil {
		if n == 0 && len(r.staging) == stagedBefore {
			werr := errors.New("zstdlz4: decoder stalled (no input consumed, no output produced)")
			wlog.Log.Error(werr.Error())
			r.status.LatchErr(werr)
			return 0, werr
		}
		return n, nil
	}
	if err == io.EOF {
		// This frame is exhausted; drop back to unclassified so the
		// next Read re-classifies the following frame, if any.
		r.active = nil
		if n > 0 {
			return n, nil
		}
		if len(r.staging) == 0 {
			if ferr := r.fill(); ferr == io.EOF {
				r.status.LatchEOF()
				return 0, io.EOF
			}
		}
		return r.Read(buf)
	}
	werr := errors.Wrap(err, "zstdlz4: decode failed")
	r.status.LatchErr(werr)
	if n > 0 {
		return n, nil
	}
	return 0, werr
}

// Close releases the zstd decoder and the child; the lz4 reader holds
// nothing that needs closing.
func (r *Reader) Close() error {
	r.zstdDec.Close()
	return r.child.Close()
}

type sink interface {
	io.Writer
	Flush() error
	io.Closer
}

// Writer encodes zstd (spec.md §6: ".zst → zstd") or lz4 (".lz4 → lz4"),
// selected at construction; the two are never interleaved by a single
// writer (only readers need the combined frame classifier, since a
// concatenation of heterogeneous frames is a read-side scenario the
// encoder never produces itself).
type Writer struct {
	child sink
	zstd  *zstd.Encoder
	lz4   *lz4.Writer
	isLZ4 bool
}

// Backend selects which codec Writer encodes with.
type Backend int

// Backends a Writer can target.
const (
	BackendZstd Backend = iota
	BackendLZ4
)

// NewWriter constructs an encoder of the given backend and level.
func NewWriter(child sink, backend Backend, level int) (*Writer, error) {
	if backend == BackendLZ4 {
		lw := lz4.NewWriter(child)
		if err := lw.Apply(lz4.CompressionLevelOption(levelToLZ4(level))); err != nil {
			return nil, errors.Wrap(err, "zstdlz4: lz4 writer config")
		}
		return &Writer{child: child, lz4: lw, isLZ4: true}, nil
	}
	enc, err := zstd.NewWriter(child, zstd.WithEncoderLevel(levelToZstd(level)))
	if err != nil {
		return nil, errors.Wrap(err, "zstdlz4: zstd writer init")
	}
	return &Writer{child: child, zstd: enc}, nil
}

func levelToZstd(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 4:
		return zstd.SpeedDefault
	case level <= 7:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func levelToLZ4(level int) lz4.CompressionLevel {
	if level <= 0 {
		return lz4.Fast
	}
	return lz4.CompressionLevel(1 << (8 + level))
}

// Write encodes buf (spec.md §4.7).
func (w *Writer) Write(buf []byte) (int, error) {
	var n int
	var err error
	if w.isLZ4 {
		n, err = w.lz4.Write(buf)
	} else {
		n, err = w.zstd.Write(buf)
	}
	if err != nil {
		return n, errors.Wrap(err, "zstdlz4: encode failed")
	}
	return n, nil
}

// Flush forces buffered codec state out, then flushes the child.
func (w *Writer) Flush() error {
	if w.isLZ4 {
		if err := w.lz4.Flush(); err != nil {
			return errors.Wrap(err, "zstdlz4: lz4 flush failed")
		}
	} else {
		if err := w.zstd.Flush(); err != nil {
			return errors.Wrap(err, "zstdlz4: zstd flush failed")
		}
	}
	return w.child.Flush()
}

// Close emits the terminator frame and closes the child.
func (w *Writer) Close() error {
	var err error
	if w.isLZ4 {
		err = w.lz4.Close()
	} else {
		err = w.zstd.Close()
	}
	if err != nil {
		return errors.Wrap(err, "zstdlz4: close failed")
	}
	return w.child.Close()
}
