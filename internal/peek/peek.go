// Package peek implements the non-consuming look-ahead buffer spec.md §4.3
// describes: it gives any child Source both a Peek capability and a
// pass-through Read, and is the stage format auto-detection sniffs magic
// bytes through.
package peek

import (
	"io"

	"github.com/pkg/errors"
)

// blockSize is the alignment unit for the zero-copy direct-read fast path
// (spec.md §4.3: "a whole multiple of the block size (4 KiB)").
const blockSize = 4096

// DefaultSize is the typical peek buffer size spec.md §4.3 calls out
// ("typical peek size 1 MiB").
const DefaultSize = 1 << 20

// child is the minimal shape a peek Reader needs from whatever it wraps:
// a byte source plus a closer. Tell/Seek are probed with interface
// assertions at the call site since not every child supports them
// (spec.md §3: "only file and HTTP implement tell/seek").
type child interface {
	io.Reader
	io.Closer
}

// tellSeeker is implemented by children with a positional cursor (file,
// HTTP). A Seek on the child invalidates any buffered peek data.
type tellSeeker interface {
	Tell() (int64, error)
	Seek(offset int64, whence int) (int64, error)
}

// Reader is the peek stage. It owns child exclusively: Close on Reader
// closes child exactly once (spec.md §3).
type Reader struct {
	child child
	size  int // target buffer size, grow-only during a session
	buf   []byte
	off   int // offset ≤ length always (spec.md §3 invariant)
	// eof is latched once the child has signalled permanent EOF, so a
	// drained buffer after EOF does not attempt another refill.
	eof bool
	// closed makes Close idempotent: a second call is a no-op rather than
	// closing the child twice (spec.md §3: "Close may be called more than
	// once").
	closed bool
}

// New wraps child in a peek Reader. size is rounded up to a multiple of
// blockSize and defaults to DefaultSize when <= 0.
func New(child child, size int) *Reader {
	if size <= 0 {
		size = DefaultSize
	}
	size = roundUp(size, blockSize)
	return &Reader{child: child, size: size}
}

func roundUp(n, multiple int) int {
	if n%multiple == 0 {
		return n
	}
	return n + (multiple - n%multiple)
}

// Peek returns up to len(buf) bytes without advancing the read position.
// A short result with a nil or io.EOF error means the child hit EOF while
// the look-ahead buffer was being filled; that is not itself an error
// (spec.md §4.3).
func (r *Reader) Peek(buf []byte) (int, error) {
	need := len(buf)
	if r.bufferedLen() < need {
		if err := r.extend(need); err != nil && err != io.EOF {
			return 0, err
		}
	}
	n := copy(buf, r.buf[r.off:])
	if n < need {
		return n, io.EOF
	}
	return n, nil
}

func (r *Reader) bufferedLen() int { return len(r.buf) - r.off }

// extend grows the internal buffer so it holds at least need unread bytes,
// reading from the child as necessary. Grow-only: the buffer capacity
// never shrinks except at refill time when it is empty (spec.md §4.3).
func (r *Reader) extend(need int) error {
	if r.eof {
		return io.EOF
	}
	target := roundUp(need, blockSize)
	if target < r.size {
		target = r.size
	}
	if cap(r.buf)-r.off < target {
		fresh := make([]byte, r.bufferedLen(), target)
		copy(fresh, r.buf[r.off:])
		r.buf = fresh
		r.off = 0
	}
	for r.bufferedLen() < need && !r.eof {
		start := len(r.buf)
		grow := target - start
		if grow <= 0 {
			break
		}
		r.buf = r.buf[:start+grow]
		n, err := r.child.Read(r.buf[start:])
		r.buf = r.buf[:start+n]
		if n == 0 {
			if err == nil || err == io.EOF {
				r.eof = true
				return io.EOF
			}
			return errors.Wrap(err, "peek: refill child read failed")
		}
		if err != nil && err != io.EOF {
			return errors.Wrap(err, "peek: refill child read failed")
		}
		if err == io.EOF {
			r.eof = true
			return nil
		}
	}
	return nil
}

// Read drains any buffered residue first, then either delegates directly
// to the child for aligned whole-block reads (zero-copy fast path) or
// refills the internal buffer (spec.md §4.3).
func (r *Reader) Read(p []byte) (int, error) {
	if r.bufferedLen() > 0 {
		n := copy(p, r.buf[r.off:])
		r.off += n
		r.release()
		return n, nil
	}
	if r.eof {
		return 0, io.EOF
	}
	if len(p)%blockSize == 0 && len(p) > 0 {
		n, err := r.child.Read(p)
		if err != nil && err != io.EOF {
			return n, errors.Wrap(err, "peek: direct child read failed")
		}
		if err == io.EOF && n == 0 {
			r.eof = true
		}
		return n, err
	}
	if err := r.extend(len(p)); err != nil && err != io.EOF {
		return 0, err
	}
	n := copy(p, r.buf[r.off:])
	r.off += n
	r.release()
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// release drops the buffer once it has been fully drained, per spec.md
// §4.3's "shrinks only at refill when empty".
func (r *Reader) release() {
	if r.off >= len(r.buf) {
		r.buf = r.buf[:0]
		r.off = 0
	}
}

// Tell passes through to the child; the peek reader does not own a read
// offset of its own (spec.md §4.3).
func (r *Reader) Tell() (int64, error) {
	ts, ok := r.child.(tellSeeker)
	if !ok {
		return 0, errors.New("peek: child does not support tell")
	}
	pos, err := ts.Tell()
	if err != nil {
		return 0, err
	}
	// The child's cursor has already advanced past whatever is still
	// buffered here, so the caller's logical position is behind it by
	// exactly the unread residue.
	return pos - int64(r.bufferedLen()), nil
}

// Seek passes through to the child and drops any buffered peek data,
// since it is no longer contiguous with the child's new position
// (spec.md §4.3: "a seek invalidates the peek buffer").
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	ts, ok := r.child.(tellSeeker)
	if !ok {
		return 0, errors.WithStack(io.ErrClosedPipe)
	}
	pos, err := ts.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	r.buf = r.buf[:0]
	r.off = 0
	r.eof = false
	return pos, nil
}

// Close releases this stage and recursively its child exactly once; a
// second call is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.buf = nil
	return r.child.Close()
}
