package wandio

import "io"

// Whence mirrors io.Seeker's constants under the names spec.md §4.1 uses.
type Whence int

// Seek origins (spec.md §4.1: whence ∈ {set, cur, end}).
const (
	SeekSet Whence = iota
	SeekCur
	SeekEnd
)

// Source is the read-side polymorphic stage abstraction (spec.md §4.1).
// Read follows the C contract described there (n>0 bytes produced, n==0
// permanent EOF, n<0 error) translated into Go idiom: Read returns
// (n, error) like io.Reader, with the sticky-status rule of spec.md §3
// meaning a stage that has returned io.EOF or a non-nil error once must
// keep returning the same signal until Close.
//
// Every Source also implements io.Closer; Close recursively closes the
// stage's child exactly once (spec.md §3 ownership invariant).
type Source interface {
	io.Reader
	io.Closer
}

// Peeker is an optional capability: a Source that can look ahead without
// consuming. Only the peek reader and the file source implement it
// directly (spec.md §3); codec readers do not, which is why they are
// always layered under a peek reader when look-ahead is needed.
type Peeker interface {
	// Peek returns up to len(buf) bytes without advancing the stream.
	// A short result (n < len(buf), err == nil or err == io.EOF) means
	// EOF was reached while filling the look-ahead buffer; that is not
	// itself an error (spec.md §4.3).
	Peek(buf []byte) (n int, err error)
}

// TellSeeker is an optional capability: a Source with a positional cursor.
// Only the file source and the HTTP range reader implement it; codec
// readers and the peek reader (when wrapping a non-seekable child) do not.
type TellSeeker interface {
	Tell() (int64, error)
	Seek(offset int64, whence Whence) (int64, error)
}

// Sink is the write-side polymorphic stage abstraction (spec.md §4.1).
// Write is all-or-error: a successful call always consumes the full
// buffer (spec.md Open Question #4, resolved in DESIGN.md). Partial
// writes happen only on the fatal-error path, where the returned error is
// non-nil and the byte count reported is how much reached the child
// before the failure.
type Sink interface {
	io.Writer
	Flush() error
	io.Closer
}

// Decorator is the shared shape of the optional thread prefetcher
// (read side) / writeback wrapper (write side) described in spec.md §1 and
// §5 as an external collaborator. It is declared here only as an
// extension point: this library ships no real implementation (the
// background-thread prefetch/writeback wrappers are explicitly out of
// scope), just Identity, a no-op pass-through satisfying both Source and
// Sink shapes depending on what it wraps.
type Decorator interface {
	// Unwrap returns the stage this decorator wraps, so Close can walk
	// the chain (spec.md §3: "closing a parent closes its child").
	Unwrap() io.Closer
}
