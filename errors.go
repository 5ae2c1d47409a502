package wandio

import "github.com/pkg/errors"

// Kind classifies a failure the way spec.md's error taxonomy does. It is
// deliberately coarse: the library surfaces a Kind plus a wrapped message
// rather than per-codec diagnostic payloads (see SPEC_FULL.md's
// non-goals: no unified cross-codec error struct is in scope).
type Kind int

// Error kinds, matching spec.md §7.
const (
	KindUnknown Kind = iota
	KindEOF
	KindTruncated
	KindCorrupt
	KindTransport
	KindUnsupported
	KindUnknownCodec
	KindInvalidURL
	KindOutOfMemory
	KindBadArgument
)

func (k Kind) String() string {
	switch k {
	case KindEOF:
		return "EOF"
	case KindTruncated:
		return "TRUNCATED"
	case KindCorrupt:
		return "CORRUPT"
	case KindTransport:
		return "TRANSPORT"
	case KindUnsupported:
		return "UNSUPPORTED"
	case KindUnknownCodec:
		return "UNKNOWN_CODEC"
	case KindInvalidURL:
		return "INVALID_URL"
	case KindOutOfMemory:
		return "OUT_OF_MEMORY"
	case KindBadArgument:
		return "BAD_ARGUMENT"
	default:
		return "UNKNOWN"
	}
}

// StreamError carries a Kind alongside the wrapped cause. Stages latch one
// of these into their sticky ERR state (spec.md §3 invariants).
type StreamError struct {
	Kind Kind
	msg  string
	err  error
}

func (e *StreamError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap lets errors.Is / errors.As see through to the underlying cause.
// StreamError has no Cause method, so errors.Cause stops at it.
func (e *StreamError) Unwrap() error { return e.err }

// NewError builds a StreamError of the given kind, wrapping cause (which may
// be nil).
func NewError(kind Kind, msg string, cause error) *StreamError {
	if cause != nil {
		cause = errors.WithStack(cause)
	}
	return &StreamError{Kind: kind, msg: msg, err: cause}
}

// ErrKind extracts the Kind from err if it (or something it wraps) is a
// *StreamError; otherwise KindUnknown.
func ErrKind(err error) Kind {
	var se *StreamError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// Sentinel errors for the handful of conditions checked by identity rather
// than Kind.
var (
	// ErrUnsupported is returned by a stage that does not implement the
	// requested optional capability (spec.md §4.1).
	ErrUnsupported = NewError(KindUnsupported, "operation not supported by this stage", nil)
	// ErrShortWrite names the case of a child sink consuming fewer bytes
	// than requested on a non-error path, which is always fatal (Open
	// Question #4, see DESIGN.md). No stage in this module returns it:
	// transport/file reports its own "file: short write" error.
	ErrShortWrite = NewError(KindTransport, "short write to sink", nil)
	// ErrClosed names use of a stage after Close. No stage in this module
	// returns it: transport/http reports io.ErrClosedPipe instead.
	ErrClosed = NewError(KindBadArgument, "stream already closed", nil)
)
