package wandio

import (
	"github.com/wandio-go/wandio/codec/bzip2"
	"github.com/wandio-go/wandio/codec/lzma"
	"github.com/wandio-go/wandio/codec/zlib"
	"github.com/wandio-go/wandio/codec/zstdlz4"
	"github.com/wandio-go/wandio/config"
	"github.com/wandio-go/wandio/internal/wlog"
	filetransport "github.com/wandio-go/wandio/transport/file"
)

// stageSink is the minimal write-side stage shape (spec.md §4.1's Sink).
type stageSink interface {
	Write(p []byte) (int, error)
	Flush() error
	Close() error
}

// WStream is the opaque write-side handle returned by Create (spec.md
// §3: "Stream handle (write)").
type WStream struct {
	chain  stageSink
	closed bool
}

// Write implements Sink.
func (w *WStream) Write(p []byte) (int, error) { return w.chain.Write(p) }

// Flush implements Sink.
func (w *WStream) Flush() error { return w.chain.Flush() }

// Close implements Sink; it emits the codec terminator (if any), flushes,
// and closes the whole chain exactly once. A second call is a no-op
// (spec.md §3: "Close may be called more than once").
func (w *WStream) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.chain.Close()
}

// CreateFlags mirror transport/file's open flags.
type CreateFlags = filetransport.OpenFlags

// Truncate/Append flags, re-exported for callers that only import the
// root package.
const (
	FlagTruncate = filetransport.FlagTruncate
	FlagAppend   = filetransport.FlagAppend
)

// Create composes a write pipeline for name with the given codec and
// level (spec.md §4.2's writer-open steps). level 0 or CodecNone means
// "no compression, pass through" and installs no encoder (spec.md §4.7).
// If codec is requested but not compiled in, Create logs a warning and
// returns the uncompressed stream rather than failing (spec.md §4.2).
func Create(name string, codec Codec, level int, flags CreateFlags) (*WStream, error) {
	if level < 0 || level > 9 {
		return nil, NewError(KindBadArgument, "level must be in 0..9", nil)
	}
	base, err := filetransport.Create(name, flags)
	if err != nil {
		return nil, err
	}

	var chain stageSink = base
	if level != 0 && codec != CodecNone {
		wrapped, err := wrapCodecWriter(codec, base, level)
		if err != nil {
			if ErrKind(err) == KindUnknownCodec {
				wlog.Log.Warnf("wandio: %v, writing uncompressed", err)
			} else {
				_ = base.Close()
				return nil, err
			}
		} else {
			chain = wrapped
		}
	}

	cfg := config.Get()
	if cfg.UseThreads != 0 {
		// Background writeback is out of scope (spec.md §1); Identity
		// marks the extension point a real implementation would fill.
		chain = Identity{Closer: chain}
	}

	return &WStream{chain: chain}, nil
}

func wrapCodecWriter(c Codec, child stageSink, level int) (stageSink, error) {
	switch c {
	case CodecZlib:
		return zlib.NewWriter(child, level)
	case CodecBzip2:
		return bzip2.NewWriter(child, level)
	case CodecLZMA:
		return lzma.NewWriter(child, level)
	case CodecZstd:
		return zstdlz4.NewWriter(child, zstdlz4.BackendZstd, level)
	case CodecLZ4:
		return zstdlz4.NewWriter(child, zstdlz4.BackendLZ4, level)
	default:
		return nil, NewError(KindUnknownCodec, "codec not compiled in: "+c.String(), nil)
	}
}
