// Package wandio is the core of the library: the Source/Sink
// abstraction, the pipeline dispatcher that composes peek/codec/transport
// stages, and the capability model every stage follows (spec.md §3, §4).
package wandio

import (
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/wandio-go/wandio/codec/bzip2"
	"github.com/wandio-go/wandio/codec/lzma"
	"github.com/wandio-go/wandio/codec/zlib"
	"github.com/wandio-go/wandio/codec/zstdlz4"
	"github.com/wandio-go/wandio/config"
	"github.com/wandio-go/wandio/internal/peek"
	"github.com/wandio-go/wandio/internal/wlog"
	filetransport "github.com/wandio-go/wandio/transport/file"
	httptransport "github.com/wandio-go/wandio/transport/http"
	"github.com/wandio-go/wandio/transport/swift"
)

// Codec identifies a compression format (spec.md §4.2/§6).
type Codec int

// Codecs this library knows about.
const (
	CodecNone Codec = iota
	CodecZlib
	CodecBzip2
	CodecLZMA
	CodecZstd
	CodecLZ4
)

func (c Codec) String() string {
	switch c {
	case CodecZlib:
		return "gzip"
	case CodecBzip2:
		return "bzip2"
	case CodecLZMA:
		return "lzma"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return "none"
	}
}

// sniffLen is the look-ahead the dispatcher peeks to classify a stream
// (spec.md §4.2: "peek the first 1 KiB (short reads accepted)").
const sniffLen = 1024

type magicEntry struct {
	prefix []byte
	mask   []byte // if non-nil, prefix[i] must equal b[i]&mask[i]
	codec  Codec
}

// magicTable is spec.md §4.2's table, first matching entry wins.
var magicTable = []magicEntry{
	{prefix: []byte{0x1F, 0x8B, 0x08}, codec: CodecZlib},
	{prefix: []byte{0x1F, 0x9D}, codec: CodecZlib},
	{prefix: []byte("BZh"), codec: CodecBzip2},
	{prefix: []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A}, codec: CodecLZMA},
	{prefix: []byte{0x28, 0xB5, 0x2F, 0xFD}, codec: CodecZstd},
	{prefix: []byte{0x04, 0x22, 0x4D, 0x18}, codec: CodecLZ4},
	{prefix: []byte{0x50, 0x2A, 0x4D, 0x18}, mask: []byte{0xF0, 0xFF, 0xFF, 0xFF}, codec: CodecZstd},
}

func detectCodec(magic []byte) Codec {
	for _, e := range magicTable {
		if len(magic) < len(e.prefix) {
			continue
		}
		ok := true
		for i, b := range e.prefix {
			got := magic[i]
			if e.mask != nil {
				got &= e.mask[i]
			}
			if got != b {
				ok = false
				break
			}
		}
		if ok {
			return e.codec
		}
	}
	return CodecNone
}

// extCodecTable is spec.md §6's extension-to-codec mapping.
var extCodecTable = map[string]Codec{
	".gz":  CodecZlib,
	".bz2": CodecBzip2,
	".xz":  CodecLZMA,
	".lz4": CodecLZ4,
	".zst": CodecZstd,
}

// CodecFromExtension picks a codec from a filename's suffix the way the
// original wandio_wcreate falls back to the output extension when the
// caller passes "no compression" explicitly with a non-raw suffix
// (SPEC_FULL.md §6, grounded on original_source/lib/wandio.c).
func CodecFromExtension(name string) Codec {
	for ext, c := range extCodecTable {
		if strings.HasSuffix(name, ext) {
			return c
		}
	}
	return CodecNone
}

// ---- read side ----

// stageSource is the minimal shape every internal stage (peek, codec,
// transport) satisfies: Read + Close, with Peek/Tell/Seek available only
// through the optional interfaces below.
type stageSource interface {
	io.Reader
	io.Closer
}

// Stream is the opaque read-side handle returned by Open: a capability
// vtable over whatever pipeline the dispatcher composed (spec.md §3).
type Stream struct {
	outer *peek.Reader
}

// Read implements Source.
func (s *Stream) Read(p []byte) (int, error) { return s.outer.Read(p) }

// Peek implements Peeker: the outer peek stage always provides it
// (spec.md §4.2 step 6 always wraps the chain in a peek reader).
func (s *Stream) Peek(p []byte) (int, error) { return s.outer.Peek(p) }

// Tell implements TellSeeker if the underlying chain supports it;
// otherwise it returns ErrUnsupported (spec.md §3: only file/HTTP
// implement tell/seek; a codec stage in the chain breaks the capability).
func (s *Stream) Tell() (int64, error) {
	pos, err := s.outer.Tell()
	if err != nil {
		return 0, errors.Wrap(ErrUnsupported, err.Error())
	}
	return pos, nil
}

// Seek implements TellSeeker if the underlying chain supports it.
func (s *Stream) Seek(offset int64, whence Whence) (int64, error) {
	pos, err := s.outer.Seek(offset, int(whence))
	if err != nil {
		return 0, errors.Wrap(ErrUnsupported, err.Error())
	}
	return pos, nil
}

// Close recursively closes the whole pipeline exactly once (spec.md §3).
func (s *Stream) Close() error { return s.outer.Close() }

// httpSeekAdapter lets transport/http.Reader, whose Seek takes its own
// Whence type, satisfy the plain-int tellSeeker shape the peek package
// uses internally.
type httpSeekAdapter struct{ *httptransport.Reader }

func (a httpSeekAdapter) Seek(offset int64, whence int) (int64, error) {
	return a.Reader.Seek(offset, httptransport.Whence(whence))
}

// OpenOptions configures Open beyond the filename (spec.md §4.2/§6).
type OpenOptions struct {
	// Client is the *http.Client used for remote opens; nil selects a
	// plain &http.Client{} (follows redirects, verifies TLS, keeps
	// connections alive). No User-Agent is set, so requests carry Go's
	// default one rather than a wandio/<version> string.
	Client *http.Client
	// SwiftTokenSource resolves swift:// names (spec.md §6); required
	// only when opening a swift:// name.
	SwiftTokenSource swift.TokenSource
}

func classifyName(name string) (scheme string, remote bool) {
	if name == "-" {
		return "", false
	}
	i := strings.Index(name, "://")
	if i <= 0 {
		return "", false
	}
	for _, c := range name[:i] {
		if !isAlnum(c) {
			return "", false
		}
	}
	return name[:i], true
}

func isAlnum(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Open composes a read pipeline for name, per spec.md §4.2's six steps.
func Open(name string, opts OpenOptions) (*Stream, error) {
	base, err := openBase(name, opts)
	if err != nil {
		return nil, err
	}

	inner := peek.New(base, peek.DefaultSize)

	var chain stageSource = inner
	cfg := config.Get()
	if cfg.Autodetect {
		magic := make([]byte, sniffLen)
		n, perr := inner.Peek(magic)
		if perr != nil && perr != io.EOF {
			_ = inner.Close()
			return nil, errors.Wrap(perr, "wandio: sniff magic")
		}
		codec := detectCodec(magic[:n])
		if codec != CodecNone {
			wrapped, err := wrapCodecReader(codec, inner)
			if err != nil {
				_ = inner.Close()
				return nil, err
			}
			chain = wrapped
		}
	}

	if cfg.UseThreads != 0 {
		// Background prefetch is out of scope (spec.md §1); Identity
		// marks where a real double-buffering wrapper would attach.
		chain = Identity{Closer: chain}
	}

	outer := peek.New(chain, peek.DefaultSize)
	return &Stream{outer: outer}, nil
}

func openBase(name string, opts OpenOptions) (stageSource, error) {
	scheme, remote := classifyName(name)
	if !remote {
		s, err := filetransport.Open(name)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	if scheme == "swift" {
		if opts.SwiftTokenSource == nil {
			return nil, NewError(KindInvalidURL, "swift: no TokenSource configured", nil)
		}
		container, object, err := parseSwiftName(name)
		if err != nil {
			return nil, err
		}
		url, headers, err := opts.SwiftTokenSource.ResolveURL(container, object)
		if err != nil {
			return nil, NewError(KindInvalidURL, "swift: resolve URL failed", err)
		}
		r, err := httptransport.Open(url, headers, opts.Client)
		if err != nil {
			return nil, NewError(KindTransport, "swift: http open failed", err)
		}
		return httpSeekAdapter{r}, nil
	}
	r, err := httptransport.Open(name, nil, opts.Client)
	if err != nil {
		return nil, NewError(KindTransport, "http: open failed", err)
	}
	return httpSeekAdapter{r}, nil
}

func parseSwiftName(name string) (container, object string, err error) {
	rest := strings.TrimPrefix(name, "swift://")
	i := strings.Index(rest, "/")
	if i <= 0 {
		return "", "", NewError(KindInvalidURL, "swift: expected swift://CONTAINER/OBJECT", nil)
	}
	return rest[:i], rest[i+1:], nil
}

// codecPeekable is what codec/zlib needs from its child (Read+Close+Peek).
type codecPeekable interface {
	io.Reader
	io.Closer
	Peek(buf []byte) (int, error)
}

func wrapCodecReader(c Codec, child codecPeekable) (stageSource, error) {
	switch c {
	case CodecZlib:
		r, err := zlib.NewReader(child)
		if err != nil {
			return nil, errors.Wrap(err, "wandio: zlib init")
		}
		return r, nil
	case CodecBzip2:
		return bzip2.NewReader(child), nil
	case CodecLZMA:
		r, err := lzma.NewReader(child)
		if err != nil {
			return nil, errors.Wrap(err, "wandio: lzma init")
		}
		return r, nil
	case CodecZstd, CodecLZ4:
		r, err := zstdlz4.NewReader(child)
		if err != nil {
			return nil, errors.Wrap(err, "wandio: zstd/lz4 init")
		}
		return r, nil
	default:
		wlog.Log.Errorf("wandio: codec %v not compiled in", c)
		return nil, NewError(KindUnknownCodec, "codec not compiled in: "+c.String(), nil)
	}
}

// Identity is the no-op Decorator placeholder for the thread
// prefetcher/writeback wrapper (spec.md §1, §5 — out of scope). It
// satisfies stageSource by delegating straight through.
type Identity struct {
	io.Closer
}

func (i Identity) Read(p []byte) (int, error) {
	r, ok := i.Closer.(io.Reader)
	if !ok {
		return 0, ErrUnsupported
	}
	return r.Read(p)
}

func (i Identity) Write(p []byte) (int, error) {
	w, ok := i.Closer.(io.Writer)
	if !ok {
		return 0, ErrUnsupported
	}
	return w.Write(p)
}

func (i Identity) Flush() error {
	f, ok := i.Closer.(interface{ Flush() error })
	if !ok {
		return nil
	}
	return f.Flush()
}

// Unwrap implements Decorator.
func (i Identity) Unwrap() io.Closer { return i.Closer }
