// Package http implements the HTTP range reader of spec.md §4.5: a
// seekable streaming body with retry-on-stall, simulating tell/seek over
// a one-way HTTP GET. Grounded on _examples/rclone-rclone/backend/http/http.go's
// options-struct-plus-injected-*http.Client shape for how this library's
// other transports configure an http.Client, generalized here to the
// streaming, range-aware body spec.md §4.5 requires.
package http

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/wandio-go/wandio/internal/transportinit"
	"github.com/wandio-go/wandio/internal/wlog"
)

// DefaultBufSize is the internal buffer capacity m (spec.md §3's HTTP
// reader state: "maximum length m").
const DefaultBufSize = 1 << 20

// headroom is the minimum free capacity maintained before a fill cycle
// stops topping up the buffer (spec.md §4.5: "When the buffer has less
// than a fixed headroom left").
const headroom = 64 * 1024

// maxSkip is the forward-seek window within which a seek is simulated by
// discard-read instead of reissuing the GET (spec.md §4.5: "HTTP_MAX_SKIP
// (2x default buffer)").
const maxSkip = 2 * DefaultBufSize

// fillTimeout bounds a single fill iteration (spec.md §5: "at most one
// second per iteration").
const fillTimeout = time.Second

// Whence mirrors wandio.Whence without importing the root package (to
// avoid an import cycle); dispatch.go translates between the two.
type Whence int

// Seek origins. SEEK_END is unsupported per spec.md's Open Question
// resolution (DESIGN.md): the reference implementation's seek_end path
// was dead code, so this is specified as UNSUPPORTED rather than guessed.
const (
	SeekSet Whence = iota
	SeekCur
	SeekEnd
)

// Reader is the HTTP range-based streaming body (spec.md §3's "HTTP
// reader state" and §4.5).
type Reader struct {
	url     string
	headers http.Header
	client  *http.Client

	buf  []byte // capacity m
	off0 int64  // absolute offset of buf[0]
	p, l int    // cursor and valid length within buf
	m    int    // capacity

	total int64 // -1 until learned from the server
	done  bool  // done-reading: off0+l has reached total and buffer is drained

	body   io.ReadCloser
	closed bool
}

// Open issues the initial GET against url with the given headers (e.g. a
// Swift X-Auth-Token), learns the content length if the server exposes
// it, and fills the buffer for the first time. An HTTP error on this
// first fill is a fatal open-time error (spec.md §4.5: "If the transport
// reports a terminal HTTP error on the first fill after open, the open
// fails").
func Open(url string, headers http.Header, client *http.Client) (*Reader, error) {
	if client == nil {
		client = &http.Client{
			Timeout: 0, // streaming body; per-fill timeout is handled internally
		}
	}
	r := &Reader{
		url:     url,
		headers: headers,
		client:  client,
		buf:     make([]byte, DefaultBufSize),
		m:       DefaultBufSize,
		total:   -1,
	}
	transportinit.Acquire()
	if err := r.reissue(0); err != nil {
		transportinit.Release()
		return nil, err
	}
	if err := r.fillBuffer(); err != nil {
		_ = r.body.Close()
		transportinit.Release()
		return nil, errors.Wrap(err, "http: first fill failed")
	}
	return r, nil
}

// reissue tears down any existing session and issues a fresh GET starting
// at absolute byte offset start, resetting off0/p/l accordingly (spec.md
// §4.5's "Resume-From" reinit, used both by stall retry and by seek).
func (r *Reader) reissue(start int64) error {
	if r.body != nil {
		_ = r.body.Close()
		r.body = nil
	}
	req, err := http.NewRequest(http.MethodGet, r.url, nil)
	if err != nil {
		return errors.Wrap(err, "http: build request")
	}
	for k, vs := range r.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if start > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "http: transport failure")
	}
	if resp.StatusCode >= 400 {
		_ = resp.Body.Close()
		wlog.Log.Errorf("http: server returned %s for %s", resp.Status, r.url)
		return errors.Errorf("http: server returned %s", resp.Status)
	}
	if r.total < 0 {
		if resp.ContentLength >= 0 {
			if start > 0 {
				r.total = start + resp.ContentLength
			} else {
				r.total = resp.ContentLength
			}
		}
	}
	r.body = resp.Body
	r.off0 = start
	r.p, r.l = 0, 0
	r.done = false
	return nil
}

// fillBuffer drains the body into buf[l:m] until the buffer is filled
// past headroom or the server signals completion (spec.md §4.5's "Fill
// loop"). It never blocks longer than fillTimeout per iteration by
// racing the read against a timer — net/http does not expose a raw file
// descriptor to select() on the way a curl multi-handle does, so a
// deadline-based read stands in for spec.md's "select with a bounded
// timeout; sleep 100 ms if the transport has no file descriptor to poll".
func (r *Reader) fillBuffer() error {
	for r.m-r.l > headroom {
		n, err := r.readWithTimeout(r.buf[r.l:])
		r.l += n
		if err == nil {
			continue
		}
		if err == io.EOF {
			r.checkDone()
			return nil
		}
		if n == 0 {
			// Stall: no bytes this cycle and not done. Caller
			// (Read) is responsible for retrying via reissue.
			return errTransportStall
		}
		return errors.Wrap(err, "http: body read failed")
	}
	return nil
}

var errTransportStall = errors.New("http: stall")

func (r *Reader) readWithTimeout(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := r.body.Read(p)
		ch <- result{n, err}
	}()
	select {
	case res := <-ch:
		return res.n, res.err
	case <-time.After(fillTimeout):
		time.Sleep(100 * time.Millisecond)
		return 0, nil
	}
}

func (r *Reader) checkDone() {
	if r.total >= 0 && r.off0+int64(r.l) >= r.total && r.p == r.l {
		r.done = true
	}
	if r.total < 0 {
		// Server never exposed a length; a body EOF is authoritative.
		r.done = true
	}
}

// ensureBuffered guarantees at least one unread byte is staged, or that
// done is correctly latched, retrying a stalled fill exactly once per
// spec.md §4.5's "Retry on stall": tear down, reissue at off0+p, refill.
func (r *Reader) ensureBuffered() error {
	if r.p < r.l {
		return nil
	}
	if r.done {
		return io.EOF
	}
	// Drained: advance the window and resume (spec.md §4.5's
	// "fill_buffer advances off0 += l, zeros p, l").
	r.off0 += int64(r.l)
	r.p, r.l = 0, 0
	err := r.fillBuffer()
	if err == errTransportStall {
		if rerr := r.reissue(r.off0 + int64(r.p)); rerr != nil {
			return errors.Wrap(rerr, "http: stall retry failed")
		}
		if err := r.fillBuffer(); err != nil && err != errTransportStall {
			return err
		}
	} else if err != nil {
		return err
	}
	if r.l == 0 && r.done {
		return io.EOF
	}
	return nil
}

// Read returns buffered bytes, refilling (with stall retry) as needed.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, errors.WithStack(io.ErrClosedPipe)
	}
	if err := r.ensureBuffered(); err != nil {
		return 0, err
	}
	n := copy(p, r.buf[r.p:r.l])
	r.p += n
	return n, nil
}

// Tell returns the absolute byte offset the caller is positioned at
// (spec.md §3 invariant: "off0 + p").
func (r *Reader) Tell() (int64, error) {
	return r.off0 + int64(r.p), nil
}

// Seek implements spec.md §4.5's seek policy: in-buffer positions move
// the cursor only; small forward seeks discard-read; everything else
// reissues the GET at the new offset. SEEK_END is unsupported (see the
// Whence doc comment and DESIGN.md's Open Question resolution).
func (r *Reader) Seek(offset int64, whence Whence) (int64, error) {
	var newOff int64
	switch whence {
	case SeekSet:
		newOff = offset
	case SeekCur:
		newOff = r.off0 + int64(r.p) + offset
	case SeekEnd:
		return -1, errors.Wrap(errUnsupportedSeekEnd, "http: seek")
	default:
		return -1, errors.New("http: bad whence")
	}
	if newOff < 0 {
		return -1, errors.New("http: negative seek offset")
	}

	cur := r.off0 + int64(r.p)
	bufEnd := r.off0 + int64(r.l)
	if newOff >= r.off0+int64(r.p) && newOff < bufEnd {
		r.p = int(newOff - r.off0)
		return newOff, nil
	}
	if newOff >= cur && newOff-cur <= maxSkip {
		toDiscard := newOff - cur
		discardBuf := make([]byte, 4096)
		for toDiscard > 0 {
			chunk := int64(len(discardBuf))
			if chunk > toDiscard {
				chunk = toDiscard
			}
			n, err := r.Read(discardBuf[:chunk])
			toDiscard -= int64(n)
			if err != nil && err != io.EOF {
				r.emptyBuffer()
				return -1, err
			}
			if n == 0 {
				break
			}
		}
		return newOff, nil
	}
	// Backward or large forward seek: reissue.
	if err := r.reissue(newOff); err != nil {
		r.emptyBuffer()
		return -1, err
	}
	if err := r.fillBuffer(); err != nil && err != errTransportStall {
		r.emptyBuffer()
		return -1, err
	}
	return newOff, nil
}

var errUnsupportedSeekEnd = errors.New("SEEK_END not supported")

func (r *Reader) emptyBuffer() {
	r.p, r.l = 0, 0
}

// Close tears down the transport handle and releases the global refcount
// (spec.md §4.5: "close removes and cleans up the transport handle... and
// decrements the global transport init refcount").
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var err error
	if r.body != nil {
		err = r.body.Close()
	}
	transportinit.Release()
	if err != nil {
		return errors.Wrap(err, "http: close failed")
	}
	return nil
}
