package peek

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeableReader struct {
	*bytes.Reader
	closed bool
}

func (c *closeableReader) Close() error {
	c.closed = true
	return nil
}

func newChild(s string) *closeableReader {
	return &closeableReader{Reader: bytes.NewReader([]byte(s))}
}

func TestPeekIdempotent(t *testing.T) {
	r := New(newChild("hello world"), 16)
	buf1 := make([]byte, 5)
	buf2 := make([]byte, 5)

	n1, err1 := r.Peek(buf1)
	require.NoError(t, err1)
	n2, err2 := r.Peek(buf2)
	require.NoError(t, err2)

	assert.Equal(t, n1, n2)
	assert.Equal(t, buf1, buf2)
	assert.Equal(t, "hello", string(buf1))

	out := make([]byte, 5)
	n, err := r.Read(out)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(out))
}

func TestPeekShortAtEOF(t *testing.T) {
	r := New(newChild("hi"), 16)
	buf := make([]byte, 10)
	n, err := r.Peek(buf)
	assert.Equal(t, 2, n)
	assert.Equal(t, io.EOF, err)
}

func TestReadDrainsThenDelegates(t *testing.T) {
	data := make([]byte, 4096*3)
	for i := range data {
		data[i] = byte(i)
	}
	child := newChild(string(data))
	r := New(child, 4096)

	small := make([]byte, 10)
	n, err := r.Read(small)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, data[:10], small)

	rest := make([]byte, len(data)-10)
	total := 0
	for total < len(rest) {
		n, err := r.Read(rest[total:])
		total += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, data[10:], rest[:total])
}

func TestReadToEOF(t *testing.T) {
	r := New(newChild("abc"), 16)
	buf := make([]byte, 16)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = r.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)

	// sticky EOF
	n, err = r.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestClosePropagates(t *testing.T) {
	child := newChild("x")
	r := New(child, 16)
	require.NoError(t, r.Close())
	assert.True(t, child.closed)
}
