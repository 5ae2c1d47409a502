package zstdlz4

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct{ buf bytes.Buffer }

func (m *memSink) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *memSink) Flush() error                { return nil }
func (m *memSink) Close() error                { return nil }

type memSource struct{ *bytes.Reader }

func (m *memSource) Close() error { return nil }

func TestRoundTripZstd(t *testing.T) {
	for _, sz := range []int{0, 1, 1024, 1 << 20} {
		payload := make([]byte, sz)
		for i := range payload {
			payload[i] = byte(i * 13)
		}
		sink := &memSink{}
		w, err := NewWriter(sink, BackendZstd, 3)
		require.NoError(t, err)
		_, err = w.Write(payload)
		require.NoError(t, err)
		require.NoError(t, w.Close())

		r, err := NewReader(&memSource{bytes.NewReader(sink.buf.Bytes())})
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

func TestRoundTripLZ4(t *testing.T) {
	payload := bytes.Repeat([]byte("hello lz4 world "), 1000)
	sink := &memSink{}
	w, err := NewWriter(sink, BackendLZ4, 0)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := NewReader(&memSource{bytes.NewReader(sink.buf.Bytes())})
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestUnknownFrameHeaderIsCorrupt(t *testing.T) {
	sink := &memSink{}
	w, err := NewWriter(sink, BackendZstd, 1)
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	corrupted := append([]byte(nil), sink.buf.Bytes()...)
	corrupted[0] = 0x00 // replace zstd magic first byte

	r, err := NewReader(&memSource{bytes.NewReader(corrupted)})
	require.NoError(t, err)
	buf := make([]byte, 16)
	_, err = r.Read(buf)
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, frameZstd, classify([]byte{0x28, 0xB5, 0x2F, 0xFD, 0}))
	assert.Equal(t, frameLZ4, classify([]byte{0x04, 0x22, 0x4D, 0x18, 0}))
	assert.Equal(t, frameSkippable, classify([]byte{0x51, 0x2A, 0x4D, 0x18}))
	assert.Equal(t, frameUnknown, classify([]byte{0x00, 0x00, 0x00, 0x00}))
	assert.Equal(t, frameUnknown, classify([]byte{0x28}))
}
