package file

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceReadAndSeek(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0644))

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	buf := make([]byte, 4)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(buf[:n]))

	pos, err := s.Tell()
	require.NoError(t, err)
	assert.EqualValues(t, 4, pos)

	_, err = s.Seek(2, io.SeekStart)
	require.NoError(t, err)
	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "2345", string(buf[:n]))
}

func TestSourceReadToEOF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("ab"), 0644))

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	buf := make([]byte, 10)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestSinkWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	sink, err := Create(path, FlagTruncate)
	require.NoError(t, err)
	n, err := sink.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.NoError(t, sink.Flush())
	require.NoError(t, sink.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
