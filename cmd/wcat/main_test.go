package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunConcatenatesPlainFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(a, []byte("hello\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("world\n"), 0644))

	code := run([]string{"-o", out, a, b})
	assert.Equal(t, 0, code)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(got))
}

func TestRunCountsMissingInputs(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	code := run([]string{"-o", out, filepath.Join(dir, "nope1"), filepath.Join(dir, "nope2")})
	assert.Equal(t, 2, code)
}

func TestRunUnknownCodecFailsAllInputs(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0644))
	code := run([]string{"-Z", "bogus", "-o", filepath.Join(dir, "out"), a})
	assert.Equal(t, 1, code)
}
