package transportinit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcquireReleaseHooksFireOnBoundaryOnly(t *testing.T) {
	inits, cleans := 0, 0
	SetHooks(func() { inits++ }, func() { cleans++ })
	defer SetHooks(nil, nil)

	Acquire()
	Acquire()
	Acquire()
	assert.Equal(t, 1, inits)
	assert.Equal(t, 3, Count())

	Release()
	Release()
	assert.Equal(t, 0, cleans)
	Release()
	assert.Equal(t, 1, cleans)
	assert.Equal(t, 0, Count())
}

func TestReleaseWithoutAcquireIsNoOp(t *testing.T) {
	SetHooks(nil, nil)
	Release()
	assert.Equal(t, 0, Count())
}
