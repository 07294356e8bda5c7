package abi

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetMemoryManager clears all tracked allocations for test isolation.
func resetMemoryManager() {
	FreeAllTracked()
	Configure(WithMaxTotalAllocations(DefaultMaxTotalAllocations))
}

func TestAllocRelease(t *testing.T) {
	resetMemoryManager()

	buf := Alloc[uint16](512)
	require.Len(t, buf, 512)
	p := unsafe.Pointer(unsafe.SliceData(buf))

	count, bytes := Stats()
	assert.Equal(t, 1, count, "expected 1 tracked allocation")
	assert.Equal(t, 1024, bytes, "total bytes mismatch")
	assert.True(t, Owns(p))

	assert.True(t, Release(p))

	count, bytes = Stats()
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, bytes)
	assert.False(t, Owns(p))
}

func TestAlloc_ZeroSize(t *testing.T) {
	assert.Nil(t, Alloc[uint32](0))
	assert.Nil(t, Alloc[uint32](-3))
}

func TestRelease_Idempotent(t *testing.T) {
	resetMemoryManager()

	buf := Alloc[byte](100)
	p := unsafe.Pointer(unsafe.SliceData(buf))
	assert.True(t, Release(p))
	// Second release should not panic or corrupt state
	assert.False(t, Release(p))

	_, bytes := Stats()
	assert.Equal(t, 0, bytes)
}

func TestRelease_Untracked(t *testing.T) {
	resetMemoryManager()

	foreign := make([]uint16, 4)
	assert.False(t, Release(unsafe.Pointer(&foreign[0])), "buffers not allocated here are never released")
	assert.False(t, Release(nil))
}

func TestFreeAllTracked(t *testing.T) {
	resetMemoryManager()

	Alloc[byte](100)
	Alloc[byte](200)

	count, _ := Stats()
	require.Equal(t, 2, count)

	FreeAllTracked()

	count, bytes := Stats()
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, bytes)
}

func TestConfigure_WithMaxTotalAllocations(t *testing.T) {
	resetMemoryManager()
	defer resetMemoryManager()

	Configure(WithMaxTotalAllocations(1024))

	buf := Alloc[byte](512)
	require.Len(t, buf, 512)
	Release(unsafe.Pointer(&buf[0]))

	assert.Panics(t, func() {
		Alloc[byte](2048)
	}, "expected panic when exceeding allocation limit")
}

func TestConfigure_InvalidLimitIgnored(t *testing.T) {
	resetMemoryManager()
	defer resetMemoryManager()

	Configure(WithMaxTotalAllocations(0))
	assert.NotPanics(t, func() {
		buf := Alloc[byte](4096)
		Release(unsafe.Pointer(&buf[0]))
	})
}

func TestConcurrency(t *testing.T) {
	resetMemoryManager()

	var wg sync.WaitGroup
	iterations := 100

	wg.Add(iterations)
	for i := 0; i < iterations; i++ {
		go func() {
			defer wg.Done()
			buf := Alloc[uint64](8)
			Release(unsafe.Pointer(&buf[0]))
		}()
	}
	wg.Wait()

	count, _ := Stats()
	assert.Equal(t, 0, count, "expected 0 allocations after concurrent operations")
}
