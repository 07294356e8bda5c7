// Package abi provides the plugin-side allocator for buffers that cross the
// host boundary.
package abi

import (
	"fmt"
	"sync"
	"unsafe"
)

// DefaultMaxTotalAllocations is the default ceiling on live plugin buffers.
const DefaultMaxTotalAllocations = 1 << 30 // 1 GiB

// memoryManager tracks every buffer handed out by Alloc. Holding the slice
// keeps the backing array reachable while only raw addresses refer to it, and
// lets Release tell plugin buffers apart from host buffers.
var memoryManager = struct {
	sync.Mutex
	ptrs           map[uintptr]allocation
	totalAllocated int
	limit          int
}{
	ptrs:  make(map[uintptr]allocation),
	limit: DefaultMaxTotalAllocations,
}

type allocation struct {
	ref  any // the slice, kept for pinning
	size int
}

// Option configures the allocator.
type Option func(*config)

type config struct {
	maxTotal int
}

// WithMaxTotalAllocations sets the ceiling on live bytes. Values below one are
// ignored.
func WithMaxTotalAllocations(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxTotal = n
		}
	}
}

// Configure applies options to the process-wide allocator.
func Configure(opts ...Option) {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	c := config{maxTotal: memoryManager.limit}
	for _, opt := range opts {
		opt(&c)
	}
	memoryManager.limit = c.maxTotal
}

// Alloc returns a zeroed buffer of n elements owned by the plugin allocator.
// It returns nil for n <= 0 and panics if the allocation would exceed the
// configured ceiling.
func Alloc[T any](n int) []T {
	if n <= 0 {
		return nil
	}
	var zero T
	size := n * int(unsafe.Sizeof(zero))

	memoryManager.Lock()
	defer memoryManager.Unlock()

	if memoryManager.totalAllocated+size > memoryManager.limit {
		panic(fmt.Sprintf("abi: memory allocation limit exceeded (requested: %d bytes, current: %d bytes, limit: %d bytes)",
			size, memoryManager.totalAllocated, memoryManager.limit))
	}

	buf := make([]T, n)
	ptr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	memoryManager.ptrs[ptr] = allocation{ref: buf, size: size}
	memoryManager.totalAllocated += size
	return buf
}

// Release returns a buffer to the allocator. It reports whether p was a live
// plugin buffer; untracked pointers, including host-owned buffers and buffers
// already released, are ignored.
func Release(p unsafe.Pointer) bool {
	if p == nil {
		return false
	}
	memoryManager.Lock()
	defer memoryManager.Unlock()

	a, ok := memoryManager.ptrs[uintptr(p)]
	if !ok {
		return false
	}
	delete(memoryManager.ptrs, uintptr(p))
	memoryManager.totalAllocated -= a.size
	if memoryManager.totalAllocated < 0 {
		memoryManager.totalAllocated = 0
	}
	return true
}

// Owns reports whether p is a live buffer of the plugin allocator.
func Owns(p unsafe.Pointer) bool {
	if p == nil {
		return false
	}
	memoryManager.Lock()
	defer memoryManager.Unlock()
	_, ok := memoryManager.ptrs[uintptr(p)]
	return ok
}

// Stats returns the number of live buffers and their total size in bytes.
func Stats() (count, bytes int) {
	memoryManager.Lock()
	defer memoryManager.Unlock()
	return len(memoryManager.ptrs), memoryManager.totalAllocated
}

// FreeAllTracked forgets every tracked buffer. It is meant for add-in
// shutdown, once no Value refers to a tracked buffer: the payload union holds
// buffer addresses as plain words, so the tracker is what keeps them alive.
func FreeAllTracked() {
	memoryManager.Lock()
	defer memoryManager.Unlock()

	clear(memoryManager.ptrs)
	memoryManager.totalAllocated = 0
}
