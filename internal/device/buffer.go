package device

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Buffer is a typed allocation owned by a Context. Kernels access it through
// Device; the host reads it only through CopyToHost, which orders the read
// after all previously issued work.
type Buffer[T any] struct {
	ctx   *Context
	data  []T
	bytes int64
	freed atomic.Bool
}

// Alloc allocates n zeroed elements on c.
func Alloc[T any](c *Context, n int) (*Buffer[T], error) {
	if n < 0 {
		return nil, executionError("alloc", StatusInvalidValue, fmt.Errorf("negative length %d", n))
	}
	var zero T
	bytes := int64(n) * int64(unsafe.Sizeof(zero))
	b := &Buffer[T]{ctx: c, data: make([]T, n), bytes: bytes}
	c.trackAlloc(bytes)
	return b, nil
}

func (b *Buffer[T]) Len() int {
	return len(b.data)
}

func (b *Buffer[T]) Context() *Context {
	return b.ctx
}

// Device returns the device-side storage. Only kernels and stream tasks may
// touch it.
func (b *Buffer[T]) Device() []T {
	return b.data
}

// CopyFromHostAsync schedules a copy of src into the buffer. src is
// snapshotted at issue time, so the caller may reuse it immediately.
func (b *Buffer[T]) CopyFromHostAsync(src []T) error {
	if len(src) > len(b.data) {
		return executionError("memcpy_h2d", StatusInvalidValue,
			fmt.Errorf("copy of %d elements into buffer of %d", len(src), len(b.data)))
	}
	staged := make([]T, len(src))
	copy(staged, src)
	return b.ctx.stream.Enqueue("memcpy_h2d", func() error {
		copy(b.data, staged)
		return nil
	})
}

// CopyToHost copies the buffer into dst after all previously issued work has
// finished. Faults recorded on the stream are returned.
func (b *Buffer[T]) CopyToHost(dst []T) error {
	if len(dst) < len(b.data) {
		return executionError("memcpy_d2h", StatusInvalidValue,
			fmt.Errorf("destination holds %d elements, buffer has %d", len(dst), len(b.data)))
	}
	if err := b.ctx.stream.Enqueue("memcpy_d2h", func() error {
		copy(dst, b.data)
		return nil
	}); err != nil {
		return err
	}
	return b.ctx.stream.Synchronize()
}

// Free releases the buffer's accounting. It is safe to call more than once.
func (b *Buffer[T]) Free() {
	if b.freed.CompareAndSwap(false, true) {
		b.ctx.trackFree(b.bytes)
	}
}
