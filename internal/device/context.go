// Package device implements the execution context the matrix engine runs on:
// an ordered stream per context, device buffers, launch geometry and kernel
// launches. Kernels are Go functions executed by a host-emulated device with
// CUDA-like grid/block semantics.
package device

import (
	"context"
	"sync"
	"sync/atomic"
)

// Context owns one stream and the buffers allocated against it.
type Context struct {
	props  Props
	stream *Stream

	allocated atomic.Int64
	peak      atomic.Int64
	live      atomic.Int64
}

// MemStats summarises buffer usage of a Context.
type MemStats struct {
	AllocatedBytes int64
	PeakBytes      int64
	LiveBuffers    int64
}

// New creates a context. Zero fields of props take host defaults.
func New(props Props) *Context {
	return &Context{
		props:  props.withDefaults(),
		stream: newStream(),
	}
}

var (
	defaultOnce sync.Once
	defaultCtx  *Context
)

// Default returns the process-wide context, creating it on first use.
func Default() *Context {
	defaultOnce.Do(func() {
		defaultCtx = New(HostProps())
	})
	return defaultCtx
}

type contextKey struct{}

// WithContext stores dc in ctx.
func WithContext(ctx context.Context, dc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, dc)
}

// FromContext returns the device context stored in ctx, or Default.
func FromContext(ctx context.Context) *Context {
	if ctx != nil {
		if dc, ok := ctx.Value(contextKey{}).(*Context); ok && dc != nil {
			return dc
		}
	}
	return Default()
}

func (c *Context) Props() Props {
	return c.props
}

func (c *Context) Stream() *Stream {
	return c.stream
}

// Synchronize waits for the context's stream. See Stream.Synchronize.
func (c *Context) Synchronize() error {
	return c.stream.Synchronize()
}

// Close waits for outstanding work and releases the stream. Further launches
// fail with StatusContextDestroyed.
func (c *Context) Close() error {
	return c.stream.close()
}

func (c *Context) MemStats() MemStats {
	return MemStats{
		AllocatedBytes: c.allocated.Load(),
		PeakBytes:      c.peak.Load(),
		LiveBuffers:    c.live.Load(),
	}
}

func (c *Context) trackAlloc(bytes int64) {
	now := c.allocated.Add(bytes)
	c.live.Add(1)
	for {
		peak := c.peak.Load()
		if now <= peak || c.peak.CompareAndSwap(peak, now) {
			return
		}
	}
}

func (c *Context) trackFree(bytes int64) {
	c.allocated.Add(-bytes)
	c.live.Add(-1)
}
